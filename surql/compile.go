package surql

import (
	"strconv"
	"strings"

	"github.com/corvids/surgo/schema"
)

// FieldStatement is one compiled field definition, addressed by its
// flattened path. Create carries the idempotent existence guard; Overwrite
// replaces it with an explicit overwrite clause. Both share the same clause
// tail, byte for byte.
type FieldStatement struct {
	Path      string
	Create    string
	Overwrite string
}

// CompileTable compiles a full creation script for one table: the table
// statement first, then one statement per field in declared order (nested
// shapes flattened to paths), then indexes, then events.
func CompileTable(t *schema.Table) []string {
	stmts := []string{TableStatement(t, false)}
	for _, fs := range FieldStatements(t) {
		stmts = append(stmts, fs.Create)
	}
	for _, idx := range t.Indexes {
		stmts = append(stmts, IndexStatement(t.Name, idx, false))
	}
	for _, ev := range t.Events {
		stmts = append(stmts, EventStatement(t.Name, ev, false))
	}
	return stmts
}

// TableStatement compiles the table-level definition statement.
func TableStatement(t *schema.Table, overwrite bool) string {
	var b strings.Builder
	b.WriteString("DEFINE TABLE ")
	b.WriteString(guard(overwrite))
	b.WriteString(Ident(t.Name))
	if t.Schemafull {
		b.WriteString(" SCHEMAFULL")
	} else {
		b.WriteString(" SCHEMALESS")
	}
	if c := permissionsClause(t.Permissions); c != "" {
		b.WriteString(" ")
		b.WriteString(c)
	}
	if t.Comment != "" {
		b.WriteString(" COMMENT ")
		b.WriteString(Str(t.Comment))
	}
	return b.String()
}

// FieldStatements flattens the field tree into one statement per addressable
// path. A nested object contributes a container statement plus one statement
// per property under "parent.child"; an array of objects addresses element
// properties under "parent[*].child".
func FieldStatements(t *schema.Table) []FieldStatement {
	var out []FieldStatement
	for _, f := range t.Fields {
		out = appendFieldStatements(out, t.Name, f.Name, f)
	}
	return out
}

func appendFieldStatements(out []FieldStatement, table, path string, f *schema.Field) []FieldStatement {
	tail := fieldTail(f)
	out = append(out, FieldStatement{
		Path:      path,
		Create:    "DEFINE FIELD " + guard(false) + path + " ON " + Ident(table) + tail,
		Overwrite: "DEFINE FIELD " + guard(true) + path + " ON " + Ident(table) + tail,
	})

	switch {
	case f.Type == schema.TypeObject:
		for _, c := range f.Fields {
			out = appendFieldStatements(out, table, path+"."+c.Name, c)
		}
	case f.Type == schema.TypeArray && f.Elem != nil && f.Elem.Type == schema.TypeObject:
		for _, c := range f.Elem.Fields {
			out = appendFieldStatements(out, table, path+"[*]."+c.Name, c)
		}
	}
	return out
}

func guard(overwrite bool) string {
	if overwrite {
		return "OVERWRITE "
	}
	return "IF NOT EXISTS "
}

// fieldTail renders the clause tail shared by the create and overwrite
// variants. Clause order is a fixed contract: type, reference delete policy,
// required assertion, default, computed value, readonly, permissions,
// constraint assertions, enum assertion, comment. The normalizer depends on
// this order being stable.
func fieldTail(f *schema.Field) string {
	var b strings.Builder
	b.WriteString(" TYPE ")
	b.WriteString(typeExpr(f, f.Required))

	if ref := referenceClause(f); ref != "" {
		b.WriteString(" ")
		b.WriteString(ref)
	}
	if f.Required {
		b.WriteString(" ASSERT $value != NONE")
	}
	if f.Default != "" {
		b.WriteString(" DEFAULT ")
		if f.DefaultAlways {
			b.WriteString("ALWAYS ")
		}
		b.WriteString(f.Default)
	}
	if f.Value != "" {
		b.WriteString(" VALUE ")
		b.WriteString(f.Value)
	}
	if f.Readonly {
		b.WriteString(" READONLY")
	}
	if c := permissionsClause(f.Permissions); c != "" {
		b.WriteString(" ")
		b.WriteString(c)
	}
	for _, a := range constraintAsserts(f) {
		b.WriteString(" ASSERT ")
		b.WriteString(a)
	}
	if len(f.Enum) > 0 {
		b.WriteString(" ASSERT $value INSIDE [")
		for i, v := range f.Enum {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(literal(v))
		}
		b.WriteString("]")
	}
	if f.Comment != "" {
		b.WriteString(" COMMENT ")
		b.WriteString(Str(f.Comment))
	}
	return b.String()
}

func typeExpr(f *schema.Field, required bool) string {
	var t string
	switch f.Type {
	case schema.TypeRecord:
		t = "record<" + Ident(f.Reference) + ">"
	case schema.TypeArray:
		if f.Elem == nil {
			t = "array"
		} else {
			t = "array<" + typeExpr(f.Elem, true) + ">"
		}
	default:
		t = f.Type.String()
	}
	if !required {
		t = "option<" + t + ">"
	}
	return t
}

// referenceClause emits the delete policy for record fields. For an array of
// records the policy lives on the element descriptor but the clause belongs
// to the container statement.
func referenceClause(f *schema.Field) string {
	target := f
	if f.Type == schema.TypeArray && f.Elem != nil && f.Elem.Type == schema.TypeRecord {
		target = f.Elem
	} else if f.Type != schema.TypeRecord {
		return ""
	}
	switch target.OnDelete {
	case schema.OnDeleteNone:
		return ""
	case schema.OnDeleteThen:
		return "REFERENCE ON DELETE THEN " + target.OnDeleteThen
	default:
		return "REFERENCE ON DELETE " + target.OnDelete.String()
	}
}

func constraintAsserts(f *schema.Field) []string {
	var out []string
	out = append(out, f.Asserts...)
	if f.MinLen != nil {
		out = append(out, "string::len($value) >= "+strconv.Itoa(*f.MinLen))
	}
	if f.MaxLen != nil {
		out = append(out, "string::len($value) <= "+strconv.Itoa(*f.MaxLen))
	}
	if f.Min != nil {
		out = append(out, "$value >= "+formatFloat(*f.Min))
	}
	if f.Max != nil {
		out = append(out, "$value <= "+formatFloat(*f.Max))
	}
	if f.Pattern != "" {
		out = append(out, "$value = /"+f.Pattern+"/")
	}
	return out
}

// IndexStatement compiles one index definition. Plain and search indexes are
// distinct statement shapes; search sub-clauses keep a fixed order
// (analyzer, ranking, highlighting).
func IndexStatement(table string, idx *schema.Index, overwrite bool) string {
	var b strings.Builder
	b.WriteString("DEFINE INDEX ")
	b.WriteString(guard(overwrite))
	b.WriteString(Ident(idx.Name))
	b.WriteString(" ON ")
	b.WriteString(Ident(table))
	b.WriteString(" FIELDS ")
	for i, f := range idx.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f)
	}
	switch {
	case idx.Unique:
		b.WriteString(" UNIQUE")
	case idx.Search != nil:
		b.WriteString(" SEARCH")
		if idx.Search.Analyzer != "" {
			b.WriteString(" ANALYZER ")
			b.WriteString(Ident(idx.Search.Analyzer))
		}
		if idx.Search.K1 != nil || idx.Search.B != nil {
			// Missing ranking parameters fall back to the engine defaults.
			k1, bm := 1.2, 0.75
			if idx.Search.K1 != nil {
				k1 = *idx.Search.K1
			}
			if idx.Search.B != nil {
				bm = *idx.Search.B
			}
			b.WriteString(" BM25(" + formatFloat(k1) + ", " + formatFloat(bm) + ")")
		}
		if idx.Search.Highlights {
			b.WriteString(" HIGHLIGHTS")
		}
	}
	return b.String()
}

// EventStatement compiles one reactive rule.
func EventStatement(table string, ev *schema.Event, overwrite bool) string {
	then := strings.TrimSpace(ev.Then)
	if !strings.HasPrefix(then, "{") {
		then = "{ " + then + " }"
	}
	return "DEFINE EVENT " + guard(overwrite) + Ident(ev.Name) + " ON " + Ident(table) +
		" WHEN " + ev.When + " THEN " + then
}

// AlterTable emits a single statement updating only the given table-level
// aspects, in fixed order: schema mode, permissions, comment.
func AlterTable(name string, schemafull *bool, perms *schema.Permissions, comment *string) string {
	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(Ident(name))
	if schemafull != nil {
		if *schemafull {
			b.WriteString(" SCHEMAFULL")
		} else {
			b.WriteString(" SCHEMALESS")
		}
	}
	if perms != nil {
		if c := permissionsClause(perms); c != "" {
			b.WriteString(" ")
			b.WriteString(c)
		}
	}
	if comment != nil {
		b.WriteString(" COMMENT ")
		b.WriteString(Str(*comment))
	}
	return b.String()
}

// Removal statements, used only by the destructive report.
func RemoveTable(name string) string { return "REMOVE TABLE " + Ident(name) }
func RemoveField(table, path string) string {
	return "REMOVE FIELD " + path + " ON " + Ident(table)
}
func RemoveIndex(table, name string) string {
	return "REMOVE INDEX " + Ident(name) + " ON " + Ident(table)
}
func RemoveEvent(table, name string) string {
	return "REMOVE EVENT " + Ident(name) + " ON " + Ident(table)
}

func permissionsClause(p *schema.Permissions) string {
	switch {
	case p == nil:
		return ""
	case p.Full:
		return "PERMISSIONS FULL"
	case p.None:
		return "PERMISSIONS NONE"
	}
	var b strings.Builder
	b.WriteString("PERMISSIONS")
	for _, slot := range [4]struct{ op, expr string }{
		{"select", p.Select},
		{"create", p.Create},
		{"update", p.Update},
		{"delete", p.Delete},
	} {
		if slot.expr == "" {
			continue
		}
		b.WriteString(" FOR ")
		b.WriteString(slot.op)
		b.WriteString(" WHERE ")
		b.WriteString(slot.expr)
	}
	if b.Len() == len("PERMISSIONS") {
		return ""
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
