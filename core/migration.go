package core

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/corvids/surgo/schema"
	"github.com/corvids/surgo/surql"
)

// TableInfo is the introspected state of one live table: raw definition
// text per object name, plus the table-level attributes when the database
// reported them in structured form.
type TableInfo struct {
	Exists  bool
	Fields  map[string]string
	Indexes map[string]string
	Events  map[string]string
	Attrs   *TableAttrs
}

// TableAttrs are the table-level attributes compared structurally (never
// through text normalization) by the planner.
type TableAttrs struct {
	Schemafull  bool
	Permissions *schema.Permissions
	Comment     string
}

// Migrator is the schema reconciliation engine: it compiles a desired
// schema, introspects the live database, plans a minimal non-destructive
// diff and applies it. Plans are pure given their two inputs; the migrator
// itself holds no state between calls.
type Migrator struct {
	client *Client
}

// tableStructure is the payload of the structured introspection call.
type tableStructure struct {
	Schemafull  bool              `json:"schemafull"`
	Comment     string            `json:"comment"`
	Permissions json.RawMessage   `json:"permissions"`
	Fields      []objectStructure `json:"fields"`
	Indexes     []objectStructure `json:"indexes"`
	Events      []objectStructure `json:"events"`
}

type objectStructure struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// plainInfo is the payload of the raw introspection call: maps of object
// name to definition text.
type plainInfo struct {
	Fields  map[string]string `json:"fields"`
	Indexes map[string]string `json:"indexes"`
	Events  map[string]string `json:"events"`
	Tables  map[string]string `json:"tables"`
}

// IntrospectTable fetches the live definitions of one table. The structured
// call is tried first; on failure it falls back to the raw-text call. A
// table that does not exist (or an unreachable database) yields empty maps,
// not an error: an absent table is the normal state before a first
// migration.
func (m *Migrator) IntrospectTable(ctx context.Context, name string) *TableInfo {
	info := &TableInfo{
		Fields:  map[string]string{},
		Indexes: map[string]string{},
		Events:  map[string]string{},
	}

	if st, ok := m.introspectStructured(ctx, name); ok {
		info.Exists = true
		for _, f := range st.Fields {
			info.Fields[f.Name] = f.SQL
		}
		for _, i := range st.Indexes {
			info.Indexes[i.Name] = i.SQL
		}
		for _, e := range st.Events {
			info.Events[e.Name] = e.SQL
		}
		info.Attrs = &TableAttrs{
			Schemafull:  st.Schemafull,
			Permissions: parsePermissionsJSON(st.Permissions),
			Comment:     st.Comment,
		}
		return info
	}

	pi, ok := m.introspectPlain(ctx, name)
	if !ok {
		return info
	}
	info.Exists = true
	info.Fields = pi.Fields
	info.Indexes = pi.Indexes
	info.Events = pi.Events
	if info.Fields == nil {
		info.Fields = map[string]string{}
	}
	if info.Indexes == nil {
		info.Indexes = map[string]string{}
	}
	if info.Events == nil {
		info.Events = map[string]string{}
	}

	// The plain payload carries no table attributes; they live in the
	// database-level listing as statement text.
	if raw, ok := m.liveTables(ctx)[name]; ok {
		if t, err := surql.ParseTable(raw); err == nil {
			info.Attrs = &TableAttrs{
				Schemafull:  t.Schemafull,
				Permissions: t.Permissions,
				Comment:     t.Comment,
			}
		}
	}
	return info
}

func (m *Migrator) introspectStructured(ctx context.Context, name string) (*tableStructure, bool) {
	res, err := m.client.conn.Query(ctx, "INFO FOR TABLE "+surql.Ident(name)+" STRUCTURE", nil)
	if err != nil || len(res) == 0 || res[0].Err() != nil {
		return nil, false
	}
	var st tableStructure
	if err := json.Unmarshal(res[0].Result, &st); err != nil {
		return nil, false
	}
	if st.Fields == nil && st.Indexes == nil && st.Events == nil {
		return nil, false
	}
	return &st, true
}

func (m *Migrator) introspectPlain(ctx context.Context, name string) (*plainInfo, bool) {
	res, err := m.client.conn.Query(ctx, "INFO FOR TABLE "+surql.Ident(name), nil)
	if err != nil || len(res) == 0 || res[0].Err() != nil {
		return nil, false
	}
	var pi plainInfo
	if err := json.Unmarshal(res[0].Result, &pi); err != nil {
		return nil, false
	}
	return &pi, true
}

// liveTables lists the live table definitions of the whole database.
func (m *Migrator) liveTables(ctx context.Context) map[string]string {
	res, err := m.client.conn.Query(ctx, "INFO FOR DB", nil)
	if err != nil || len(res) == 0 || res[0].Err() != nil {
		return map[string]string{}
	}
	var pi plainInfo
	if err := json.Unmarshal(res[0].Result, &pi); err != nil || pi.Tables == nil {
		return map[string]string{}
	}
	return pi.Tables
}

// Plan computes the ordered statement list reconciling the live database
// with the desired schema. The plan is non-destructive: objects present
// live but absent from the schema are never touched. Statement order is a
// contract: per table fields, then indexes, then events, then at most one
// table alteration; tables follow schema declaration order.
func (m *Migrator) Plan(ctx context.Context, s *schema.Schema) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var plan []string
	for _, t := range s.Tables {
		info := m.IntrospectTable(ctx, t.Name)
		plan = append(plan, planTable(t, info)...)
	}
	return plan, nil
}

// planTable diffs one table against its introspected state.
func planTable(t *schema.Table, info *TableInfo) []string {
	if !info.Exists {
		return surql.CompileTable(t)
	}

	var stmts []string
	for _, fs := range surql.FieldStatements(t) {
		actual, ok := info.Fields[fs.Path]
		if !ok {
			// Either path spelling may come back from the database.
			actual, ok = info.Fields[strings.ReplaceAll(fs.Path, "[*]", ".*")]
		}
		if !ok {
			stmts = append(stmts, fs.Create)
			continue
		}
		if !surql.EquivalentDefinitions(fs.Overwrite, actual) {
			stmts = append(stmts, fs.Overwrite)
		}
	}

	for _, idx := range t.Indexes {
		actual, ok := info.Indexes[idx.Name]
		if !ok {
			stmts = append(stmts, surql.IndexStatement(t.Name, idx, false))
			continue
		}
		over := surql.IndexStatement(t.Name, idx, true)
		if !surql.EquivalentDefinitions(over, actual) {
			stmts = append(stmts, over)
		}
	}

	for _, ev := range t.Events {
		actual, ok := info.Events[ev.Name]
		if !ok {
			stmts = append(stmts, surql.EventStatement(t.Name, ev, false))
			continue
		}
		over := surql.EventStatement(t.Name, ev, true)
		if !surql.EquivalentDefinitions(over, actual) {
			stmts = append(stmts, over)
		}
	}

	if alter, ok := planTableAlter(t, info.Attrs); ok {
		stmts = append(stmts, alter)
	}
	return stmts
}

// planTableAlter compares table-level attributes structurally and emits a
// single statement covering only the differing aspects, in fixed order:
// schema mode, permissions, comment. Attributes the desired schema leaves
// unspecified (nil permissions, empty comment) are unmanaged and never
// diffed.
func planTableAlter(t *schema.Table, attrs *TableAttrs) (string, bool) {
	if attrs == nil {
		return "", false
	}
	var mode *bool
	var perms *schema.Permissions
	var comment *string

	if t.Schemafull != attrs.Schemafull {
		mode = &t.Schemafull
	}
	if t.Permissions != nil && !t.Permissions.Equal(attrs.Permissions) {
		perms = t.Permissions
	}
	if t.Comment != "" && t.Comment != attrs.Comment {
		comment = &t.Comment
	}
	if mode == nil && perms == nil && comment == nil {
		return "", false
	}
	return surql.AlterTable(t.Name, mode, perms, comment), true
}

// Apply executes a plan as one batched round trip. It returns whether there
// was anything to apply. Any statement failure aborts the batch and is
// surfaced verbatim; partial state is governed by the database's own
// atomicity, not masked here.
func (m *Migrator) Apply(ctx context.Context, plan []string) (bool, error) {
	if len(plan) == 0 {
		return false, nil
	}
	start := time.Now()
	stmt := strings.Join(plan, ";\n") + ";"
	res, err := m.client.conn.Query(ctx, stmt, nil)
	m.client.logger.SurQL(stmt, time.Since(start))
	if err != nil {
		return false, err
	}
	for _, r := range res {
		if rerr := r.Err(); rerr != nil {
			return false, rerr
		}
	}
	return true, nil
}

// Migrate plans and applies in one call.
func (m *Migrator) Migrate(ctx context.Context, s *schema.Schema) (bool, error) {
	plan, err := m.Plan(ctx, s)
	if err != nil {
		return false, err
	}
	return m.Apply(ctx, plan)
}

// PlanDrop enumerates removal statements for live objects absent from the
// desired schema. It only ever reports: nothing in this engine executes
// removals.
func (m *Migrator) PlanDrop(ctx context.Context, s *schema.Schema) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var plan []string

	for _, t := range s.Tables {
		info := m.IntrospectTable(ctx, t.Name)
		if !info.Exists {
			continue
		}

		desired := map[string]bool{}
		for _, fs := range surql.FieldStatements(t) {
			desired[fs.Path] = true
			desired[strings.ReplaceAll(fs.Path, "[*]", ".*")] = true
		}
		for _, path := range sortedKeys(info.Fields) {
			if !desired[path] {
				plan = append(plan, surql.RemoveField(t.Name, path))
			}
		}

		names := map[string]bool{}
		for _, idx := range t.Indexes {
			names[idx.Name] = true
		}
		for _, name := range sortedKeys(info.Indexes) {
			if !names[name] {
				plan = append(plan, surql.RemoveIndex(t.Name, name))
			}
		}

		names = map[string]bool{}
		for _, ev := range t.Events {
			names[ev.Name] = true
		}
		for _, name := range sortedKeys(info.Events) {
			if !names[name] {
				plan = append(plan, surql.RemoveEvent(t.Name, name))
			}
		}
	}

	for _, name := range sortedKeys(m.liveTables(ctx)) {
		if s.Table(name) == nil {
			plan = append(plan, surql.RemoveTable(name))
		}
	}
	return plan, nil
}

// Introspect reverse-engineers the whole live database into a schema value,
// consumable by code generation and by drop reporting.
func (m *Migrator) Introspect(ctx context.Context) (*schema.Schema, error) {
	live := m.liveTables(ctx)
	s := &schema.Schema{}

	for _, name := range sortedKeys(live) {
		info := m.IntrospectTable(ctx, name)
		t := &schema.Table{Name: name}
		if info.Attrs != nil {
			t.Schemafull = info.Attrs.Schemafull
			t.Permissions = info.Attrs.Permissions
			t.Comment = info.Attrs.Comment
		}
		t.Fields = surql.Unflatten(info.Fields)
		for _, iname := range sortedKeys(info.Indexes) {
			idx, err := surql.ParseIndex(info.Indexes[iname])
			if err != nil {
				continue
			}
			t.Indexes = append(t.Indexes, idx)
		}
		for _, ename := range sortedKeys(info.Events) {
			ev, err := surql.ParseEvent(info.Events[ename])
			if err != nil {
				continue
			}
			t.Events = append(t.Events, ev)
		}
		s.Tables = append(s.Tables, t)
	}
	return s, nil
}

// parsePermissionsJSON decodes the structured permissions payload: either a
// blanket "FULL"/"NONE" string or a map of operation to expression.
func parsePermissionsJSON(raw json.RawMessage) *schema.Permissions {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToUpper(s) {
		case "FULL":
			return schema.AllowFull()
		case "NONE":
			return schema.DenyAll()
		}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	p := &schema.Permissions{
		Select: m["select"],
		Create: m["create"],
		Update: m["update"],
		Delete: m["delete"],
	}
	if p.Select == "" && p.Create == "" && p.Update == "" && p.Delete == "" {
		return nil
	}
	return p
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
