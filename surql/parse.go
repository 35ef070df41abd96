package surql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/corvids/surgo/schema"
)

// The parsers in this file reverse what compile.go emits, tolerating the
// textual variations the live database produces (guards stripped, different
// quoting, clause reordering). Anything they do not recognize is left unset
// rather than failing: a lossy parse only ever costs an unnecessary
// overwrite on the next plan, never a silently skipped change.

var (
	fieldHeadRe = regexp.MustCompile(`(?is)^\s*DEFINE\s+FIELD\s+(?:IF\s+NOT\s+EXISTS\s+|OVERWRITE\s+)?(.+?)\s+ON\s+(?:TABLE\s+)?(\S+)\s*(.*)$`)
	indexHeadRe = regexp.MustCompile(`(?is)^\s*DEFINE\s+INDEX\s+(?:IF\s+NOT\s+EXISTS\s+|OVERWRITE\s+)?(\S+)\s+ON\s+(?:TABLE\s+)?(\S+)\s*(.*)$`)
	eventHeadRe = regexp.MustCompile(`(?is)^\s*DEFINE\s+EVENT\s+(?:IF\s+NOT\s+EXISTS\s+|OVERWRITE\s+)?(\S+)\s+ON\s+(?:TABLE\s+)?(\S+)\s*(.*)$`)
	tableHeadRe = regexp.MustCompile(`(?is)^\s*DEFINE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+|OVERWRITE\s+)?(\S+)\s*(.*)$`)

	requiredAssertRe = regexp.MustCompile(`(?i)^\$value\s*!=\s*NONE$`)
	enumAssertRe     = regexp.MustCompile(`(?is)^\$value\s+INSIDE\s+\[(.*)\]$`)
	minLenRe         = regexp.MustCompile(`(?i)^string::len\(\$value\)\s*>=\s*(\d+)$`)
	maxLenRe         = regexp.MustCompile(`(?i)^string::len\(\$value\)\s*<=\s*(\d+)$`)
	minRe            = regexp.MustCompile(`(?i)^\$value\s*>=\s*(-?[0-9.]+)$`)
	maxRe            = regexp.MustCompile(`(?i)^\$value\s*<=\s*(-?[0-9.]+)$`)
	patternRe        = regexp.MustCompile(`(?s)^\$value\s*=\s*/(.*)/$`)
	bm25Re           = regexp.MustCompile(`^\(?\s*([0-9.]+)?\s*,?\s*([0-9.]+)?\s*\)?$`)
)

var fieldKeywords = map[string]bool{
	"TYPE": true, "FLEXIBLE": true, "REFERENCE": true, "ASSERT": true,
	"DEFAULT": true, "VALUE": true, "READONLY": true, "PERMISSIONS": true,
	"COMMENT": true,
}

var indexKeywords = map[string]bool{
	"FIELDS": true, "COLUMNS": true, "UNIQUE": true, "SEARCH": true,
	"ANALYZER": true, "BM25": true, "HIGHLIGHTS": true, "COMMENT": true,
}

var eventKeywords = map[string]bool{
	"WHEN": true, "THEN": true, "COMMENT": true,
}

var tableKeywords = map[string]bool{
	"SCHEMAFULL": true, "SCHEMALESS": true, "TYPE": true, "DROP": true,
	"PERMISSIONS": true, "COMMENT": true, "CHANGEFEED": true,
}

// ParseField parses one raw field definition into its flattened path and a
// leaf descriptor. The descriptor's Name is the last path segment; nesting
// is reassembled separately by Unflatten.
func ParseField(raw string) (string, *schema.Field, error) {
	m := fieldHeadRe.FindStringSubmatch(raw)
	if m == nil {
		return "", nil, fmt.Errorf("not a field definition: %q", raw)
	}
	path := strings.TrimSpace(m[1])

	f := &schema.Field{Required: true}
	for _, c := range splitClauses(m[3], fieldKeywords) {
		switch c.key {
		case "TYPE":
			parseTypeInto(f, c.text)
		case "REFERENCE":
			parseReferenceInto(f, c.text)
		case "ASSERT":
			parseAssertInto(f, c.text)
		case "DEFAULT":
			if rest, ok := cutKeyword(c.text, "ALWAYS"); ok {
				f.DefaultAlways = true
				f.Default = rest
			} else {
				f.Default = c.text
			}
		case "VALUE":
			f.Value = c.text
		case "READONLY":
			f.Readonly = true
		case "PERMISSIONS":
			f.Permissions = parsePermissions(c.text)
		case "COMMENT":
			f.Comment = unquote(c.text)
		}
	}

	segs := SplitPath(path)
	if len(segs) > 0 {
		f.Name = segs[len(segs)-1]
	}
	return path, f, nil
}

// parseTypeInto fills type, requiredness and reference target from a type
// expression. An unrecognized type name is left as the zero type rather
// than reported: absence of precision is safer than a hard failure here.
func parseTypeInto(f *schema.Field, expr string) {
	expr = strings.TrimSpace(expr)
	if inner, ok := angleArg(expr, "option"); ok {
		f.Required = false
		expr = inner
	}

	if inner, ok := angleArg(expr, "record"); ok {
		f.Type = schema.TypeRecord
		targets := splitTop(inner, '|')
		if len(targets) > 0 {
			f.Reference = unbacktick(targets[0])
		}
		return
	}
	if inner, ok := angleArg(expr, "array"); ok {
		f.Type = schema.TypeArray
		elem := &schema.Field{Required: true}
		parseTypeInto(elem, inner)
		f.Elem = elem
		return
	}
	if inner, ok := angleArg(expr, "set"); ok {
		f.Type = schema.TypeArray
		elem := &schema.Field{Required: true}
		parseTypeInto(elem, inner)
		f.Elem = elem
		return
	}

	switch strings.ToLower(expr) {
	case "string":
		f.Type = schema.TypeString
	case "number", "int", "float", "decimal":
		f.Type = schema.TypeNumber
	case "bool":
		f.Type = schema.TypeBool
	case "datetime":
		f.Type = schema.TypeDatetime
	case "object":
		f.Type = schema.TypeObject
	case "array":
		f.Type = schema.TypeArray
	}
}

func parseReferenceInto(f *schema.Field, text string) {
	rest, ok := cutKeyword(text, "ON")
	if !ok {
		return
	}
	rest, ok = cutKeyword(rest, "DELETE")
	if !ok {
		return
	}
	word, tail := firstWord(rest)
	switch strings.ToUpper(word) {
	case "REJECT":
		f.OnDelete = schema.OnDeleteReject
	case "CASCADE":
		f.OnDelete = schema.OnDeleteCascade
	case "IGNORE":
		f.OnDelete = schema.OnDeleteIgnore
	case "UNSET":
		f.OnDelete = schema.OnDeleteUnset
	case "THEN":
		f.OnDelete = schema.OnDeleteThen
		f.OnDeleteThen = strings.TrimSpace(tail)
	}
}

func parseAssertInto(f *schema.Field, expr string) {
	expr = strings.TrimSpace(expr)
	switch {
	case requiredAssertRe.MatchString(expr):
		f.Required = true
	case enumAssertRe.MatchString(expr):
		inner := enumAssertRe.FindStringSubmatch(expr)[1]
		for _, v := range splitTop(inner, ',') {
			f.Enum = append(f.Enum, unquote(v))
		}
	case minLenRe.MatchString(expr):
		n, _ := strconv.Atoi(minLenRe.FindStringSubmatch(expr)[1])
		f.MinLen = &n
	case maxLenRe.MatchString(expr):
		n, _ := strconv.Atoi(maxLenRe.FindStringSubmatch(expr)[1])
		f.MaxLen = &n
	case minRe.MatchString(expr):
		n, _ := strconv.ParseFloat(minRe.FindStringSubmatch(expr)[1], 64)
		f.Min = &n
	case maxRe.MatchString(expr):
		n, _ := strconv.ParseFloat(maxRe.FindStringSubmatch(expr)[1], 64)
		f.Max = &n
	case patternRe.MatchString(expr):
		f.Pattern = patternRe.FindStringSubmatch(expr)[1]
	default:
		f.Asserts = append(f.Asserts, expr)
	}
}

// ParseIndex parses one raw index definition.
func ParseIndex(raw string) (*schema.Index, error) {
	m := indexHeadRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("not an index definition: %q", raw)
	}
	idx := &schema.Index{Name: unbacktick(m[1])}

	for _, c := range splitClauses(m[3], indexKeywords) {
		switch c.key {
		case "FIELDS", "COLUMNS":
			for _, fld := range splitTop(c.text, ',') {
				idx.Fields = append(idx.Fields, fld)
			}
		case "UNIQUE":
			idx.Unique = true
		case "SEARCH":
			if idx.Search == nil {
				idx.Search = &schema.Search{}
			}
		case "ANALYZER":
			if idx.Search == nil {
				idx.Search = &schema.Search{}
			}
			idx.Search.Analyzer = unbacktick(c.text)
		case "BM25":
			if idx.Search == nil {
				idx.Search = &schema.Search{}
			}
			if pm := bm25Re.FindStringSubmatch(strings.TrimSpace(c.text)); pm != nil {
				if pm[1] != "" {
					if v, err := strconv.ParseFloat(pm[1], 64); err == nil {
						idx.Search.K1 = &v
					}
				}
				if pm[2] != "" {
					if v, err := strconv.ParseFloat(pm[2], 64); err == nil {
						idx.Search.B = &v
					}
				}
			}
		case "HIGHLIGHTS":
			if idx.Search == nil {
				idx.Search = &schema.Search{}
			}
			idx.Search.Highlights = true
		}
	}
	return idx, nil
}

// ParseEvent parses one raw event definition.
func ParseEvent(raw string) (*schema.Event, error) {
	m := eventHeadRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("not an event definition: %q", raw)
	}
	ev := &schema.Event{Name: unbacktick(m[1])}
	for _, c := range splitClauses(m[3], eventKeywords) {
		switch c.key {
		case "WHEN":
			ev.When = c.text
		case "THEN":
			then := strings.TrimSpace(c.text)
			if strings.HasPrefix(then, "{") && strings.HasSuffix(then, "}") {
				then = strings.TrimSpace(then[1 : len(then)-1])
			}
			ev.Then = then
		}
	}
	return ev, nil
}

// ParseTable parses the table-level attributes out of a raw table
// definition. Fields, indexes and events are reported separately by the
// introspection call and are not part of this text.
func ParseTable(raw string) (*schema.Table, error) {
	m := tableHeadRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("not a table definition: %q", raw)
	}
	t := &schema.Table{Name: unbacktick(m[1])}
	for _, c := range splitClauses(m[2], tableKeywords) {
		switch c.key {
		case "SCHEMAFULL":
			t.Schemafull = true
		case "SCHEMALESS":
			t.Schemafull = false
		case "PERMISSIONS":
			t.Permissions = parsePermissions(c.text)
		case "COMMENT":
			t.Comment = unquote(c.text)
		}
	}
	return t, nil
}

// parsePermissions parses a permissions clause body: FULL, NONE, or a
// sequence of FOR <ops> WHERE <expr> groups with comma-separated operations.
func parsePermissions(text string) *schema.Permissions {
	text = strings.TrimSpace(text)
	switch strings.ToUpper(text) {
	case "FULL":
		return schema.AllowFull()
	case "NONE":
		return schema.DenyAll()
	}

	p := &schema.Permissions{}
	rest := text
	for {
		var ok bool
		rest, ok = cutKeyword(rest, "FOR")
		if !ok {
			break
		}
		// Operations up to WHERE, then the expression up to the next FOR.
		clauses := splitClauses("FOR "+rest, map[string]bool{"FOR": true})
		group := clauses[0].text
		rest = ""
		if len(clauses) > 1 {
			var tail []string
			for _, c := range clauses[1:] {
				tail = append(tail, "FOR "+c.text)
			}
			rest = strings.Join(tail, " ")
		}

		ops, expr, found := strings.Cut(group, " WHERE ")
		if !found {
			ops, expr, found = strings.Cut(group, " where ")
		}
		if !found {
			// Blanket op grant, e.g. "FOR select FULL".
			if w, tail2 := lastWord(group); strings.EqualFold(w, "FULL") || strings.EqualFold(w, "NONE") {
				ops, expr = tail2, strings.ToUpper(w)
			} else {
				continue
			}
		}
		expr = strings.TrimSpace(expr)
		for _, op := range splitTop(ops, ',') {
			switch strings.ToLower(strings.TrimSpace(op)) {
			case "select":
				p.Select = expr
			case "create":
				p.Create = expr
			case "update":
				p.Update = expr
			case "delete":
				p.Delete = expr
			}
		}
	}
	if p.Select == "" && p.Create == "" && p.Update == "" && p.Delete == "" {
		return nil
	}
	return p
}

// angleArg matches "name<inner>" and returns inner.
func angleArg(s, name string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(s), name+"<") || !strings.HasSuffix(s, ">") {
		return "", false
	}
	return strings.TrimSpace(s[len(name)+1 : len(s)-1]), true
}

// cutKeyword strips a leading keyword (case-insensitive) and returns the
// remainder.
func cutKeyword(s, kw string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return s, false
	}
	rest := s[len(kw):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

func firstWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func lastWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexAny(s, " \t"); i >= 0 {
		return s[i+1:], s[:i]
	}
	return s, ""
}
