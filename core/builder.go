package core

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/corvids/surgo/query"
)

// Builder defines the interface for building SurrealQL statements. It
// provides a fluent API and takes care of parameter binding: positional "?"
// markers in conditions become named query parameters.
type Builder interface {
	// SetTable sets the statement target.
	SetTable(name string) Builder
	// Select specifies the projection (default "*").
	Select(fields ...string) Builder
	// Where adds an AND condition.
	Where(cond string, args ...any) Builder
	// OrWhere adds an OR condition.
	OrWhere(cond string, args ...any) Builder
	// WhereIn adds an INSIDE condition for a field and a slice of values.
	WhereIn(field string, values any) Builder
	// GroupBy adds GROUP BY fields.
	GroupBy(fields ...string) Builder
	// OrderBy adds ORDER BY terms (e.g. "age DESC").
	OrderBy(fields ...string) Builder
	// Limit caps the number of returned records.
	Limit(n int) Builder
	// Start skips the first n records.
	Start(n int) Builder
	// Fetch resolves record links in the result set.
	Fetch(fields ...string) Builder
	// Vars returns the accumulated named parameters.
	Vars() map[string]any
	// BuildSelect renders the SELECT statement.
	BuildSelect() string
	// BuildCreate renders a CREATE ... CONTENT statement, binding data.
	BuildCreate(data any) string
	// BuildUpdate renders an UPDATE statement; merge selects MERGE over
	// CONTENT semantics.
	BuildUpdate(data any, merge bool) string
	// BuildDelete renders the DELETE statement.
	BuildDelete() string
	// Clone creates a deep copy of the builder.
	Clone() Builder
}

type surqlBuilder struct {
	table      string
	target     string // explicit record id target, overrides table
	selectCols []string
	conds      []string
	groupBy    []string
	orderBy    []string
	fetch      []string
	limitSet   bool
	limit      int
	startSet   bool
	start      int
	vars       map[string]any
	argN       int
}

var builderPool = sync.Pool{
	New: func() any {
		return &surqlBuilder{}
	},
}

// NewBuilder returns a builder from the pool.
func NewBuilder() Builder {
	b := builderPool.Get().(*surqlBuilder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to the pool.
func PutBuilder(b Builder) {
	if sb, ok := b.(*surqlBuilder); ok {
		builderPool.Put(sb)
	}
}

func (b *surqlBuilder) Reset() {
	b.table = ""
	b.target = ""
	b.selectCols = b.selectCols[:0]
	b.conds = b.conds[:0]
	b.groupBy = b.groupBy[:0]
	b.orderBy = b.orderBy[:0]
	b.fetch = b.fetch[:0]
	b.limitSet = false
	b.limit = 0
	b.startSet = false
	b.start = 0
	b.vars = make(map[string]any)
	b.argN = 0
}

func (b *surqlBuilder) Clone() Builder {
	nb := builderPool.Get().(*surqlBuilder)
	nb.Reset()
	nb.table = b.table
	nb.target = b.target
	nb.selectCols = append(nb.selectCols, b.selectCols...)
	nb.conds = append(nb.conds, b.conds...)
	nb.groupBy = append(nb.groupBy, b.groupBy...)
	nb.orderBy = append(nb.orderBy, b.orderBy...)
	nb.fetch = append(nb.fetch, b.fetch...)
	nb.limitSet, nb.limit = b.limitSet, b.limit
	nb.startSet, nb.start = b.startSet, b.start
	for k, v := range b.vars {
		nb.vars[k] = v
	}
	nb.argN = b.argN
	return nb
}

func (b *surqlBuilder) SetTable(name string) Builder {
	b.table = name
	return b
}

// SetTarget points the statement at a single record id.
func (b *surqlBuilder) SetTarget(id string) {
	b.target = id
}

func (b *surqlBuilder) Select(fields ...string) Builder {
	b.selectCols = append(b.selectCols, fields...)
	return b
}

// bind replaces each "?" in cond with a fresh named parameter.
func (b *surqlBuilder) bind(cond string, args []any) string {
	for _, a := range args {
		name := fmt.Sprintf("p%d", b.argN)
		b.argN++
		b.vars[name] = a
		cond = strings.Replace(cond, "?", "$"+name, 1)
	}
	return cond
}

func (b *surqlBuilder) Where(cond string, args ...any) Builder {
	b.conds = append(b.conds, b.bind(cond, args))
	return b
}

func (b *surqlBuilder) OrWhere(cond string, args ...any) Builder {
	cond = b.bind(cond, args)
	if len(b.conds) == 0 {
		b.conds = append(b.conds, cond)
		return b
	}
	last := b.conds[len(b.conds)-1]
	b.conds[len(b.conds)-1] = "(" + last + " OR " + cond + ")"
	return b
}

func (b *surqlBuilder) WhereIn(field string, values any) Builder {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		values = []any{values}
	}
	return b.Where(field+" INSIDE ?", values)
}

func (b *surqlBuilder) GroupBy(fields ...string) Builder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

func (b *surqlBuilder) OrderBy(fields ...string) Builder {
	b.orderBy = append(b.orderBy, fields...)
	return b
}

func (b *surqlBuilder) Limit(n int) Builder {
	b.limitSet = true
	b.limit = n
	return b
}

func (b *surqlBuilder) Start(n int) Builder {
	b.startSet = true
	b.start = n
	return b
}

func (b *surqlBuilder) Fetch(fields ...string) Builder {
	b.fetch = append(b.fetch, fields...)
	return b
}

func (b *surqlBuilder) Vars() map[string]any {
	return b.vars
}

func (b *surqlBuilder) from() string {
	if b.target != "" {
		return b.target
	}
	return b.table
}

func (b *surqlBuilder) BuildSelect() string {
	clauses := []*query.Clause{
		{Type: query.SELECT, Value: []any{b.selectCols}},
		{Type: query.FROM, Value: []any{b.from()}},
		{Type: query.WHERE, Value: []any{b.conds}},
	}
	if len(b.groupBy) > 0 {
		clauses = append(clauses, &query.Clause{Type: query.GROUP, Value: []any{b.groupBy}})
	}
	if len(b.orderBy) > 0 {
		clauses = append(clauses, &query.Clause{Type: query.ORDER, Value: []any{b.orderBy}})
	}
	if b.limitSet {
		clauses = append(clauses, &query.Clause{Type: query.LIMIT, Value: []any{b.limit}})
	}
	if b.startSet {
		clauses = append(clauses, &query.Clause{Type: query.START, Value: []any{b.start}})
	}
	if len(b.fetch) > 0 {
		clauses = append(clauses, &query.Clause{Type: query.FETCH, Value: []any{b.fetch}})
	}

	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if s := c.Build(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (b *surqlBuilder) BuildCreate(data any) string {
	b.vars["data"] = data
	return "CREATE " + b.from() + " CONTENT $data"
}

func (b *surqlBuilder) BuildUpdate(data any, merge bool) string {
	b.vars["data"] = data
	verb := "CONTENT"
	if merge {
		verb = "MERGE"
	}
	stmt := "UPDATE " + b.from() + " " + verb + " $data"
	if len(b.conds) > 0 {
		stmt += " WHERE " + strings.Join(b.conds, " AND ")
	}
	return stmt
}

func (b *surqlBuilder) BuildDelete() string {
	stmt := "DELETE " + b.from()
	if len(b.conds) > 0 {
		stmt += " WHERE " + strings.Join(b.conds, " AND ")
	}
	return stmt
}
