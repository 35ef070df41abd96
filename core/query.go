package core

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/corvids/surgo/schema"
	"github.com/corvids/surgo/validator"
)

type queryKind int

const (
	kindRead queryKind = iota
	kindWrite
)

// Query is the chainable statement builder and executor.
type Query struct {
	client  *Client
	builder Builder
	ctx     context.Context
	table   *schema.Table
	model   any
	err     error

	rawSurql string
	rawVars  map[string]any

	// Assembled just before execution; middleware read these.
	surql string
	vars  map[string]any
	kind  queryKind

	fields map[string]any
}

func newQuery(c *Client) *Query {
	return &Query{
		client:  c,
		builder: NewBuilder(),
		ctx:     context.Background(),
	}
}

// Model sets the target model and derives its table descriptor.
func (q *Query) Model(value any) *Query {
	t, err := schema.FromStruct(value)
	if err != nil {
		q.err = fmt.Errorf("%w: %v", ErrInvalidModel, err)
		return q
	}
	q.table = t
	q.model = value
	q.builder.SetTable(t.Name)
	return q
}

// Table sets the target table name.
func (q *Query) Table(name string) *Query {
	q.builder.SetTable(name)
	return q
}

// Record points the query at a single record id, e.g. "users:tobie".
func (q *Query) Record(id string) *Query {
	if sb, ok := q.builder.(*surqlBuilder); ok {
		sb.SetTarget(id)
	}
	return q
}

// Where adds an AND condition; "?" markers bind as query parameters.
func (q *Query) Where(cond string, args ...any) *Query {
	q.builder.Where(cond, args...)
	return q
}

// OrWhere adds an OR condition.
func (q *Query) OrWhere(cond string, args ...any) *Query {
	q.builder.OrWhere(cond, args...)
	return q
}

// WhereIn adds an INSIDE condition.
func (q *Query) WhereIn(field string, values any) *Query {
	q.builder.WhereIn(field, values)
	return q
}

// Select sets the projection.
func (q *Query) Select(fields ...string) *Query {
	q.builder.Select(fields...)
	return q
}

// GroupBy adds GROUP BY fields.
func (q *Query) GroupBy(fields ...string) *Query {
	q.builder.GroupBy(fields...)
	return q
}

// OrderBy adds ORDER BY terms.
func (q *Query) OrderBy(fields ...string) *Query {
	q.builder.OrderBy(fields...)
	return q
}

// Limit caps the result size.
func (q *Query) Limit(n int) *Query {
	q.builder.Limit(n)
	return q
}

// Start skips the first n records.
func (q *Query) Start(n int) *Query {
	q.builder.Start(n)
	return q
}

// Fetch resolves record links in place of their ids.
func (q *Query) Fetch(fields ...string) *Query {
	q.builder.Fetch(fields...)
	return q
}

// WithContext sets the execution context.
func (q *Query) WithContext(ctx context.Context) *Query {
	q.ctx = ctx
	return q
}

// WithFields attaches structured fields to this query's log lines.
func (q *Query) WithFields(fields map[string]any) *Query {
	if q.fields == nil {
		q.fields = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		q.fields[k] = v
	}
	return q
}

// Raw sets a raw statement with bound variables.
func (q *Query) Raw(surql string, vars map[string]any) *Query {
	q.rawSurql = surql
	q.rawVars = vars
	return q
}

// SurQL returns the statement assembled for execution. Valid inside
// middleware.
func (q *Query) SurQL() string { return q.surql }

// Vars returns the bound parameters. Valid inside middleware.
func (q *Query) Vars() map[string]any { return q.vars }

// Readonly reports whether the query is a read. Cache middleware only act
// on reads.
func (q *Query) Readonly() bool { return q.kind == kindRead }

// First retrieves the first matching record into dest.
func (q *Query) First(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	q.builder.Limit(1)
	res, err := q.run(kindRead, q.builder.BuildSelect(), q.builder.Vars(), dest)
	if err != nil {
		return err
	}
	if err := decodeFirst(res.Raw, dest); err != nil {
		return err
	}
	if h, ok := dest.(AfterFinder); ok {
		return h.AfterFind()
	}
	return nil
}

// Find retrieves all matching records into dest (pointer to slice).
func (q *Query) Find(dest any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	res, err := q.run(kindRead, q.builder.BuildSelect(), q.builder.Vars(), dest)
	if err != nil {
		return err
	}
	if err := decodeAll(res.Raw, dest); err != nil {
		return err
	}
	return runAfterFind(dest)
}

// Count returns the number of matching records.
func (q *Query) Count() (int64, error) {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return 0, q.err
	}
	q.builder.Select("count() AS total")
	stmt := q.builder.BuildSelect() + " GROUP ALL"
	res, err := q.run(kindRead, stmt, q.builder.Vars(), nil)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(res.Raw, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// Create inserts the value as a new record and refreshes it from the
// database response, including its assigned id.
func (q *Query) Create(value any) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	if q.table == nil {
		q.Model(value)
		if q.err != nil {
			return q.err
		}
	}
	if err := validator.ValidateStruct(q.table, value); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if h, ok := value.(BeforeCreator); ok {
		if err := h.BeforeCreate(); err != nil {
			return err
		}
	}

	res, err := q.run(kindWrite, q.builder.BuildCreate(value), q.builder.Vars(), nil)
	if err != nil {
		return err
	}
	if err := decodeFirst(res.Raw, value); err != nil && err != ErrRecordNotFound {
		return err
	}
	if h, ok := value.(AfterCreator); ok {
		return h.AfterCreate(recordID(res.Raw))
	}
	return nil
}

// Update merges the given data into all matching records.
func (q *Query) Update(data any) error {
	return q.update(data, true)
}

// Replace replaces the content of all matching records.
func (q *Query) Replace(data any) error {
	return q.update(data, false)
}

func (q *Query) update(data any, merge bool) error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	if h, ok := data.(BeforeUpdater); ok {
		if err := h.BeforeUpdate(); err != nil {
			return err
		}
	}
	_, err := q.run(kindWrite, q.builder.BuildUpdate(data, merge), q.builder.Vars(), nil)
	if err != nil {
		return err
	}
	if h, ok := data.(AfterUpdater); ok {
		return h.AfterUpdate()
	}
	return nil
}

// Delete removes all matching records. When the query was given a model via
// Model, its delete hooks run around the statement.
func (q *Query) Delete() error {
	defer PutBuilder(q.builder)
	if q.err != nil {
		return q.err
	}
	if h, ok := q.model.(BeforeDeleter); ok {
		if err := h.BeforeDelete(); err != nil {
			return err
		}
	}
	_, err := q.run(kindWrite, q.builder.BuildDelete(), q.builder.Vars(), nil)
	if err != nil {
		return err
	}
	if h, ok := q.model.(AfterDeleter); ok {
		return h.AfterDelete()
	}
	return nil
}

// Scan executes a raw query and decodes the first statement result.
func (q *Query) Scan(dest any) error {
	if q.rawSurql == "" {
		return ErrInvalidStatement
	}
	res, err := q.run(kindRead, q.rawSurql, q.rawVars, dest)
	if err != nil {
		return err
	}
	return json.Unmarshal(res.Raw, dest)
}

// run assembles the statement and pushes it through the middleware chain.
func (q *Query) run(kind queryKind, surql string, vars map[string]any, dest any) (*Result, error) {
	q.kind = kind
	q.surql = surql
	q.vars = vars

	exec := func(ctx context.Context, query *Query) (*Result, error) {
		start := time.Now()
		res, err := q.client.conn.Query(ctx, query.surql, query.vars)
		log := q.client.logger
		if len(q.fields) > 0 {
			log = log.WithFields(q.fields)
		}
		log.SurQL(query.surql, time.Since(start), query.vars)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return &Result{}, nil
		}
		first := res[0]
		if rerr := first.Err(); rerr != nil {
			return nil, rerr
		}
		return &Result{Raw: first.Result, Data: dest}, nil
	}

	chain := exec
	for i := len(q.client.middlewares) - 1; i >= 0; i-- {
		m := q.client.middlewares[i]
		next := chain
		chain = func(ctx context.Context, query *Query) (*Result, error) {
			return m.Process(ctx, query, next)
		}
	}
	return chain(q.ctx, q)
}

func decodeFirst(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return ErrRecordNotFound
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		// A single-record response is not wrapped in an array.
		return json.Unmarshal(raw, dest)
	}
	if len(items) == 0 {
		return ErrRecordNotFound
	}
	return json.Unmarshal(items[0], dest)
}

func decodeAll(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func runAfterFind(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return nil
	}
	slice := rv.Elem()
	for i := 0; i < slice.Len(); i++ {
		item := slice.Index(i).Addr().Interface()
		if h, ok := item.(AfterFinder); ok {
			if err := h.AfterFind(); err != nil {
				return err
			}
		}
	}
	return nil
}

func recordID(raw json.RawMessage) string {
	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return items[0].ID
	}
	return ""
}
