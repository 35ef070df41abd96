package schema

import (
	"fmt"
	"strings"
)

// Table describes one table: its mode, permissions, fields in declared
// order, indexes and events. Like Field it is an immutable value object.
type Table struct {
	Name       string
	Comment    string
	Schemafull bool

	Permissions *Permissions
	Fields      []*Field
	Indexes     []*Index
	Events      []*Event
}

// Field returns the top-level field with the given name, or nil.
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Schema is an ordered set of tables. Declaration order is preserved: the
// diff planner emits statements table by table in this order.
type Schema struct {
	Tables []*Table
}

// New builds a schema from tables, keeping their order.
func New(tables ...*Table) *Schema {
	return &Schema{Tables: tables}
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Validate checks cross-table invariants: every record reference must name a
// table in this schema, field names must be unique and separator-free, and
// nested descriptors must form a proper tree.
func (s *Schema) Validate() error {
	for _, t := range s.Tables {
		seen := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			if seen[f.Name] {
				return fmt.Errorf("table %s: duplicate field %s", t.Name, f.Name)
			}
			seen[f.Name] = true
			if err := s.validateField(t.Name, f, map[*Field]bool{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Schema) validateField(table string, f *Field, visited map[*Field]bool) error {
	if visited[f] {
		return fmt.Errorf("table %s: field %s: descriptor cycle", table, f.Name)
	}
	visited[f] = true
	defer delete(visited, f)

	if strings.ContainsAny(f.Name, ".*[]") {
		return fmt.Errorf("table %s: field name %q must not contain path separators", table, f.Name)
	}
	if f.Type == TypeRecord || (f.Elem != nil && f.Elem.Type == TypeRecord) {
		ref := f.Reference
		if f.Type == TypeArray && f.Elem != nil {
			ref = f.Elem.Reference
		}
		if ref == "" {
			return fmt.Errorf("table %s: record field %s declares no target table", table, f.Name)
		}
		if s.Table(ref) == nil {
			return fmt.Errorf("table %s: field %s references unknown table %s", table, f.Name, ref)
		}
	}
	if f.Elem != nil {
		if err := s.validateField(table, f.Elem, visited); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(f.Fields))
	for _, c := range f.Fields {
		if seen[c.Name] {
			return fmt.Errorf("table %s: field %s: duplicate property %s", table, f.Name, c.Name)
		}
		seen[c.Name] = true
		if err := s.validateField(table, c, visited); err != nil {
			return err
		}
	}
	return nil
}
