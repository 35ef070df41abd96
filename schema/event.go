package schema

import "fmt"

// Event describes a reactive rule on a table: a condition and the expression
// to run when it fires. Both triggers and table constraints compile down to
// this primitive; the live database reports them uniformly under one map.
type Event struct {
	Name string
	When string
	Then string
}

// Constraint builds an event that rejects a create or update when the given
// predicate is false.
func Constraint(name, predicate string) *Event {
	return &Event{
		Name: name,
		When: `$event = "CREATE" OR $event = "UPDATE"`,
		Then: fmt.Sprintf("IF !(%s) { THROW 'constraint %s violated' }", predicate, name),
	}
}

// Trigger builds an event firing on the given event kind ("CREATE", "UPDATE"
// or "DELETE") with an arbitrary side effect.
func Trigger(name, event, then string) *Event {
	return &Event{
		Name: name,
		When: fmt.Sprintf("$event = %q", event),
		Then: then,
	}
}
