package schema

// FieldType is the closed set of types a field can declare.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeBool
	TypeDatetime
	TypeObject
	TypeArray
	TypeRecord
)

// String returns the SurrealQL type keyword for the field type.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeDatetime:
		return "datetime"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeRecord:
		return "record"
	}
	return "any"
}

// OnDelete is the delete policy attached to a record reference.
type OnDelete int

const (
	// OnDeleteNone means no policy clause is emitted.
	OnDeleteNone OnDelete = iota
	OnDeleteReject
	OnDeleteCascade
	OnDeleteIgnore
	OnDeleteUnset
	// OnDeleteThen runs a custom expression; see Field.OnDeleteThen.
	OnDeleteThen
)

// String returns the SurrealQL keyword for the policy.
func (p OnDelete) String() string {
	switch p {
	case OnDeleteReject:
		return "REJECT"
	case OnDeleteCascade:
		return "CASCADE"
	case OnDeleteIgnore:
		return "IGNORE"
	case OnDeleteUnset:
		return "UNSET"
	case OnDeleteThen:
		return "THEN"
	}
	return ""
}

// Field describes a single table field. Fields are value objects: they are
// built once (from Go struct tags or by introspection) and never mutated
// afterwards. A changed desired state is a new descriptor.
type Field struct {
	Name     string
	Type     FieldType
	Required bool

	// Default is raw SurrealQL source text, either a literal or an
	// expression. DefaultAlways re-applies the default on every write
	// instead of only on create.
	Default       string
	DefaultAlways bool

	// Value is a computed expression applied on every write.
	Value string

	Readonly    bool
	Permissions *Permissions

	// Reference names the target table for record fields. OnDeleteThen
	// holds the custom expression when OnDelete is OnDeleteThen.
	Reference    string
	OnDelete     OnDelete
	OnDeleteThen string

	// Asserts are raw predicate expressions over $value, emitted in order.
	Asserts []string

	// Structured constraint limits; each compiles to an assertion.
	MinLen, MaxLen *int
	Min, Max       *float64
	Pattern        string

	// Enum restricts the field to a literal set. Compiled last, as its own
	// assertion clause.
	Enum []string

	// Elem describes the element shape of an array field.
	Elem *Field

	// Fields holds nested properties of an object field, in declared order.
	Fields []*Field

	Comment string
}

// Field returns the nested property with the given name, or nil.
func (f *Field) Field(name string) *Field {
	for _, c := range f.Fields {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IntPtr and FloatPtr are small helpers for the structured limit fields.
func IntPtr(n int) *int           { return &n }
func FloatPtr(n float64) *float64 { return &n }
