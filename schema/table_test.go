package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		s := New(
			&Table{Name: "users", Fields: []*Field{
				{Name: "email", Type: TypeString, Required: true},
			}},
			&Table{Name: "posts", Fields: []*Field{
				{Name: "author", Type: TypeRecord, Reference: "users"},
			}},
		)
		assert.NoError(t, s.Validate())
	})

	t.Run("DuplicateField", func(t *testing.T) {
		s := New(&Table{Name: "users", Fields: []*Field{
			{Name: "email", Type: TypeString},
			{Name: "email", Type: TypeString},
		}})
		assert.ErrorContains(t, s.Validate(), "duplicate field")
	})

	t.Run("DuplicateNestedProperty", func(t *testing.T) {
		s := New(&Table{Name: "users", Fields: []*Field{
			{Name: "address", Type: TypeObject, Fields: []*Field{
				{Name: "city", Type: TypeString},
				{Name: "city", Type: TypeString},
			}},
		}})
		assert.ErrorContains(t, s.Validate(), "duplicate property")
	})

	t.Run("SeparatorInName", func(t *testing.T) {
		s := New(&Table{Name: "users", Fields: []*Field{
			{Name: "address.city", Type: TypeString},
		}})
		assert.ErrorContains(t, s.Validate(), "path separators")
	})

	t.Run("UnknownReference", func(t *testing.T) {
		s := New(&Table{Name: "posts", Fields: []*Field{
			{Name: "author", Type: TypeRecord, Reference: "users"},
		}})
		assert.ErrorContains(t, s.Validate(), "unknown table")
	})

	t.Run("MissingReferenceTarget", func(t *testing.T) {
		s := New(&Table{Name: "posts", Fields: []*Field{
			{Name: "author", Type: TypeRecord},
		}})
		assert.ErrorContains(t, s.Validate(), "no target table")
	})

	t.Run("ArrayElementReference", func(t *testing.T) {
		s := New(
			&Table{Name: "tags"},
			&Table{Name: "posts", Fields: []*Field{
				{Name: "tags", Type: TypeArray, Elem: &Field{Type: TypeRecord, Reference: "tags"}},
			}},
		)
		assert.NoError(t, s.Validate())
	})

	t.Run("DescriptorCycle", func(t *testing.T) {
		f := &Field{Name: "a", Type: TypeObject}
		f.Fields = []*Field{f}
		s := New(&Table{Name: "users", Fields: []*Field{f}})
		assert.ErrorContains(t, s.Validate(), "cycle")
	})
}

func TestPermissionsEqual(t *testing.T) {
	assert.True(t, AllowFull().Equal(AllowFull()))
	assert.False(t, AllowFull().Equal(DenyAll()))

	// A blanket grant never equals a per-operation map, even when both allow
	// everything in effect.
	assert.False(t, AllowFull().Equal(&Permissions{
		Select: "true", Create: "true", Update: "true", Delete: "true",
	}))

	assert.True(t, AllowFull().Blanket())
	assert.True(t, DenyAll().Blanket())
	assert.False(t, (&Permissions{Select: "true"}).Blanket())
	assert.False(t, (*Permissions)(nil).Blanket())

	a := &Permissions{Select: "true"}
	b := &Permissions{Select: "true"}
	c := &Permissions{Select: "true", Delete: "false"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	var nilPerms *Permissions
	assert.True(t, nilPerms.Equal(nil))
	assert.False(t, nilPerms.Equal(a))
}

func TestConstraintAndTrigger(t *testing.T) {
	ev := Constraint("adults_only", "$after.age < 18")
	require.Equal(t, "adults_only", ev.Name)
	assert.Contains(t, ev.When, "CREATE")
	assert.Contains(t, ev.Then, "THROW")

	tr := Trigger("touch", "UPDATE", "UPDATE $this SET touched = time::now()")
	assert.Equal(t, `$event = "UPDATE"`, tr.When)
}
