package surql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvids/surgo/schema"
)

func TestParseField(t *testing.T) {
	t.Run("RequiredScalar", func(t *testing.T) {
		path, f, err := ParseField("DEFINE FIELD email ON users TYPE string ASSERT $value != NONE")
		require.NoError(t, err)
		assert.Equal(t, "email", path)
		assert.Equal(t, "email", f.Name)
		assert.Equal(t, schema.TypeString, f.Type)
		assert.True(t, f.Required)
		assert.Empty(t, f.Asserts)
	})

	t.Run("OptionUnwraps", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD nickname ON users TYPE option<string>")
		require.NoError(t, err)
		assert.Equal(t, schema.TypeString, f.Type)
		assert.False(t, f.Required)
	})

	t.Run("GuardsAccepted", func(t *testing.T) {
		_, f1, err := ParseField("DEFINE FIELD IF NOT EXISTS age ON users TYPE number")
		require.NoError(t, err)
		_, f2, err := ParseField("DEFINE FIELD OVERWRITE age ON TABLE users TYPE number")
		require.NoError(t, err)
		assert.Equal(t, f1.Type, f2.Type)
	})

	t.Run("StructuredAssertsFold", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD email ON users TYPE string" +
			" ASSERT $value != NONE" +
			" ASSERT string::len($value) >= 5" +
			" ASSERT string::len($value) <= 120" +
			" ASSERT $value = /.+@.+/")
		require.NoError(t, err)
		assert.True(t, f.Required)
		require.NotNil(t, f.MinLen)
		assert.Equal(t, 5, *f.MinLen)
		require.NotNil(t, f.MaxLen)
		assert.Equal(t, 120, *f.MaxLen)
		assert.Equal(t, ".+@.+", f.Pattern)
		assert.Empty(t, f.Asserts)
	})

	t.Run("UnknownAssertKept", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD age ON users TYPE number ASSERT $value % 2 = 0")
		require.NoError(t, err)
		assert.Equal(t, []string{"$value % 2 = 0"}, f.Asserts)
	})

	t.Run("Enum", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD role ON users TYPE string ASSERT $value INSIDE ['admin', 'viewer']")
		require.NoError(t, err)
		assert.Equal(t, []string{"admin", "viewer"}, f.Enum)
	})

	t.Run("RangeAsserts", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD age ON users TYPE number ASSERT $value >= 18 ASSERT $value <= 130")
		require.NoError(t, err)
		require.NotNil(t, f.Min)
		assert.Equal(t, 18.0, *f.Min)
		require.NotNil(t, f.Max)
		assert.Equal(t, 130.0, *f.Max)
	})

	t.Run("Reference", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD author ON posts TYPE record<users> REFERENCE ON DELETE CASCADE ASSERT $value != NONE")
		require.NoError(t, err)
		assert.Equal(t, schema.TypeRecord, f.Type)
		assert.Equal(t, "users", f.Reference)
		assert.Equal(t, schema.OnDeleteCascade, f.OnDelete)
	})

	t.Run("ReferenceThen", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD author ON posts TYPE record<users> REFERENCE ON DELETE THEN UPDATE $this SET author = NONE")
		require.NoError(t, err)
		assert.Equal(t, schema.OnDeleteThen, f.OnDelete)
		assert.Equal(t, "UPDATE $this SET author = NONE", f.OnDeleteThen)
	})

	t.Run("ArrayElement", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD tags ON posts TYPE array<record<tags>>")
		require.NoError(t, err)
		assert.Equal(t, schema.TypeArray, f.Type)
		require.NotNil(t, f.Elem)
		assert.Equal(t, schema.TypeRecord, f.Elem.Type)
		assert.Equal(t, "tags", f.Elem.Reference)
	})

	t.Run("DefaultAlwaysAndValue", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD updated_at ON users TYPE datetime DEFAULT ALWAYS time::now() VALUE time::now() READONLY")
		require.NoError(t, err)
		assert.True(t, f.DefaultAlways)
		assert.Equal(t, "time::now()", f.Default)
		assert.Equal(t, "time::now()", f.Value)
		assert.True(t, f.Readonly)
	})

	t.Run("Permissions", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD salary ON users TYPE number PERMISSIONS FOR select WHERE $auth.admin = true")
		require.NoError(t, err)
		require.NotNil(t, f.Permissions)
		assert.Equal(t, "$auth.admin = true", f.Permissions.Select)
	})

	t.Run("NestedPathName", func(t *testing.T) {
		path, f, err := ParseField("DEFINE FIELD address.city ON users TYPE string")
		require.NoError(t, err)
		assert.Equal(t, "address.city", path)
		assert.Equal(t, "city", f.Name)
	})

	t.Run("NotAField", func(t *testing.T) {
		_, _, err := ParseField("DEFINE INDEX x ON users FIELDS a")
		assert.Error(t, err)
	})

	t.Run("KeywordInsideStringStaysPut", func(t *testing.T) {
		_, f, err := ParseField("DEFINE FIELD note ON users TYPE string DEFAULT 'TYPE DEFAULT VALUE' COMMENT 'free text'")
		require.NoError(t, err)
		assert.Equal(t, "'TYPE DEFAULT VALUE'", f.Default)
		assert.Equal(t, "free text", f.Comment)
	})
}

func TestParseIndex(t *testing.T) {
	t.Run("Unique", func(t *testing.T) {
		idx, err := ParseIndex("DEFINE INDEX users_email_unique ON users FIELDS email UNIQUE")
		require.NoError(t, err)
		assert.Equal(t, "users_email_unique", idx.Name)
		assert.Equal(t, []string{"email"}, idx.Fields)
		assert.True(t, idx.Unique)
	})

	t.Run("ColumnsAlias", func(t *testing.T) {
		idx, err := ParseIndex("DEFINE INDEX i ON t COLUMNS a, b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, idx.Fields)
	})

	t.Run("Search", func(t *testing.T) {
		idx, err := ParseIndex("DEFINE INDEX posts_body_search ON posts FIELDS body SEARCH ANALYZER ascii BM25(1.2, 0.75) HIGHLIGHTS")
		require.NoError(t, err)
		require.NotNil(t, idx.Search)
		assert.Equal(t, "ascii", idx.Search.Analyzer)
		require.NotNil(t, idx.Search.K1)
		assert.Equal(t, 1.2, *idx.Search.K1)
		require.NotNil(t, idx.Search.B)
		assert.Equal(t, 0.75, *idx.Search.B)
		assert.True(t, idx.Search.Highlights)
	})
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("DEFINE EVENT audit ON users WHEN $event = 'UPDATE' THEN { CREATE audit_log CONTENT { record: $value.id } }")
	require.NoError(t, err)
	assert.Equal(t, "audit", ev.Name)
	assert.Equal(t, "$event = 'UPDATE'", ev.When)
	assert.Equal(t, "CREATE audit_log CONTENT { record: $value.id }", ev.Then)
}

func TestParseTable(t *testing.T) {
	t.Run("Attributes", func(t *testing.T) {
		tbl, err := ParseTable("DEFINE TABLE users SCHEMAFULL PERMISSIONS FOR select WHERE true COMMENT 'managed'")
		require.NoError(t, err)
		assert.Equal(t, "users", tbl.Name)
		assert.True(t, tbl.Schemafull)
		require.NotNil(t, tbl.Permissions)
		assert.Equal(t, "true", tbl.Permissions.Select)
		assert.Equal(t, "managed", tbl.Comment)
	})

	t.Run("BlanketPermissions", func(t *testing.T) {
		tbl, err := ParseTable("DEFINE TABLE users SCHEMALESS PERMISSIONS NONE")
		require.NoError(t, err)
		assert.False(t, tbl.Schemafull)
		require.NotNil(t, tbl.Permissions)
		assert.True(t, tbl.Permissions.None)
	})
}

func TestParsePermissionsGroups(t *testing.T) {
	p := parsePermissions("FOR select, create WHERE $auth.id != NONE FOR update WHERE $auth.id = id")
	require.NotNil(t, p)
	assert.Equal(t, "$auth.id != NONE", p.Select)
	assert.Equal(t, "$auth.id != NONE", p.Create)
	assert.Equal(t, "$auth.id = id", p.Update)
	assert.Empty(t, p.Delete)
}

func TestRoundTrip(t *testing.T) {
	// A compiled field parsed back yields a descriptor that compiles to the
	// same statement.
	tbl := &schema.Table{Name: "users", Fields: []*schema.Field{{
		Name:     "email",
		Type:     schema.TypeString,
		Required: true,
		MinLen:   schema.IntPtr(5),
		Pattern:  `.+@.+`,
	}}}
	fs := FieldStatements(tbl)
	require.Len(t, fs, 1)

	path, parsed, err := ParseField(fs[0].Create)
	require.NoError(t, err)

	recompiled := FieldStatements(&schema.Table{Name: "users", Fields: []*schema.Field{parsed}})
	require.Len(t, recompiled, 1)
	assert.Equal(t, path, recompiled[0].Path)
	assert.True(t, Equivalent(fs[0].Create, recompiled[0].Create))
}
