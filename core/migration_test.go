package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvids/surgo/rpc"
	"github.com/corvids/surgo/schema"
	"github.com/corvids/surgo/surql"
)

func usersTable() *schema.Table {
	return &schema.Table{
		Name:       "users",
		Schemafull: true,
		Fields: []*schema.Field{
			{Name: "email", Type: schema.TypeString, Required: true, MinLen: schema.IntPtr(5)},
			{Name: "age", Type: schema.TypeNumber},
		},
		Indexes: []*schema.Index{
			{Name: "users_email_unique", Fields: []string{"email"}, Unique: true},
		},
		Events: []*schema.Event{
			{Name: "audit", When: "$event = 'UPDATE'", Then: "RETURN 1"},
		},
	}
}

// structurePayload builds the structured introspection response a live table
// would report for the given desired state: definition text without guards.
func structurePayload(t *schema.Table) json.RawMessage {
	type object struct {
		Name string `json:"name"`
		SQL  string `json:"sql"`
	}
	payload := struct {
		Schemafull  bool     `json:"schemafull"`
		Comment     string   `json:"comment"`
		Permissions string   `json:"permissions"`
		Fields      []object `json:"fields"`
		Indexes     []object `json:"indexes"`
		Events      []object `json:"events"`
	}{
		Schemafull:  t.Schemafull,
		Comment:     t.Comment,
		Permissions: "NONE",
	}
	for _, fs := range surql.FieldStatements(t) {
		payload.Fields = append(payload.Fields, object{Name: fs.Path, SQL: unguarded(fs.Create)})
	}
	for _, idx := range t.Indexes {
		payload.Indexes = append(payload.Indexes, object{Name: idx.Name, SQL: unguarded(surql.IndexStatement(t.Name, idx, false))})
	}
	for _, ev := range t.Events {
		payload.Events = append(payload.Events, object{Name: ev.Name, SQL: unguarded(surql.EventStatement(t.Name, ev, false))})
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func unguarded(stmt string) string {
	return strings.Replace(stmt, "IF NOT EXISTS ", "", 1)
}

func emptyDB() *fakeConn {
	return &fakeConn{handler: func(stmt string, vars map[string]any) ([]rpc.Response, error) {
		if strings.HasPrefix(stmt, "INFO FOR DB") {
			return ok(`{"tables":{}}`), nil
		}
		return errResp("table does not exist"), nil
	}}
}

func liveDB(tables ...*schema.Table) *fakeConn {
	return &fakeConn{handler: func(stmt string, vars map[string]any) ([]rpc.Response, error) {
		if strings.HasPrefix(stmt, "INFO FOR DB") {
			defs := map[string]string{}
			for _, t := range tables {
				defs[t.Name] = unguarded(surql.TableStatement(t, false))
			}
			raw, _ := json.Marshal(map[string]any{"tables": defs})
			return []rpc.Response{{Status: "OK", Result: raw}}, nil
		}
		for _, t := range tables {
			if strings.HasPrefix(stmt, "INFO FOR TABLE "+t.Name+" STRUCTURE") {
				return []rpc.Response{{Status: "OK", Result: structurePayload(t)}}, nil
			}
		}
		return errResp("table does not exist"), nil
	}}
}

func TestPlanFreshDatabase(t *testing.T) {
	client := newTestClient(emptyDB())
	s := schema.New(usersTable())

	plan, err := client.Migrator().Plan(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, plan, 5)

	assert.True(t, strings.HasPrefix(plan[0], "DEFINE TABLE IF NOT EXISTS users"))
	assert.True(t, strings.HasPrefix(plan[1], "DEFINE FIELD IF NOT EXISTS email"))
	assert.True(t, strings.HasPrefix(plan[2], "DEFINE FIELD IF NOT EXISTS age"))
	assert.True(t, strings.HasPrefix(plan[3], "DEFINE INDEX IF NOT EXISTS users_email_unique"))
	assert.True(t, strings.HasPrefix(plan[4], "DEFINE EVENT IF NOT EXISTS audit"))
}

func TestPlanIdempotent(t *testing.T) {
	// Planning against a database that already matches yields nothing.
	client := newTestClient(liveDB(usersTable()))
	s := schema.New(usersTable())

	plan, err := client.Migrator().Plan(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanMinimalDiff(t *testing.T) {
	t.Run("ChangedField", func(t *testing.T) {
		client := newTestClient(liveDB(usersTable()))

		desired := usersTable()
		desired.Field("age").Default = "0"
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, strings.HasPrefix(plan[0], "DEFINE FIELD OVERWRITE age"))
		assert.Contains(t, plan[0], "DEFAULT 0")
	})

	t.Run("NewField", func(t *testing.T) {
		client := newTestClient(liveDB(usersTable()))

		desired := usersTable()
		desired.Fields = append(desired.Fields, &schema.Field{Name: "bio", Type: schema.TypeString})
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, strings.HasPrefix(plan[0], "DEFINE FIELD IF NOT EXISTS bio"))
	})

	t.Run("ChangedSearchIndex", func(t *testing.T) {
		live := usersTable()
		live.Indexes = append(live.Indexes, &schema.Index{
			Name:   "users_bio_search",
			Fields: []string{"bio"},
			Search: &schema.Search{Analyzer: "ascii"},
		})
		client := newTestClient(liveDB(live))

		desired := usersTable()
		desired.Indexes = append(desired.Indexes, &schema.Index{
			Name:   "users_bio_search",
			Fields: []string{"bio"},
			Search: &schema.Search{Analyzer: "ascii", Highlights: true},
		})
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, strings.HasPrefix(plan[0], "DEFINE INDEX OVERWRITE users_bio_search"))
		assert.Contains(t, plan[0], "HIGHLIGHTS")
	})

	t.Run("ChangedEvent", func(t *testing.T) {
		client := newTestClient(liveDB(usersTable()))

		desired := usersTable()
		desired.Events[0].Then = "RETURN 2"
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, strings.HasPrefix(plan[0], "DEFINE EVENT OVERWRITE audit"))
	})
}

func TestPlanTableAlter(t *testing.T) {
	t.Run("AggregatesAspects", func(t *testing.T) {
		live := usersTable()
		live.Schemafull = false
		live.Comment = "old"
		client := newTestClient(liveDB(live))

		desired := usersTable()
		desired.Comment = "managed accounts"
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, "ALTER TABLE users SCHEMAFULL COMMENT 'managed accounts'", plan[0])
	})

	t.Run("UnmanagedAttributesIgnored", func(t *testing.T) {
		// A live comment with no desired comment is left alone, as are live
		// permissions when the schema declares none.
		live := usersTable()
		live.Comment = "left alone"
		client := newTestClient(liveDB(live))

		plan, err := client.Migrator().Plan(context.Background(), schema.New(usersTable()))
		require.NoError(t, err)
		assert.Empty(t, plan)
	})

	t.Run("AlterComesLast", func(t *testing.T) {
		live := usersTable()
		live.Schemafull = false
		client := newTestClient(liveDB(live))

		desired := usersTable()
		desired.Fields = append(desired.Fields, &schema.Field{Name: "bio", Type: schema.TypeString})
		s := schema.New(desired)

		plan, err := client.Migrator().Plan(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, plan, 2)
		assert.True(t, strings.HasPrefix(plan[0], "DEFINE FIELD"))
		assert.True(t, strings.HasPrefix(plan[1], "ALTER TABLE users"))
	})
}

func TestPlanNeverDestructive(t *testing.T) {
	// A live field absent from the schema must not produce any statement.
	live := usersTable()
	live.Fields = append(live.Fields, &schema.Field{Name: "legacy", Type: schema.TypeString})
	client := newTestClient(liveDB(live))

	plan, err := client.Migrator().Plan(context.Background(), schema.New(usersTable()))
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanDrop(t *testing.T) {
	live := usersTable()
	live.Fields = append(live.Fields, &schema.Field{Name: "legacy", Type: schema.TypeString})
	live.Indexes = append(live.Indexes, &schema.Index{Name: "users_legacy_idx", Fields: []string{"legacy"}})
	old := &schema.Table{Name: "old_stuff", Schemafull: true}
	client := newTestClient(liveDB(live, old))

	drops, err := client.Migrator().PlanDrop(context.Background(), schema.New(usersTable()))
	require.NoError(t, err)
	require.Len(t, drops, 3)
	assert.Equal(t, "REMOVE FIELD legacy ON users", drops[0])
	assert.Equal(t, "REMOVE INDEX users_legacy_idx ON users", drops[1])
	assert.Equal(t, "REMOVE TABLE old_stuff", drops[2])

	// PlanDrop only reports; nothing was executed.
	for _, q := range client.conn.(*fakeConn).recorded() {
		assert.False(t, strings.HasPrefix(q, "REMOVE"), "executed removal: %s", q)
	}
}

func TestApply(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		conn := emptyDB()
		client := newTestClient(conn)
		changed, err := client.Migrator().Apply(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, conn.recorded())
	})

	t.Run("BatchesOneRoundTrip", func(t *testing.T) {
		conn := &fakeConn{handler: func(stmt string, vars map[string]any) ([]rpc.Response, error) {
			return ok(`null`), nil
		}}
		client := newTestClient(conn)

		changed, err := client.Migrator().Apply(context.Background(), []string{
			"DEFINE TABLE IF NOT EXISTS users SCHEMAFULL",
			"DEFINE FIELD IF NOT EXISTS email ON users TYPE string",
		})
		require.NoError(t, err)
		assert.True(t, changed)

		queries := conn.recorded()
		require.Len(t, queries, 1)
		assert.Equal(t,
			"DEFINE TABLE IF NOT EXISTS users SCHEMAFULL;\nDEFINE FIELD IF NOT EXISTS email ON users TYPE string;",
			queries[0])
	})

	t.Run("StatementFailureSurfaces", func(t *testing.T) {
		conn := &fakeConn{handler: func(stmt string, vars map[string]any) ([]rpc.Response, error) {
			return errResp("bad statement"), nil
		}}
		client := newTestClient(conn)

		_, err := client.Migrator().Apply(context.Background(), []string{"DEFINE TABLE x"})
		assert.ErrorContains(t, err, "bad statement")
	})
}

func TestMigrate(t *testing.T) {
	conn := emptyDB()
	client := newTestClient(conn)

	changed, err := client.Migrator().Migrate(context.Background(), schema.New(usersTable()))
	require.NoError(t, err)
	assert.True(t, changed)

	queries := conn.recorded()
	last := queries[len(queries)-1]
	assert.Contains(t, last, "DEFINE TABLE IF NOT EXISTS users")
	assert.Contains(t, last, "DEFINE EVENT IF NOT EXISTS audit")
}

func TestIntrospectTablePlainFallback(t *testing.T) {
	// Older servers have no STRUCTURE variant; the raw-text call plus the
	// database listing must carry the same information.
	users := usersTable()
	conn := &fakeConn{handler: func(stmt string, vars map[string]any) ([]rpc.Response, error) {
		switch {
		case strings.HasPrefix(stmt, "INFO FOR TABLE users STRUCTURE"):
			return errResp("unknown STRUCTURE"), nil
		case strings.HasPrefix(stmt, "INFO FOR TABLE users"):
			fields := map[string]string{}
			for _, fs := range surql.FieldStatements(users) {
				fields[fs.Path] = unguarded(fs.Create)
			}
			raw, _ := json.Marshal(map[string]any{
				"fields":  fields,
				"indexes": map[string]string{},
				"events":  map[string]string{},
			})
			return []rpc.Response{{Status: "OK", Result: raw}}, nil
		case strings.HasPrefix(stmt, "INFO FOR DB"):
			return ok(`{"tables":{"users":"DEFINE TABLE users SCHEMAFULL COMMENT 'from listing'"}}`), nil
		}
		return errResp("unexpected"), nil
	}}
	client := newTestClient(conn)

	info := client.Migrator().IntrospectTable(context.Background(), "users")
	assert.True(t, info.Exists)
	assert.Len(t, info.Fields, 2)
	require.NotNil(t, info.Attrs)
	assert.True(t, info.Attrs.Schemafull)
	assert.Equal(t, "from listing", info.Attrs.Comment)
}

func TestIntrospectSchema(t *testing.T) {
	client := newTestClient(liveDB(usersTable()))

	live, err := client.Migrator().Introspect(context.Background())
	require.NoError(t, err)
	require.Len(t, live.Tables, 1)

	users := live.Tables[0]
	assert.Equal(t, "users", users.Name)
	assert.True(t, users.Schemafull)
	require.Len(t, users.Fields, 2)
	require.Len(t, users.Indexes, 1)
	assert.True(t, users.Indexes[0].Unique)
	require.Len(t, users.Events, 1)

	// The reverse-engineered schema plans clean against the same database.
	plan, err := client.Migrator().Plan(context.Background(), live)
	require.NoError(t, err)
	assert.Empty(t, plan)
}
