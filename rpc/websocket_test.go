package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer speaks just enough of the JSON-RPC protocol to exercise the
// client: it records methods and answers from a canned handler.
type testServer struct {
	*httptest.Server

	mu      sync.Mutex
	methods []string
	handle  func(method string, params []json.RawMessage) (any, *Error)
}

func newTestServer(t *testing.T, handle func(method string, params []json.RawMessage) (any, *Error)) *testServer {
	t.Helper()
	srv := &testServer{handle: handle}
	upgrader := websocket.Upgrader{}

	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			var req struct {
				ID     string            `json:"id"`
				Method string            `json:"method"`
				Params []json.RawMessage `json:"params"`
			}
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			srv.mu.Lock()
			srv.methods = append(srv.methods, req.Method)
			srv.mu.Unlock()

			result, rpcErr := srv.handle(req.Method, req.Params)
			raw, _ := json.Marshal(result)
			res := map[string]any{"id": req.ID, "result": json.RawMessage(raw)}
			if rpcErr != nil {
				res = map[string]any{"id": req.ID, "error": rpcErr}
			}
			if err := ws.WriteJSON(res); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *testServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.methods))
	copy(out, s.methods)
	return out
}

func TestDialSignsInAndSelects(t *testing.T) {
	srv := newTestServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		return nil, nil
	})

	conn, err := Dial(context.Background(), srv.wsURL(), Options{
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, []string{"signin", "use"}, srv.seen())
}

func TestQuery(t *testing.T) {
	srv := newTestServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		if method != "query" {
			return nil, nil
		}
		var stmt string
		require.NoError(t, json.Unmarshal(params[0], &stmt))
		assert.Equal(t, "SELECT * FROM users WHERE age > $min", stmt)

		var vars map[string]any
		require.NoError(t, json.Unmarshal(params[1], &vars))
		assert.Equal(t, float64(18), vars["min"])

		return []Response{
			{Status: "OK", Time: "12µs", Result: json.RawMessage(`[{"id":"users:1"}]`)},
		}, nil
	})

	conn, err := Dial(context.Background(), srv.wsURL(), Options{})
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Query(context.Background(), "SELECT * FROM users WHERE age > $min", map[string]any{"min": 18})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "OK", res[0].Status)
	assert.NoError(t, res[0].Err())
	assert.JSONEq(t, `[{"id":"users:1"}]`, string(res[0].Result))
}

func TestSendProtocolError(t *testing.T) {
	srv := newTestServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		return nil, &Error{Code: -32000, Message: "There was a problem with the database"}
	})

	conn, err := Dial(context.Background(), srv.wsURL(), Options{})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Send(context.Background(), "query", "bogus")
	require.Error(t, err)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestSendTimeout(t *testing.T) {
	upgrader := websocket.Upgrader{}
	// A server that never answers.
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer httpSrv.Close()

	conn, err := Dial(context.Background(), "ws"+strings.TrimPrefix(httpSrv.URL, "http"), Options{
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Send(context.Background(), "query", "SELECT * FROM users")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAfterClose(t *testing.T) {
	srv := newTestServer(t, func(method string, params []json.RawMessage) (any, *Error) {
		return nil, nil
	})

	conn, err := Dial(context.Background(), srv.wsURL(), Options{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = conn.Send(context.Background(), "ping")
	assert.ErrorContains(t, err, "connection closed")
}

func TestResponseErr(t *testing.T) {
	okRes := Response{Status: "OK"}
	assert.NoError(t, okRes.Err())

	detail := Response{Status: "ERR", Detail: "index already exists"}
	assert.ErrorContains(t, detail.Err(), "index already exists")

	inResult := Response{Status: "ERR", Result: json.RawMessage(`"parse error at line 1"`)}
	assert.ErrorContains(t, inResult.Err(), "parse error")
}
