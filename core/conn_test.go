package core

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/corvids/surgo/logger"
	"github.com/corvids/surgo/rpc"
)

// fakeConn scripts the database side of a test: the handler decides what
// each statement returns, and every statement is recorded for assertions.
type fakeConn struct {
	mu      sync.Mutex
	queries []string
	handler func(surql string, vars map[string]any) ([]rpc.Response, error)
}

func (f *fakeConn) Send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return nil, nil
}

func (f *fakeConn) Query(ctx context.Context, surql string, vars map[string]any) ([]rpc.Response, error) {
	f.mu.Lock()
	f.queries = append(f.queries, surql)
	f.mu.Unlock()
	if f.handler == nil {
		return []rpc.Response{{Status: "OK", Result: json.RawMessage(`[]`)}}, nil
	}
	return f.handler(surql, vars)
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

func ok(result string) []rpc.Response {
	return []rpc.Response{{Status: "OK", Result: json.RawMessage(result)}}
}

func errResp(msg string) []rpc.Response {
	return []rpc.Response{{Status: "ERR", Result: json.RawMessage(`"` + msg + `"`)}}
}

func newTestClient(conn *fakeConn) *Client {
	c := NewClient(conn)
	c.Logger().SetLevel(logger.LogLevelSilent)
	return c
}
