// Package rpc implements the wire transport to the database: JSON-RPC
// request/response framing over a WebSocket, with message correlation by id.
// Everything above this package treats a call as "resolves with a result or
// rejects with an error"; timeouts and reconnection live here.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// Response is one statement result from a query call. A multi-statement
// query yields one Response per statement, in order.
type Response struct {
	Status string          `json:"status"`
	Time   string          `json:"time"`
	Result json.RawMessage `json:"result"`
	Detail string          `json:"detail,omitempty"`
}

// Err returns the statement error, if the statement failed.
func (r *Response) Err() error {
	if r.Status == "" || r.Status == "OK" {
		return nil
	}
	msg := r.Detail
	if msg == "" {
		// Failed statements carry their message in the result slot.
		var s string
		if err := json.Unmarshal(r.Result, &s); err == nil {
			msg = s
		}
	}
	return fmt.Errorf("statement failed: %s", msg)
}

// Conn is the duplex connection to the database. Implementations must be
// safe for concurrent use.
type Conn interface {
	// Send performs one request/response round trip for an arbitrary
	// method.
	Send(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	// Query runs one or more newline-joined statements in a single
	// logical unit, binding vars as query parameters.
	Query(ctx context.Context, surql string, vars map[string]any) ([]Response, error)
	Close() error
}

// Error is a protocol-level error returned by the database.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
