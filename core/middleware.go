package core

import (
	"context"
	"encoding/json"
)

// Component is the base interface for all surgo components/middleware.
type Component interface {
	Name() string
	Init(c *Client) error
	Shutdown() error
}

// Result represents the result of a query execution.
type Result struct {
	// Raw is the result of the first statement, as returned by the
	// database.
	Raw json.RawMessage
	// Data is the decode destination, when the caller supplied one.
	Data  any
	Error error
}

// QueryFunc is the function type for the next step in the middleware chain.
type QueryFunc func(ctx context.Context, query *Query) (*Result, error)

// QueryMiddleware is the interface for query interceptors.
type QueryMiddleware interface {
	Component
	Process(ctx context.Context, query *Query, next QueryFunc) (*Result, error)
}
