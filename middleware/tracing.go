package middleware

import (
	"context"

	"github.com/corvids/surgo/core"
)

// TracingMiddleware copies request-scoped identifiers from the context onto
// the query's log fields, so statement logs correlate with the surrounding
// request.
type TracingMiddleware struct{}

func NewTracing() *TracingMiddleware {
	return &TracingMiddleware{}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(c *core.Client) error {
	return nil
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	fields := make(map[string]any)
	for _, key := range []string{"request_id", "user_ip", "trace_id"} {
		if v := ctx.Value(key); v != nil {
			fields[key] = v
		}
	}
	if len(fields) > 0 {
		query.WithFields(fields)
	}
	return next(ctx, query)
}
