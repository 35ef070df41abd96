package middleware

import (
	"context"
	"time"

	"github.com/corvids/surgo/core"
)

// SlowLogMiddleware warns about queries exceeding a duration threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration

	client *core.Client
}

func NewSlowLog(threshold time.Duration) *SlowLogMiddleware {
	return &SlowLogMiddleware{Threshold: threshold}
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(c *core.Client) error {
	m.client = c
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, query)
	elapsed := time.Since(start)

	if elapsed >= m.Threshold {
		m.client.Logger().Warn("slow query [%v]: %s", elapsed, query.SurQL())
	}
	return res, err
}
