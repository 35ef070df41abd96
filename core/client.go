package core

import (
	"context"
	"fmt"
	"time"

	"github.com/corvids/surgo/logger"
	"github.com/corvids/surgo/rpc"
)

// Options defines the configuration for opening a connection.
type Options struct {
	Namespace string
	Database  string
	Username  string
	Password  string
	Timeout   time.Duration
}

// Client is the main entry point of the library. It holds the connection,
// the logger and the middleware chain, and hands out queries and the
// migrator.
type Client struct {
	conn        rpc.Conn
	logger      logger.Logger
	middlewares []QueryMiddleware
}

// Open dials the database over a WebSocket URL and returns a ready Client.
func Open(ctx context.Context, url string, opts *Options) (*Client, error) {
	ropts := rpc.Options{}
	if opts != nil {
		ropts = rpc.Options{
			Namespace: opts.Namespace,
			Database:  opts.Database,
			Username:  opts.Username,
			Password:  opts.Password,
			Timeout:   opts.Timeout,
		}
	}
	conn, err := rpc.Dial(ctx, url, ropts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an already-established connection. Used directly in tests
// and by callers that manage their own transport.
func NewClient(conn rpc.Conn) *Client {
	return &Client{
		conn:   conn,
		logger: logger.NewStdLogger(),
	}
}

// Close shuts down registered middleware and closes the connection.
func (c *Client) Close() error {
	for _, m := range c.middlewares {
		_ = m.Shutdown()
	}
	return c.conn.Close()
}

// SetLogger sets a custom logger.
func (c *Client) SetLogger(l logger.Logger) {
	c.logger = l
}

// Logger returns the active logger.
func (c *Client) Logger() logger.Logger {
	return c.logger
}

// Use registers a query middleware. Middleware run in registration order.
func (c *Client) Use(m QueryMiddleware) error {
	if err := m.Init(c); err != nil {
		return fmt.Errorf("init middleware %s: %w", m.Name(), err)
	}
	c.middlewares = append(c.middlewares, m)
	return nil
}

// Model starts a query for the given model value; its table descriptor is
// derived from the struct's surgo tags.
func (c *Client) Model(value any) *Query {
	q := newQuery(c)
	return q.Model(value)
}

// Table starts a query for the given table name.
func (c *Client) Table(name string) *Query {
	q := newQuery(c)
	return q.Table(name)
}

// Raw starts a query from a raw statement with bound variables.
func (c *Client) Raw(surql string, vars map[string]any) *Query {
	q := newQuery(c)
	return q.Raw(surql, vars)
}

// Migrator returns the schema reconciliation engine bound to this client.
func (c *Client) Migrator() *Migrator {
	return &Migrator{client: c}
}

// Execute runs one or more statements in a single round trip, logging the
// execution time. Errors propagate verbatim.
func (c *Client) Execute(ctx context.Context, surql string, vars map[string]any) ([]rpc.Response, error) {
	start := time.Now()
	res, err := c.conn.Query(ctx, surql, vars)
	c.logger.SurQL(surql, time.Since(start), vars)
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if rerr := r.Err(); rerr != nil {
			return res, rerr
		}
	}
	return res, nil
}
