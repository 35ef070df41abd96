package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Options configures a WebSocket connection.
type Options struct {
	Namespace string
	Database  string
	Username  string
	Password  string

	// Timeout bounds each round trip when the caller's context carries no
	// deadline of its own.
	Timeout time.Duration
	// PingInterval is how often the heartbeat fires. Zero disables it.
	PingInterval time.Duration
}

type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// WebSocket is the default Conn implementation.
type WebSocket struct {
	ws   *websocket.Conn
	opts Options

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan response
	closed  bool

	done chan struct{}
}

// Dial opens a connection, authenticates when credentials are given and
// selects the configured namespace and database.
func Dial(ctx context.Context, url string, opts Options) (*WebSocket, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = 30 * time.Second
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &WebSocket{
		ws:      ws,
		opts:    opts,
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	go c.pingLoop()

	if opts.Username != "" {
		if _, err := c.Send(ctx, "signin", map[string]any{
			"user": opts.Username,
			"pass": opts.Password,
		}); err != nil {
			c.Close()
			return nil, fmt.Errorf("signin: %w", err)
		}
	}
	if opts.Namespace != "" || opts.Database != "" {
		if _, err := c.Send(ctx, "use", opts.Namespace, opts.Database); err != nil {
			c.Close()
			return nil, fmt.Errorf("use %s/%s: %w", opts.Namespace, opts.Database, err)
		}
	}
	return c, nil
}

// Send performs one correlated request/response round trip.
func (c *WebSocket) Send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("connection closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.ws.WriteJSON(request{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.Error != nil {
			return nil, res.Error
		}
		return res.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("connection closed")
	}
}

// Query runs statements through the "query" method and decodes the
// per-statement responses.
func (c *WebSocket) Query(ctx context.Context, surql string, vars map[string]any) ([]Response, error) {
	params := []any{surql}
	if len(vars) > 0 {
		params = append(params, vars)
	}
	raw, err := c.Send(ctx, "query", params...)
	if err != nil {
		return nil, err
	}
	var out []Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return out, nil
}

// Close tears the connection down and fails all in-flight calls.
func (c *WebSocket) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	return c.ws.Close()
}

func (c *WebSocket) readLoop() {
	for {
		var res response
		if err := c.ws.ReadJSON(&res); err != nil {
			c.failAll()
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[res.ID]
		c.mu.Unlock()
		if ok {
			ch <- res
		}
	}
}

func (c *WebSocket) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *WebSocket) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
			_, _ = c.Send(ctx, "ping")
			cancel()
		}
	}
}
