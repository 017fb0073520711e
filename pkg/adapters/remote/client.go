package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aretw0/quire/pkg/core"
)

// DefaultTimeout bounds how long a call waits for its response.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when a response does not arrive in time.
var ErrTimeout = errors.New("remote: timeout waiting for response")

// Client is a core.Repository backed by a remote Handler.
type Client struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.Mutex
	responses map[string]chan Response
	closed    bool
	closeErr  error
	done      chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout. Zero disables it and leaves
// deadlines to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Dial connects to a websocket URL such as ws://localhost:8080/rpc.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:       url,
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		responses: make(map[string]chan Response),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, res, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
	c.conn = conn
	go c.readLoop()
	return c, nil
}

// Close sends a close frame and releases the connection. Pending calls
// fail with core.ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.shutdown(core.ErrClosed)
	return c.conn.Close()
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	for id, ch := range c.responses {
		close(ch)
		delete(c.responses, id)
	}
	close(c.done)
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Warn("remote connection lost", "url", c.url, "error", err)
			}
			c.shutdown(fmt.Errorf("%w: %v", core.ErrClosed, err))
			return
		}
		var res Response
		if err := json.Unmarshal(data, &res); err != nil {
			c.logger.Debug("bad response", "error", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.responses[res.ID]
		delete(c.responses, res.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("response without caller", "id", res.ID)
			continue
		}
		ch <- res
	}
}

// call sends one request and decodes its result into out (when non-nil).
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := Request{ID: uuid.NewString(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		req.Params = raw
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return err
	}
	c.responses[req.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.responses, req.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrClosed, err)
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	case res, ok := <-ch:
		if !ok {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.closeErr
		}
		if res.Error != nil {
			return res.Error
		}
		if out != nil && len(res.Result) > 0 {
			return json.Unmarshal(res.Result, out)
		}
		return nil
	}
}

// Save implements core.Repository.
func (c *Client) Save(ctx context.Context, n core.Note) error {
	return c.call(ctx, MethodSave, n, nil)
}

// Get implements core.Repository.
func (c *Client) Get(ctx context.Context, id string) (core.Note, error) {
	var n core.Note
	err := c.call(ctx, MethodGet, idParams{ID: id}, &n)
	return n, err
}

// List implements core.Repository.
func (c *Client) List(ctx context.Context) ([]core.Note, error) {
	var notes []core.Note
	err := c.call(ctx, MethodList, nil, &notes)
	return notes, err
}

// Delete implements core.Repository.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, MethodDelete, idParams{ID: id}, nil)
}

// Initialize implements core.Repository.
func (c *Client) Initialize(ctx context.Context) error {
	return c.call(ctx, MethodInitialize, nil, nil)
}

// ClientState is the introspection view of the connection.
type ClientState struct {
	URL     string `json:"url"`
	Pending int    `json:"pending"`
	Closed  bool   `json:"closed"`
	Timeout string `json:"timeout"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientState{URL: c.url, Pending: len(c.responses), Closed: c.closed, Timeout: c.timeout.String()}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "remote-repository"
}

var _ core.Repository = (*Client)(nil)
var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
