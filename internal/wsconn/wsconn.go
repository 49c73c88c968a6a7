// Package wsconn provides a WebSocket client with reconnection on top of
// github.com/coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int           // 0 = infinite
	PingInterval   time.Duration // 0 disables pings
	PongTimeout    time.Duration
	ReadTimeout    time.Duration // 0 = no per-message deadline
	WriteTimeout   time.Duration
	MaxMessageSize int64
	AutoReconnect  bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 1 << 20,
		AutoReconnect:  true,
	}
}

// MessageHandler receives every data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is called on every state transition. err is the cause of a
// disconnect, if any.
type StateHandler func(state State, err error)

// Client is a WebSocket client. Handlers must be registered before Connect.
type Client struct {
	config Config

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	state   State
	stateMu sync.RWMutex

	onMessage MessageHandler
	onState   StateHandler

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates a client. It does not connect.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("websocket url is empty"))
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: cfg,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// OnMessage registers the data frame handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.onMessage = h
}

// OnStateChange registers the state transition handler.
func (c *Client) OnStateChange(h StateHandler) {
	c.onState = h
}

// Connect dials once. On failure the client stays disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}
	if c.IsConnected() {
		return nil
	}

	c.setState(StateConnecting, nil)
	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	return nil
}

// ConnectWithRetry dials until it succeeds, ctx is done, or MaxReconnects
// attempts have failed. Delays grow exponentially up to MaxBackoff.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, c.config.MaxBackoff)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: dial %s", c.config.Name, c.config.URL)))
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected, nil)

	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		readCtx := c.ctx
		var cancel context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		if h := c.onMessage; h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.connMu.RLock()
			current := c.conn
			c.connMu.RUnlock()
			if current != conn {
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, c.config.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	if c.ctx.Err() != nil {
		return
	}

	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
	conn.CloseNow()

	c.setState(StateDisconnected, err)

	if c.config.AutoReconnect {
		go c.reconnect()
	}
}

func (c *Client) reconnect() {
	c.setState(StateReconnecting, nil)

	backoff := c.config.InitialBackoff
	for attempt := 1; c.config.MaxReconnects == 0 || attempt <= c.config.MaxReconnects; attempt++ {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}

		if err := c.dial(c.ctx); err == nil {
			return
		}
		backoff = nextBackoff(backoff, c.config.MaxBackoff)
	}

	c.setState(StateDisconnected, apperror.New(apperror.CodeWebSocketConnectionError,
		apperror.WithContext(fmt.Sprintf("%s: gave up after %d reconnects", c.config.Name, c.config.MaxReconnects))))
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name+": not connected"))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": write"))
	}
	return nil
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close closes the connection and stops reconnecting. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.connMu.Lock()
		conn := c.conn
		c.conn = nil
		c.connMu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}

		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = state
	c.stateMu.Unlock()

	if h := c.onState; h != nil {
		h(state, err)
	}
}
