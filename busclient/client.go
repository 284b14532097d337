// Package busclient provides the NATS-backed message bus client that
// simulation components use for topic publish/subscribe.
//
// One client owns one outbound send path, guarded against concurrent use,
// and any number of topic listeners. Message handling inside a single
// listener is serialized: at most one handler invocation is in flight per
// listener, which guarantees in-order processing for that listener. No
// ordering is guaranteed across listeners or across components.
package busclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/simcesplatform/simulation-tools/errors"
	"github.com/simcesplatform/simulation-tools/pkg/retry"
)

// MessageHandler is invoked for every message delivered to a listener,
// with the topic the message arrived on and the raw payload bytes.
type MessageHandler func(topic string, data []byte)

// Client is a NATS message bus client for simulation components.
type Client struct {
	url    string
	name   string
	logger *slog.Logger

	// Connection options
	username      string
	password      string
	maxReconnects int
	reconnectWait time.Duration
	connectWait   time.Duration
	drainTimeout  time.Duration

	conn      *nats.Conn
	listeners []*listener

	mu     sync.Mutex
	pubMu  sync.Mutex
	closed atomic.Bool
}

// listener is one topic subscription group with serialized handling.
type listener struct {
	handleMu sync.Mutex
	handler  MessageHandler
	subs     []*nats.Subscription
}

// handle forwards one delivery to the handler. The mutex keeps at most one
// decode+dispatch in flight per listener even when the listener covers
// several topics.
func (l *listener) handle(topic string, data []byte) {
	l.handleMu.Lock()
	defer l.handleMu.Unlock()
	l.handler(topic, data)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client) error

// WithName sets the client connection name shown on the NATS server.
func WithName(name string) ClientOption {
	return func(c *Client) error {
		if name == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "WithName", "empty client name")
		}
		c.name = name
		return nil
	}
}

// WithCredentials sets username/password authentication.
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithMaxReconnects sets the maximum number of reconnection attempts
// (-1 for infinite).
func WithMaxReconnects(max int) ClientOption {
	return func(c *Client) error {
		c.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the wait time between reconnection attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.reconnectWait = d
		return nil
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "WithLogger", "nil logger")
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a new message bus client for the given NATS URL.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:           url,
		name:          "simulation-component",
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		connectWait:   5 * time.Second,
		drainTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Connect establishes the connection to the message bus.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return errors.ErrClientClosed
	}
	if c.conn != nil && c.conn.IsConnected() {
		return nil
	}

	opts := []nats.Option{
		// A unique suffix keeps reconnecting components apart on the server.
		nats.Name(fmt.Sprintf("%s-%s", c.name, uuid.NewString()[:8])),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.connectWait),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("disconnected from message bus", "error", err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.logger.Info("reconnected to message bus", "url", conn.ConnectedUrl())
		}),
	}
	if c.username != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}

	// The bus is commonly started alongside the components, so the first
	// connection attempts may hit a server that is not up yet.
	var conn *nats.Conn
	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  5,
		InitialDelay: c.reconnectWait,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}, func() error {
		var connErr error
		conn, connErr = nats.Connect(c.url, opts...)
		return connErr
	})
	if err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "establish connection")
	}
	c.conn = conn

	c.logger.Info("connected to message bus", "url", c.url)

	select {
	case <-ctx.Done():
		conn.Close()
		c.conn = nil
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	default:
	}
	return nil
}

// Conn returns the underlying NATS connection. Exposed for collaborators
// that need direct access, such as the JetStream message store.
func (c *Client) Conn() *nats.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// Publish sends the payload to the given topic. The outbound send path is
// serialized; publishing on a closed client is a no-op that logs a
// warning and reports ErrClientClosed.
func (c *Client) Publish(_ context.Context, topic string, data []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if c.closed.Load() {
		c.logger.Warn("message not sent because the client is closed", "topic", topic)
		return errors.ErrClientClosed
	}
	if topic == "" {
		return errors.WrapInvalid(errors.ErrInvalidValue, "Client", "Publish", "empty topic name")
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Publish", "publish message")
	}

	if err := conn.Publish(topic, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish message")
	}
	c.logger.Debug("message published", "topic", topic, "bytes", len(data))
	return nil
}

// Subscribe opens a new listener for the given topics. All deliveries for
// the listener run through one serialized handler; separate listeners run
// independently.
func (c *Client) Subscribe(_ context.Context, topics []string, handler MessageHandler) error {
	if len(topics) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidValue, "Client", "Subscribe", "no topics given")
	}
	if handler == nil {
		return errors.WrapInvalid(errors.ErrInvalidValue, "Client", "Subscribe", "nil handler")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return errors.ErrClientClosed
	}
	if c.conn == nil || !c.conn.IsConnected() {
		return errors.WrapTransient(errors.ErrNoConnection, "Client", "Subscribe", "open listener")
	}

	l := &listener{handler: handler}
	for _, topic := range topics {
		sub, err := c.conn.Subscribe(topic, func(msg *nats.Msg) {
			l.handle(msg.Subject, msg.Data)
		})
		if err != nil {
			// Roll back the partial listener.
			for _, s := range l.subs {
				_ = s.Unsubscribe()
			}
			return errors.WrapTransient(err, "Client", "Subscribe",
				fmt.Sprintf("subscribe to topic '%s'", topic))
		}
		l.subs = append(l.subs, sub)
		c.logger.Info("listening to topic", "topic", topic)
	}

	c.listeners = append(c.listeners, l)
	return nil
}

// Close cancels all listener subscriptions and releases the bus
// connection. Safe to call repeatedly.
func (c *Client) Close(_ context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.listeners {
		for _, sub := range l.subs {
			if err := sub.Unsubscribe(); err != nil {
				c.logger.Warn("failed to unsubscribe", "error", err)
			}
		}
	}
	c.listeners = nil

	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("failed to drain connection", "error", err)
			c.conn.Close()
		}
		c.conn = nil
	}

	c.logger.Info("message bus client closed")
	return nil
}
