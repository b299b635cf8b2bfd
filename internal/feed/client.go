package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"trading-dashboard-go/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultReconnectDelay    = 5 * time.Second
	defaultHeartbeatInterval = 4 * time.Second
	writeTimeout             = 10 * time.Second
)

// ErrSuperseded is returned by Connect when an explicit Disconnect lands
// while the handshake is still in flight. The connection is torn down and
// no handlers are installed.
var ErrSuperseded = errors.New("feed: connect superseded by disconnect")

// Handler receives the raw JSON payload of every message delivered on a
// subscribed topic.
type Handler func(data json.RawMessage)

// Subscription is the handle returned by Subscribe, usable for
// Unsubscribe.
type Subscription struct {
	topic string
}

// Topic returns the topic this subscription is registered on.
func (s *Subscription) Topic() string { return s.topic }

// envelope is the wire format of both directions: outbound subscribe
// frames carry Action+Topic, inbound messages carry Topic+Data.
type envelope struct {
	Action string          `json:"action,omitempty"`
	Topic  string          `json:"topic"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Client owns at most one live websocket connection to the backend push
// channel. It multiplexes named topics to registered handlers and
// recovers from transport drops on a fixed delay without caller
// involvement. Registrations survive a drop; only an explicit Disconnect
// clears them.
type Client struct {
	url               string
	reconnectDelay    time.Duration
	heartbeatInterval time.Duration
	logger            *zap.Logger
	dialer            *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	token     string
	gen       int // bumped by Disconnect to invalidate in-flight work
	handlers  map[string]Handler

	writeMu sync.Mutex // gorilla allows a single concurrent writer
}

// NewClient creates a feed client for the configured push channel.
func NewClient(cfg *config.Feed, logger *zap.Logger) *Client {
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	return &Client{
		url:               cfg.URL,
		reconnectDelay:    reconnectDelay,
		heartbeatInterval: heartbeat,
		logger:            logger,
		dialer:            websocket.DefaultDialer,
		handlers:          make(map[string]Handler),
		closed:            true,
	}
}

// Connect establishes the transport, authenticating with the token at
// handshake. It returns once the handshake completes and returns the
// handshake error when it is refused. Connecting while already connected
// is a no-op.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.token = token
	gen := c.gen
	c.mu.Unlock()

	conn, err := c.dial(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.gen != gen || c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrSuperseded
	}
	if c.connected {
		// A concurrent Connect won the race; keep its connection.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.install(conn, gen)
	c.mu.Unlock()

	c.logger.Info("Feed connected", zap.String("url", c.url))
	return nil
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("feed handshake refused (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("feed dial failed: %w", err)
	}
	return conn, nil
}

// install wires a fresh connection: read loop, heartbeat, resubscription
// of every retained topic. Caller holds c.mu.
func (c *Client) install(conn *websocket.Conn, gen int) {
	c.conn = conn
	c.connected = true

	deadline := time.Duration(float64(c.heartbeatInterval) * 2.5)
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for topic := range c.handlers {
		if err := c.writeControl(conn, envelope{Action: "subscribe", Topic: topic}); err != nil {
			c.logger.Warn("Failed to send subscribe frame", zap.String("topic", topic), zap.Error(err))
		}
	}

	go c.readLoop(conn, gen)
	go c.pingLoop(conn, gen)
}

// Subscribe registers handler for every message delivered on topic. The
// registry holds one handler per topic; re-subscribing a topic replaces
// the previous handler. Registering while disconnected is allowed; the
// topic is announced once the transport is up.
func (c *Client) Subscribe(topic string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("feed: nil handler")
	}

	c.mu.Lock()
	_, known := c.handlers[topic]
	c.handlers[topic] = handler
	conn := c.conn
	live := c.connected
	c.mu.Unlock()

	if live && !known {
		// A failed announce is not fatal: the registration is kept and
		// install re-announces every topic once the transport recovers.
		if err := c.writeControl(conn, envelope{Action: "subscribe", Topic: topic}); err != nil {
			c.logger.Warn("Failed to send subscribe frame", zap.String("topic", topic), zap.Error(err))
		}
	}

	return &Subscription{topic: topic}, nil
}

// Unsubscribe removes the registration behind the handle. Subsequent
// messages on the topic are dropped. A handle already unsubscribed is a
// no-op.
func (c *Client) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	c.mu.Lock()
	_, known := c.handlers[sub.topic]
	delete(c.handlers, sub.topic)
	conn := c.conn
	live := c.connected
	c.mu.Unlock()

	if live && known {
		if err := c.writeControl(conn, envelope{Action: "unsubscribe", Topic: sub.topic}); err != nil {
			c.logger.Warn("Failed to send unsubscribe frame", zap.String("topic", sub.topic), zap.Error(err))
		}
	}
}

// Disconnect tears down the transport, stops reconnecting and clears all
// subscriptions. Safe to call when not connected; an in-flight handshake
// observes the generation bump and discards its connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.handlers = make(map[string]Handler)
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.logger.Info("Feed disconnected")
}

// IsConnected reports whether the transport is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) writeControl(conn *websocket.Conn, frame envelope) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readLoop reads and dispatches frames until the transport fails, then
// hands over to the reconnect loop unless the drop was an explicit
// Disconnect.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.onConnLost(conn, gen, err)
			return
		}
		c.dispatch(payload)
	}
}

// dispatch routes one inbound frame to its topic handler. Malformed
// payloads are logged and dropped, and a panicking handler never takes
// down the loop.
func (c *Client) dispatch(payload []byte) {
	var frame envelope
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.logger.Warn("Dropping malformed feed message", zap.Error(err))
		return
	}
	if frame.Topic == "" {
		c.logger.Warn("Dropping feed message without topic")
		return
	}

	c.mu.Lock()
	handler := c.handlers[frame.Topic]
	c.mu.Unlock()

	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Feed handler panicked",
				zap.String("topic", frame.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	handler(frame.Data)
}

// pingLoop exchanges heartbeats at the configured interval. A missing
// pong lets the read deadline expire, which surfaces as a read error and
// triggers the reconnect path.
func (c *Client) pingLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		stale := c.gen != gen || c.conn != conn
		c.mu.Unlock()
		if stale {
			return
		}

		c.writeMu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// onConnLost records the drop and starts the reconnect loop. Transport
// drops are not surfaced to callers; recovery is this client's job.
func (c *Client) onConnLost(conn *websocket.Conn, gen int, cause error) {
	conn.Close()

	c.mu.Lock()
	if c.gen != gen || c.closed || c.conn != conn {
		// Explicit Disconnect already cleaned up, or a newer connection
		// owns the client; a stale read loop must not clobber it.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	token := c.token
	c.mu.Unlock()

	c.logger.Warn("Feed connection lost, reconnecting",
		zap.Duration("delay", c.reconnectDelay),
		zap.Error(cause),
	)
	go c.reconnectLoop(gen, token)
}

// reconnectLoop redials on a fixed delay until the transport is back or
// the client is explicitly disconnected. The handler registry survives
// the drop, so topics are re-announced by install.
func (c *Client) reconnectLoop(gen int, token string) {
	for {
		time.Sleep(c.reconnectDelay)

		// Stand down if an explicit Connect or Disconnect got there
		// first; the client owns at most one live connection.
		c.mu.Lock()
		if c.gen != gen || c.closed || c.connected {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.reconnectDelay)
		conn, err := c.dial(ctx, token)
		cancel()
		if err != nil {
			c.logger.Warn("Feed reconnect attempt failed", zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.gen != gen || c.closed || c.connected {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.install(conn, gen)
		c.mu.Unlock()

		c.logger.Info("Feed reconnected", zap.String("url", c.url))
		return
	}
}
