package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agrovista/farmsight-go/pkg/logger"
)

// State is the connection state of the realtime client.
type State string

const (
	// StateDisconnected means no connection exists.
	StateDisconnected State = "disconnected"

	// StateConnecting means a dial is in progress.
	StateConnecting State = "connecting"

	// StateOpen means the connection is live.
	StateOpen State = "open"
)

// defaultReconnectDelay is the fixed wait before a reconnect attempt.
const defaultReconnectDelay = 5 * time.Second

// Subscriber receives validated inbound messages.
type Subscriber func(*Message)

// Config contains configuration for creating a realtime Client.
type Config struct {
	// URL is the WebSocket endpoint (ws:// or wss://).
	URL string

	// ReconnectDelay is the fixed delay before reconnecting after a lost
	// connection. Defaults to 5 seconds.
	ReconnectDelay time.Duration

	// Dialer is the WebSocket dialer. Defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// RequestHeader is attached to the WebSocket handshake (optional,
	// e.g. an Authorization header).
	RequestHeader map[string][]string

	// Logger is the logger for connection diagnostics (optional).
	Logger *zerolog.Logger
}

// Client maintains a single live WebSocket connection with automatic
// reconnect, message validation, and subscriber fan-out.
//
// Invariants:
//   - at most one live connection exists at a time
//   - at most one reconnect timer is pending at a time
//   - invalid inbound messages never reach subscribers
//
// After Close, all callbacks and timers are suppressed permanently.
type Client struct {
	// mu protects every mutable field below.
	mu sync.Mutex

	conn           *websocket.Conn
	state          State
	reconnectTimer *time.Timer
	subscribers    map[int]Subscriber
	nextSubID      int
	lastErr        error

	// dialGen identifies the most recent Connect call. A finished dial
	// whose generation is stale lost to a newer Connect (or Disconnect)
	// and must discard its connection instead of storing it.
	dialGen uint64

	// writeMu serializes writes to the connection.
	writeMu sync.Mutex

	// ctx is the liveness token; cancelled exactly once, by Close.
	ctx    context.Context
	cancel context.CancelFunc

	url            string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	header         map[string][]string
	log            zerolog.Logger
}

// NewClient creates a new realtime client. The client does not connect
// until Connect is called.
func NewClient(cfg *Config) *Client {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	log := logger.With("realtime")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		state:          StateDisconnected,
		subscribers:    make(map[int]Subscriber),
		ctx:            ctx,
		cancel:         cancel,
		url:            cfg.URL,
		reconnectDelay: delay,
		dialer:         dialer,
		header:         cfg.RequestHeader,
		log:            log,
	}
}

// Connect opens the WebSocket connection. Any prior live connection is
// closed first and any pending reconnect is cancelled; when calls overlap,
// only the newest dial keeps its socket, so at most one connection is ever
// live. Connect is a no-op after Close.
func (c *Client) Connect() {
	if c.closed() {
		return
	}

	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateConnecting
	c.dialGen++
	gen := c.dialGen
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(c.ctx, c.url, c.header)

	c.mu.Lock()
	if gen != c.dialGen || c.closed() {
		// A newer Connect, Disconnect, or Close superseded this dial;
		// its outcome belongs to that call now.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		c.lastErr = err
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("url", c.url).Msg("websocket dial failed")
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.lastErr = nil
	c.mu.Unlock()

	c.log.Debug().Str("url", c.url).Msg("websocket connected")
	go c.readLoop(conn)
}

// readLoop pumps inbound frames from one connection until it dies.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if c.closed() {
			break
		}
		c.dispatch(data)
	}
	conn.Close()
	c.handleClose(conn)
}

// dispatch validates one frame and fans it out to subscribers.
// Malformed or unrecognized messages are dropped with a diagnostic.
func (c *Client) dispatch(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropping invalid realtime message")
		return
	}

	c.mu.Lock()
	subs := make([]Subscriber, 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// handleClose marks the client disconnected and schedules one reconnect,
// unless the closed connection is stale or the client was torn down.
func (c *Client) handleClose(conn *websocket.Conn) {
	if c.closed() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		// A newer connection already replaced this one.
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.scheduleReconnectLocked()
	c.log.Debug().Dur("delay", c.reconnectDelay).Msg("websocket closed, reconnect scheduled")
}

// scheduleReconnectLocked arms the reconnect timer, cancelling any pending
// one first. Caller must hold mu.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
		if c.closed() {
			return
		}
		c.Connect()
	})
}

// Subscribe registers a subscriber for validated inbound messages and
// returns a function that removes it.
func (c *Client) Subscribe(fn Subscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Send serializes v to JSON and transmits it if the connection is open.
// Messages are silently dropped otherwise; there is no outbound queue.
func (c *Client) Send(v interface{}) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.log.Debug().Msg("dropping outbound message: connection not open")
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		c.log.Warn().Err(err).Msg("websocket write failed")
	}
}

// Disconnect cancels any pending reconnect and closes the live connection.
// A subsequent Connect call is required to resume.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Invalidate any in-flight dial so it discards its socket on arrival.
	c.dialGen++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

// Close tears the client down permanently: pending timers are cancelled,
// the connection is closed, and all later callbacks become no-ops.
func (c *Client) Close() {
	c.cancel()
	c.Disconnect()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connection error, cleared on a
// successful open. The error flag itself never triggers a reconnect; only
// a closed connection does.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// closed reports whether Close has been called.
func (c *Client) closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}
