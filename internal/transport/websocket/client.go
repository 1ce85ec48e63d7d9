package websocket

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/tandemdrive/tandem/internal/channel"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/queue"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/transport"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

const (
	sendChSize     = 1024
	welcomeTimeout = 10 * time.Second
)

// Client is a peer's connection to a Relay with a single write goroutine.
// Lost connections are re-dialed with exponential backoff and the hello is
// replayed so the relay can restore the participant id.
type Client struct {
	mu        sync.Mutex
	conn      *ws.Conn
	stop      chan struct{} // closed when conn is dropped
	sendCh    channel.Channel[outbound]
	welcomeCh chan streaming.WelcomePayload
	done      chan struct{} // closed on shutdown
	closed    bool

	cfg     config.NetConfig
	hello   streaming.HelloPayload
	sess    *session.Context
	inbox   *queue.Queue[streaming.Envelope]
	started time.Time

	logger *slog.Logger
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to cfg.RelayURL, announces the peer and waits for the
// relay to assign its participant id.
func Dial(cfg config.NetConfig, hello streaming.HelloPayload, sess *session.Context, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	c := &Client{
		sendCh:    channel.New[outbound](sendChSize),
		welcomeCh: make(chan streaming.WelcomePayload, 1),
		done:      make(chan struct{}),
		cfg:       cfg,
		hello:     hello,
		sess:      sess,
		inbox:     queue.NewBounded[streaming.Envelope](cfg.InboxSize),
		started:   time.Now(),
		logger:    logger,
	}

	conn, err := c.dialOnce()
	if err != nil {
		return nil, err
	}
	if err := c.writeHello(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.attach(conn)

	timer := time.NewTimer(welcomeTimeout)
	defer timer.Stop()
	select {
	case w := <-c.welcomeCh:
		c.logger.Info("Joined relay", "participant", w.ID, "session", w.Session)
	case <-timer.C:
		_ = c.Close()
		return nil, fmt.Errorf("timeout waiting for welcome from %s", cfg.RelayURL)
	}

	if cfg.PingInterval > 0 {
		go c.pingLoop()
	}
	return c, nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *Client) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.cfg.Secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *Client) writeHello(conn *ws.Conn) error {
	hello := c.hello
	hello.ID = c.sess.LocalID()
	env, err := streaming.NewEnvelope(streaming.TypeHello, hello.ID, hello)
	if err != nil {
		return err
	}
	data, err := streaming.Encode(env)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}
	return nil
}

// attach makes conn current and starts its read and write loops.
func (c *Client) attach(conn *ws.Conn) {
	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn, stop)
}

// lost drops conn after a read or write failure and starts reconnecting.
// Only the first caller for a given conn does anything.
func (c *Client) lost(conn *ws.Conn, err error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	close(c.stop)
	c.conn = nil
	c.mu.Unlock()

	_ = conn.Close()
	c.sess.SetConnected(false)
	c.logger.Warn("Relay connection lost", "error", err)
	go c.reconnect()
}

// writeLoop drains sendCh and writes messages to conn until it is dropped.
func (c *Client) writeLoop(conn *ws.Conn, stop chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case msg := <-c.sendCh.Receive():
			if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.lost(conn, err)
				return
			}
			if err := conn.WriteMessage(msg.kind, msg.data); err != nil {
				c.lost(conn, err)
				return
			}
		}
	}
}

// readLoop handles session control messages and queues the rest.
func (c *Client) readLoop(conn *ws.Conn, stop chan struct{}) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case <-stop:
			default:
				c.lost(conn, err)
			}
			return
		}

		env, err := decodeMessage(kind, data)
		if err != nil {
			c.logger.Debug("Dropping undecodable message", "error", err)
			continue
		}

		switch env.Type {
		case streaming.TypeWelcome:
			c.welcome(env)
		case streaming.TypePong:
			c.pong(env)
		default:
			c.inbox.Push(env)
		}
	}
}

func (c *Client) welcome(env streaming.Envelope) {
	var w streaming.WelcomePayload
	if err := env.Decode(&w); err != nil {
		c.logger.Warn("Invalid welcome", "error", err)
		return
	}
	c.sess.SetLocalID(w.ID)
	c.sess.SetConnected(true)
	c.sess.SyncClock(w.ServerTime, c.sess.RoundTripTime())

	select {
	case c.welcomeCh <- w:
	default:
	}
}

func (c *Client) pong(env streaming.Envelope) {
	var p streaming.PongPayload
	if err := env.Decode(&p); err != nil {
		return
	}
	rtt := c.elapsed() - p.Sent
	c.sess.ObserveRoundTrip(rtt)
	c.sess.SyncClock(p.ServerTime, rtt)
}

func (c *Client) elapsed() float64 { return time.Since(c.started).Seconds() }

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.sess.IsConnected() {
				continue
			}
			env, err := streaming.NewEnvelope(streaming.TypePing, c.sess.LocalID(), streaming.PingPayload{Sent: c.elapsed()})
			if err != nil {
				continue
			}
			c.sendEnvelope(env)
		}
	}
}

// reconnect re-dials with exponential backoff, replays the hello and
// restarts the loops. The relay's welcome marks the session connected.
func (c *Client) reconnect() {
	backoff := time.Second
	if backoff > c.cfg.MaxBackoff {
		backoff = c.cfg.MaxBackoff
	}
	for attempt := 1; c.cfg.MaxReconnect <= 0 || attempt <= c.cfg.MaxReconnect; attempt++ {
		c.logger.Info("Reconnecting to relay", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err == nil {
			err = c.writeHello(conn)
			if err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			c.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
			continue
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			_ = conn.Close()
			return
		}

		c.logger.Info("Relay reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.logger.Error("Relay reconnect failed after max attempts", "maxAttempts", c.cfg.MaxReconnect)
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *Client) send(kind int, data []byte) {
	if !c.sendCh.TrySend(outbound{kind: kind, data: data}) {
		c.logger.Warn("Relay send channel full, dropping message", "queued", c.sendCh.Len())
	}
}

func (c *Client) sendEnvelope(env streaming.Envelope) {
	data, err := streaming.Encode(env)
	if err != nil {
		c.logger.Error("Failed to encode message", "type", env.Type, "error", err)
		return
	}
	c.send(ws.TextMessage, data)
}

// Inbox returns the received envelopes.
func (c *Client) Inbox() *queue.Queue[streaming.Envelope] { return c.inbox }

// Broadcast sends a snapshot as a binary frame, lz4-compressed when
// configured. The relay forwards it only from the session owner.
func (c *Client) Broadcast(s core.Snapshot) error {
	if !c.sess.IsConnected() {
		return transport.ErrNotConnected
	}
	env, err := streaming.NewEnvelope(streaming.TypeSnapshot, c.sess.LocalID(), s)
	if err != nil {
		return err
	}
	frame, err := streaming.EncodeFrame(env, c.cfg.CompressSnapshots)
	if err != nil {
		return err
	}
	c.send(ws.BinaryMessage, frame)
	return nil
}

// Invoke sends env through the relay to its recipient.
func (c *Client) Invoke(env streaming.Envelope) error {
	if !c.sess.IsConnected() {
		return transport.ErrNotConnected
	}
	env.From = c.sess.LocalID()
	c.sendEnvelope(env)
	return nil
}

// Close sends a close frame and shuts down all goroutines.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.sess.SetConnected(false)
	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(c.cfg.WriteWait),
		)
		return conn.Close()
	}
	return nil
}
