package socketio

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"realtime-hub/internal/hub"
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrBackpressure = errors.New("send queue full")
)

type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticated
	stateDisconnected
)

// conn is one websocket session. Everything sent to the client goes through
// the send queue and is written by writePump alone, so frames reach the client
// in the order they were queued and no caller ever blocks on the network.
type conn struct {
	ws   *websocket.Conn
	sid  string
	opts Options
	log  zerolog.Logger

	state  atomic.Int32
	handle *hub.Handle

	mu     sync.RWMutex
	closed bool
	send   chan string
	done   chan struct{}

	pingMu       sync.Mutex
	awaitingPong bool
	pingSentAt   time.Time
	nextPingAt   time.Time
	acceptedAt   time.Time
}

func newConn(ws *websocket.Conn, sid string, opts Options, log zerolog.Logger) *conn {
	now := time.Now()
	return &conn{
		ws:         ws,
		sid:        sid,
		opts:       opts,
		log:        log,
		send:       make(chan string, opts.SendQueueSize),
		done:       make(chan struct{}),
		nextPingAt: now.Add(opts.PingInterval),
		acceptedAt: now,
	}
}

func (c *conn) State() connState { return connState(c.state.Load()) }

// Emit implements hub.Emitter.
func (c *conn) Emit(event string, payload json.RawMessage) error {
	packet, err := buildEventPacket(rootNamespace, event, payload)
	if err != nil {
		return err
	}
	return c.enqueue(packet)
}

func (c *conn) enqueue(msg string) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConnClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
	}

	c.log.Warn().Str("sid", c.sid).Int("queue", cap(c.send)).Msg("send queue full, closing slow connection")
	_ = c.Close()
	return ErrBackpressure
}

// Close implements hub.Emitter. Frames already queued are flushed before the
// socket closes.
func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

func (c *conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.log.Debug().Err(err).Str("sid", c.sid).Msg("write failed")
				_ = c.Close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever is still queued, within one write timeout overall.
func (c *conn) flush() {
	deadline := time.Now().Add(c.opts.WriteTimeout)
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg, deadline); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(msg string, deadline time.Time) error {
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *conn) readLoop(onMessage func(string)) {
	defer c.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Str("sid", c.sid).Msg("read failed")
			}
			return
		}
		onMessage(string(data))
	}
}

// pingLoop drives engine level liveness: a ping every PingInterval, and the
// connection is closed when the pong (or the initial CONNECT) takes longer
// than PingTimeout.
func (c *conn) pingLoop() {
	ticker := time.NewTicker(tickFor(c.opts.PingInterval))
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			if c.State() == stateConnecting && now.Sub(c.acceptedAt) > c.opts.PingTimeout {
				c.log.Debug().Str("sid", c.sid).Msg("no CONNECT before timeout")
				_ = c.Close()
				return
			}

			c.pingMu.Lock()
			if c.awaitingPong && now.Sub(c.pingSentAt) > c.opts.PingTimeout {
				c.pingMu.Unlock()
				c.log.Debug().Str("sid", c.sid).Msg("pong timeout")
				_ = c.Close()
				return
			}
			if !c.awaitingPong && !now.Before(c.nextPingAt) {
				c.awaitingPong = true
				c.pingSentAt = now
				c.nextPingAt = now.Add(c.opts.PingInterval)
				c.pingMu.Unlock()
				_ = c.enqueue(string(enginePing))
				continue
			}
			c.pingMu.Unlock()
		}
	}
}

func (c *conn) markPong() {
	c.pingMu.Lock()
	c.awaitingPong = false
	c.pingMu.Unlock()
}

func tickFor(interval time.Duration) time.Duration {
	tick := interval / 4
	if tick > time.Second {
		tick = time.Second
	}
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	return tick
}
