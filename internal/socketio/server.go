package socketio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/hub"
)

type Options struct {
	PingInterval   time.Duration
	PingTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxPayload     int64
	SendQueueSize  int
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 20 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxPayload <= 0 {
		o.MaxPayload = 1000000
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	return o
}

type Deps struct {
	Hub      *hub.Hub
	Verifier *auth.Verifier
	Options  Options
	Logger   zerolog.Logger
}

// Server is the connection gateway: it speaks Engine.IO v4 / Socket.IO v4 over
// websocket, authenticates the CONNECT packet and hands events to the hub.
type Server struct {
	hub      *hub.Hub
	verifier *auth.Verifier
	opts     Options
	log      zerolog.Logger

	upgrader websocket.Upgrader
}

func NewServer(deps Deps) *Server {
	opts := deps.Options.withDefaults()
	s := &Server{
		hub:      deps.Hub,
		verifier: deps.Verifier,
		opts:     opts,
		log:      deps.Logger.With().Str("module", "socketio").Logger(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t := r.URL.Query().Get("transport"); t != "" && t != "websocket" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":0,"message":"Transport unknown"}`))
		return
	}

	fallbackToken := tokenFromRequest(r)
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade")
		return
	}
	ws.SetReadLimit(s.opts.MaxPayload)

	c := newConn(ws, uuid.NewString(), s.opts, s.log)
	go c.writePump()
	go c.pingLoop()

	open, err := buildOpenPacket(openPacket{
		SID:          c.sid,
		PingInterval: s.opts.PingInterval.Milliseconds(),
		PingTimeout:  s.opts.PingTimeout.Milliseconds(),
		MaxPayload:   s.opts.MaxPayload,
	})
	if err == nil {
		_ = c.enqueue(open)
	}

	defer s.reconcile(c)
	c.readLoop(func(msg string) {
		s.handleMessage(c, msg, fallbackToken)
	})
}

// reconcile runs once per accepted socket, after its read loop ends.
func (s *Server) reconcile(c *conn) {
	_ = c.Close()
	prev := connState(c.state.Swap(int32(stateDisconnected)))
	if prev != stateAuthenticated || c.handle == nil {
		return
	}
	res := s.hub.Disconnect(c.handle.ID)
	s.log.Info().
		Str("sid", c.sid).
		Str("user", c.handle.UserID()).
		Int("rooms", len(res.Rooms)).
		Bool("offline", res.WentOffline).
		Msg("disconnected")
}

func (s *Server) handleMessage(c *conn, msg string, fallbackToken string) {
	if msg == "" {
		return
	}

	switch enginePacketType(msg[0]) {
	case enginePong:
		c.markPong()
	case engineMessage:
		s.handleSocketPayload(c, msg[1:], fallbackToken)
	case engineClose:
		_ = c.Close()
	}
}

func (s *Server) handleSocketPayload(c *conn, payload string, fallbackToken string) {
	if payload == "" {
		return
	}

	switch socketPacketType(payload[0]) {
	case socketConnect:
		s.handleConnect(c, payload, fallbackToken)
	case socketEvent:
		s.handleEvent(c, payload)
	case socketDisconnect:
		_ = c.Close()
	}
}

type connectAuth struct {
	Token string `json:"token"`
}

func (s *Server) handleConnect(c *conn, payload string, fallbackToken string) {
	if c.State() != stateConnecting {
		return
	}

	p, err := parseSocketPacket(payload)
	if err != nil {
		return
	}
	// Only the root namespace is served; Emit writes every event there.
	if p.Namespace != rootNamespace {
		s.reject(c, p.Namespace, "Invalid namespace", errUnknownNamespace)
		return
	}
	var authObj connectAuth
	if p.Data != "" {
		if err := json.Unmarshal([]byte(p.Data), &authObj); err != nil {
			s.reject(c, p.Namespace, "Invalid auth", err)
			return
		}
	}
	token := authObj.Token
	if token == "" {
		token = fallbackToken
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		reason := "Invalid authentication token"
		var ae *auth.AuthError
		if errors.As(err, &ae) {
			reason = ae.Reason()
		}
		s.reject(c, p.Namespace, reason, err)
		return
	}
	if !s.hub.Running() {
		s.reject(c, p.Namespace, "Server shutting down", hub.ErrHubNotRunning)
		return
	}

	// The ack is queued before the handle becomes visible, so no event can
	// reach the client ahead of it.
	ack, err := buildConnectPacket(p.Namespace, c.sid)
	if err != nil {
		return
	}
	if err := c.enqueue(ack); err != nil {
		return
	}

	handle, err := s.hub.Connect(c.sid, identity, c)
	if err != nil {
		s.reject(c, p.Namespace, "Server shutting down", err)
		return
	}
	c.handle = handle
	c.state.Store(int32(stateAuthenticated))
	s.log.Info().Str("sid", c.sid).Str("user", identity.UserID).Str("role", identity.Role).Msg("connected")
}

func (s *Server) reject(c *conn, namespace, reason string, err error) {
	s.log.Info().Err(err).Str("sid", c.sid).Str("reason", reason).Msg("handshake rejected")
	if packet, buildErr := buildConnectErrorPacket(namespace, reason); buildErr == nil {
		_ = c.enqueue(packet)
	}
	_ = c.Close()
}

func (s *Server) handleEvent(c *conn, payload string) {
	if c.State() != stateAuthenticated {
		return
	}

	pkt, err := parseEventPacket(payload)
	if err != nil {
		s.log.Debug().Err(err).Str("sid", c.sid).Msg("bad event packet")
		return
	}
	if pkt.Namespace != rootNamespace {
		return
	}

	if pkt.Event == "ping" {
		if pkt.ID != nil {
			s.ack(c, pkt.Namespace, *pkt.ID)
		}
		return
	}

	err = s.hub.Dispatch(c.handle, pkt.Event, pkt.Args)
	if err != nil {
		s.log.Debug().Err(err).Str("sid", c.sid).Str("event", pkt.Event).Msg("event rejected")
	}
	if pkt.ID == nil {
		return
	}
	resp := map[string]any{"ok": err == nil}
	if err != nil {
		resp["error"] = err.Error()
	}
	s.ack(c, pkt.Namespace, *pkt.ID, resp)
}

func (s *Server) ack(c *conn, namespace string, id int, args ...any) {
	packet, err := buildAckPacket(namespace, id, args...)
	if err != nil {
		return
	}
	_ = c.enqueue(packet)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}
