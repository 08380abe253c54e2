package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/model"
)

// Hub owns the presence and room state for one process. Construct one per
// server (or per test); there is no package level state.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	router   *Router
	relay    *Relay
	log      zerolog.Logger

	mu      sync.RWMutex
	running bool
	stop    chan struct{} // closed when the current run ends
}

func New(log zerolog.Logger) *Hub {
	log = log.With().Str("module", "hub").Logger()
	registry := NewRegistry()
	rooms := NewRooms(log)
	router := NewRouter(registry, rooms, log)
	return &Hub{
		registry: registry,
		rooms:    rooms,
		router:   router,
		relay:    NewRelay(router),
		log:      log,
	}
}

func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Rooms() *Rooms { return h.rooms }
func (h *Hub) Router() *Router { return h.router }

// Start lets connections in. The run ends on Stop or when ctx is done,
// whichever comes first; a later run is not affected by an earlier ctx.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	stop := make(chan struct{})
	h.stop = stop
	h.mu.Unlock()

	h.log.Info().Msg("hub started")
	go func() {
		select {
		case <-ctx.Done():
			_ = h.stopRun(stop)
		case <-stop:
		}
	}()
	return nil
}

// Stop refuses new connections and closes every live one. Each closed
// transport goes through Disconnect as usual.
func (h *Hub) Stop() error {
	return h.stopRun(nil)
}

// stopRun ends the run identified by run, or the current run when run is nil.
func (h *Hub) stopRun(run chan struct{}) error {
	h.mu.Lock()
	if !h.running || (run != nil && run != h.stop) {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.stop)
	h.stop = nil
	h.mu.Unlock()

	handles := h.registry.All()
	for _, c := range handles {
		if err := c.emitter.Close(); err != nil {
			h.log.Debug().Err(err).Str("connection", c.ID).Msg("close on stop")
		}
	}
	h.log.Info().Int("closed", len(handles)).Msg("hub stopped")
	return nil
}

func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Connect registers an authenticated connection, joins its personal room and
// announces the user if this is their first connection. connectionID is the
// id the transport allocated at accept time; an empty id gets a fresh one.
func (h *Hub) Connect(connectionID string, identity auth.Identity, emitter Emitter) (*Handle, error) {
	h.mu.RLock()
	// Held until the handle is registered so Stop cannot miss it.
	if !h.running {
		h.mu.RUnlock()
		return nil, ErrHubNotRunning
	}

	id := connectionID
	if id == "" {
		id = uuid.NewString()
	}
	h.rooms.Attach(id, PersonalRoom(identity.UserID))
	handle, becameOnline := h.registry.Register(id, identity, emitter)
	h.mu.RUnlock()

	h.log.Debug().Str("connection", id).Str("user", identity.UserID).Bool("first", becameOnline).Msg("connected")
	if becameOnline {
		h.router.BroadcastAll(model.EventUserOnline, model.Presence{UserID: identity.UserID}, id)
	}
	return handle, nil
}

// DisconnectResult describes what reconciling one connection did.
type DisconnectResult struct {
	Rooms       []string
	WentOffline bool
	Offline     *Report
}

// Disconnect unwinds a connection: rooms first, then presence, then the
// offline notice if it was the user's last connection. The transport calls it
// exactly once per connection.
func (h *Hub) Disconnect(connectionID string) DisconnectResult {
	var res DisconnectResult
	res.Rooms = h.rooms.DropConnection(connectionID)

	handle, offline := h.registry.Unregister(connectionID)
	res.WentOffline = offline
	if handle == nil {
		return res
	}

	h.log.Debug().Str("connection", connectionID).Str("user", handle.UserID()).Bool("offline", offline).Msg("disconnected")
	if offline {
		report := h.router.BroadcastAll(model.EventUserOffline, model.Presence{UserID: handle.UserID()}, "")
		res.Offline = &report
	}
	return res
}

func (h *Hub) Join(connectionID, conversationID string) error {
	if conversationID == "" {
		return ErrInvalidPayload
	}
	if !h.rooms.Join(connectionID, ConversationRoom(conversationID)) {
		return ErrUnknownConnection
	}
	return nil
}

func (h *Hub) Leave(connectionID, conversationID string) error {
	if conversationID == "" {
		return ErrInvalidPayload
	}
	h.rooms.Leave(connectionID, ConversationRoom(conversationID))
	return nil
}

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	conns, users := h.registry.Counts()
	return Stats{Connections: conns, Users: users, Rooms: h.rooms.Count()}
}
