package hub

import (
	"encoding/json"
	"hash/fnv"
	"sync"

	"realtime-hub/internal/auth"
)

// Emitter is the transport side of one live connection. Emit must not block:
// it either queues the frame for that connection, in call order, or fails.
type Emitter interface {
	Emit(event string, payload json.RawMessage) error
	Close() error
}

// Handle is one authenticated connection. The identity is fixed for the life
// of the handle and handles are never reused.
type Handle struct {
	ID       string
	Identity auth.Identity

	emitter Emitter
}

func (h *Handle) UserID() string { return h.Identity.UserID }

const registryShards = 32

// Registry tracks userID -> live connections. Users are spread over shards so
// that connects and disconnects of unrelated users do not contend; everything
// touching one user's presence set happens under that user's shard lock.
type Registry struct {
	shards [registryShards]registryShard
	byID   sync.Map // connectionID -> *Handle
}

type registryShard struct {
	mu    sync.RWMutex
	users map[string]map[string]*Handle
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].users = make(map[string]map[string]*Handle)
	}
	return r
}

func (r *Registry) shard(userID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%registryShards]
}

// Register adds a handle for identity under connectionID. becameOnline is true
// when this is the user's only live connection.
func (r *Registry) Register(connectionID string, identity auth.Identity, emitter Emitter) (h *Handle, becameOnline bool) {
	h = &Handle{ID: connectionID, Identity: identity, emitter: emitter}

	s := r.shard(identity.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.users[identity.UserID]
	if set == nil {
		set = make(map[string]*Handle)
		s.users[identity.UserID] = set
	}
	set[connectionID] = h
	r.byID.Store(connectionID, h)
	return h, len(set) == 1
}

// Unregister removes the connection. nowOffline is true only for the call that
// emptied the user's presence set; unknown ids are a no-op.
func (r *Registry) Unregister(connectionID string) (h *Handle, nowOffline bool) {
	v, ok := r.byID.Load(connectionID)
	if !ok {
		return nil, false
	}
	h = v.(*Handle)

	s := r.shard(h.UserID())
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.users[h.UserID()]
	if _, ok := set[connectionID]; !ok {
		return h, false
	}
	delete(set, connectionID)
	r.byID.Delete(connectionID)
	if len(set) == 0 {
		delete(s.users, h.UserID())
		return h, true
	}
	return h, false
}

func (r *Registry) Lookup(connectionID string) (*Handle, bool) {
	v, ok := r.byID.Load(connectionID)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// ConnectionsOf returns a snapshot of the user's live handles.
func (r *Registry) ConnectionsOf(userID string) []*Handle {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	out := make([]*Handle, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Online(userID string) bool {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}

// All returns a snapshot of every live handle.
func (r *Registry) All() []*Handle {
	var out []*Handle
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, set := range s.users {
			for _, h := range set {
				out = append(out, h)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Counts returns (connections, users).
func (r *Registry) Counts() (int, int) {
	conns, users := 0, 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		users += len(s.users)
		for _, set := range s.users {
			conns += len(set)
		}
		s.mu.RUnlock()
	}
	return conns, users
}
