package hub

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	personalRoomPrefix     = "user:"
	conversationRoomPrefix = "conversation:"
)

func PersonalRoom(userID string) string { return personalRoomPrefix + userID }

func ConversationRoom(conversationID string) string {
	return conversationRoomPrefix + conversationID
}

func IsPersonalRoom(roomID string) bool { return strings.HasPrefix(roomID, personalRoomPrefix) }

// Rooms keeps roomID -> connectionIDs and the inverse connectionID -> roomIDs.
// Both maps change only together under mu. A connection is attached from the
// moment it gets its personal room until DropConnection; joins for a
// connection that is not attached are ignored, so a join racing a drop can
// never resurrect a closed connection in a room.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
	rooms   map[string]map[string]struct{}

	log zerolog.Logger
}

func NewRooms(log zerolog.Logger) *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		rooms:   make(map[string]map[string]struct{}),
		log:     log,
	}
}

// Attach records a new connection together with its personal room.
func (r *Rooms) Attach(connectionID, personalRoom string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[connectionID]; !ok {
		r.rooms[connectionID] = make(map[string]struct{})
	}
	r.addLocked(connectionID, personalRoom)
}

// Join is idempotent. It reports whether the connection is a member of roomID
// afterwards, which is false only for detached connections.
func (r *Rooms) Join(connectionID, roomID string) bool {
	if roomID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[connectionID]; !ok {
		return false
	}
	r.addLocked(connectionID, roomID)
	return true
}

// Leave is idempotent. Personal rooms are never left explicitly.
func (r *Rooms) Leave(connectionID, roomID string) {
	if IsPersonalRoom(roomID) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connectionID, roomID)
}

// DropConnection removes the connection from every room and detaches it. It
// returns the rooms the connection was in.
func (r *Rooms) DropConnection(connectionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.rooms[connectionID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(joined))
	for roomID := range joined {
		out = append(out, roomID)
		r.removeLocked(connectionID, roomID)
	}
	delete(r.rooms, connectionID)
	return out
}

// MembersOf returns a snapshot of the connection ids in roomID.
func (r *Rooms) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[roomID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (r *Rooms) RoomsOf(connectionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.rooms[connectionID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (r *Rooms) IsMember(connectionID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[roomID][connectionID]
	return ok
}

// Count is the number of non-empty rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Rooms) addLocked(connectionID, roomID string) {
	set, ok := r.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.members[roomID] = set
	}
	set[connectionID] = struct{}{}
	r.rooms[connectionID][roomID] = struct{}{}
	r.checkLocked(connectionID, roomID)
}

func (r *Rooms) removeLocked(connectionID, roomID string) {
	if set, ok := r.members[roomID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(r.members, roomID)
		}
	}
	if joined, ok := r.rooms[connectionID]; ok {
		delete(joined, roomID)
	}
	r.checkLocked(connectionID, roomID)
}

// checkLocked verifies the forward and inverse entries for one pair agree.
// A mismatch is a bug in this file.
func (r *Rooms) checkLocked(connectionID, roomID string) {
	_, forward := r.members[roomID][connectionID]
	_, inverse := r.rooms[connectionID][roomID]
	if forward != inverse {
		r.log.Error().
			Str("connection", connectionID).
			Str("room", roomID).
			Bool("in_room", forward).
			Bool("in_connection", inverse).
			Msg("room index invariant violated")
	}
}

// Verify walks both indices and returns every pair that appears in only one of
// them.
func (r *Rooms) Verify() [][2]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bad [][2]string
	for roomID, set := range r.members {
		for connID := range set {
			if _, ok := r.rooms[connID][roomID]; !ok {
				bad = append(bad, [2]string{connID, roomID})
			}
		}
	}
	for connID, joined := range r.rooms {
		for roomID := range joined {
			if _, ok := r.members[roomID][connID]; !ok {
				bad = append(bad, [2]string{connID, roomID})
			}
		}
	}
	return bad
}
