package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"realtime-hub/internal/auth"
)

type recorded struct {
	Event   string
	Payload json.RawMessage
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
	fail   error
	panics bool
	closed bool
}

func (r *recorder) Emit(event string, payload json.RawMessage) error {
	if r.panics {
		panic("boom")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, recorded{Event: event, Payload: append(json.RawMessage(nil), payload...)})
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) named(event string) []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorded
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

var errWrite = errors.New("write failed")

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, h.Start(ctx))
	return h
}

func connect(t *testing.T, h *Hub, userID string) (*Handle, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := h.Connect("", auth.Identity{UserID: userID}, rec)
	require.NoError(t, err)
	return c, rec
}

func decodeMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
