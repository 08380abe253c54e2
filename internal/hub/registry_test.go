package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-hub/internal/auth"
)

func TestRegistry_PresenceFollowsConnections(t *testing.T) {
	r := NewRegistry()
	id := auth.Identity{UserID: "u1"}

	_, first := r.Register("c1", id, &recorder{})
	require.True(t, first)
	_, second := r.Register("c2", id, &recorder{})
	require.False(t, second)
	require.True(t, r.Online("u1"))
	require.Len(t, r.ConnectionsOf("u1"), 2)

	_, offline := r.Unregister("c1")
	require.False(t, offline)
	require.True(t, r.Online("u1"))

	h, offline := r.Unregister("c2")
	require.True(t, offline)
	require.Equal(t, "u1", h.UserID())
	require.False(t, r.Online("u1"))
	require.Empty(t, r.ConnectionsOf("u1"))

	_, ok := r.Lookup("c2")
	require.False(t, ok)
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	h, offline := r.Unregister("missing")
	require.Nil(t, h)
	require.False(t, offline)
}

func TestRegistry_DoubleUnregisterReportsOfflineOnce(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", auth.Identity{UserID: "u1"}, &recorder{})

	var offline atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, off := r.Unregister("c1"); off {
				offline.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), offline.Load())
}

func TestRegistry_ConcurrentConnectDisconnectSameUser(t *testing.T) {
	r := NewRegistry()
	id := auth.Identity{UserID: "u1"}

	var online, offline atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			if _, first := r.Register(connID, id, &recorder{}); first {
				online.Add(1)
			}
			assert.True(t, r.Online("u1"))
			if _, off := r.Unregister(connID); off {
				offline.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.False(t, r.Online("u1"))
	require.Empty(t, r.ConnectionsOf("u1"))
	require.Equal(t, online.Load(), offline.Load())
	conns, users := r.Counts()
	require.Zero(t, conns)
	require.Zero(t, users)
}

func TestRegistry_AllAndCounts(t *testing.T) {
	r := NewRegistry()
	r.Register("a1", auth.Identity{UserID: "a"}, &recorder{})
	r.Register("a2", auth.Identity{UserID: "a"}, &recorder{})
	r.Register("b1", auth.Identity{UserID: "b"}, &recorder{})

	require.Len(t, r.All(), 3)
	conns, users := r.Counts()
	require.Equal(t, 3, conns)
	require.Equal(t, 2, users)
}
