package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_BroadcastExcludesOnlyTheSendingConnection(t *testing.T) {
	h := newTestHub(t)
	tab1, rec1 := connect(t, h, "alice")
	tab2, rec2 := connect(t, h, "alice")
	bob, recBob := connect(t, h, "bob")
	for _, c := range []*Handle{tab1, tab2, bob} {
		require.NoError(t, h.Join(c.ID, "7"))
	}

	report := h.Router().BroadcastToRoom(ConversationRoom("7"), "message:new", map[string]string{"id": "m1"}, tab1.ID)
	require.Equal(t, 2, report.Delivered())
	require.Zero(t, report.Dropped())

	require.Empty(t, rec1.named("message:new"))
	require.Len(t, rec2.named("message:new"), 1)
	require.Len(t, recBob.named("message:new"), 1)
}

func TestRouter_StaleRoomDeliversToNobody(t *testing.T) {
	h := newTestHub(t)
	a, _ := connect(t, h, "alice")
	require.NoError(t, h.Join(a.ID, "5"))
	h.Disconnect(a.ID)

	report := h.Router().BroadcastToRoom(ConversationRoom("5"), "message:new", map[string]string{"id": "x"}, "")
	require.Empty(t, report.Deliveries)
}

func TestRouter_FailingConnectionDoesNotStopFanOut(t *testing.T) {
	h := newTestHub(t)
	bad, badRec := connect(t, h, "bad")
	badRec.fail = errWrite
	panicky, panicRec := connect(t, h, "panicky")
	good, goodRec := connect(t, h, "good")
	for _, c := range []*Handle{bad, panicky, good} {
		require.NoError(t, h.Join(c.ID, "1"))
	}
	panicRec.panics = true

	report := h.Router().BroadcastToRoom(ConversationRoom("1"), "message:new", map[string]string{"id": "m"}, "")
	require.Equal(t, 1, report.Delivered())
	require.Equal(t, 2, report.Dropped())
	require.Len(t, goodRec.named("message:new"), 1)

	for _, d := range report.Deliveries {
		if d.ConnectionID == bad.ID {
			require.ErrorIs(t, d.Reason, errWrite)
		}
		if d.ConnectionID == panicky.ID {
			require.ErrorIs(t, d.Reason, errEmitPanic)
		}
	}
}

func TestRouter_UnicastReachesEveryTab(t *testing.T) {
	h := newTestHub(t)
	_, rec1 := connect(t, h, "alice")
	_, rec2 := connect(t, h, "alice")
	_, recBob := connect(t, h, "bob")

	report := h.Router().UnicastToUser("alice", "notification:new", json.RawMessage(`{"n":1}`))
	require.Equal(t, 2, report.Delivered())
	require.Len(t, rec1.named("notification:new"), 1)
	require.Len(t, rec2.named("notification:new"), 1)
	require.Empty(t, recBob.named("notification:new"))

	report = h.Router().UnicastToUser("nobody", "notification:new", json.RawMessage(`{}`))
	require.Empty(t, report.Deliveries)
}

func TestRouter_PreservesOrderPerSubscriber(t *testing.T) {
	h := newTestHub(t)
	a, _ := connect(t, h, "alice")
	b, recB := connect(t, h, "bob")
	require.NoError(t, h.Join(a.ID, "3"))
	require.NoError(t, h.Join(b.ID, "3"))

	for i := 0; i < 20; i++ {
		h.Router().BroadcastToRoom(ConversationRoom("3"), "message:new", map[string]int{"n": i}, a.ID)
	}
	got := recB.named("message:new")
	require.Len(t, got, 20)
	for i, e := range got {
		require.Equal(t, float64(i), decodeMap(t, e.Payload)["n"])
	}
}

func TestRouter_NilRawPayloadIsNull(t *testing.T) {
	h := newTestHub(t)
	_, rec := connect(t, h, "alice")

	h.Router().UnicastToUser("alice", "notification:new", json.RawMessage(nil))
	got := rec.named("notification:new")
	require.Len(t, got, 1)
	require.JSONEq(t, "null", string(got[0].Payload))
}
