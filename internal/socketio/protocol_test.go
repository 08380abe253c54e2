package socketio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventPacket(t *testing.T) {
	pkt, err := parseEventPacket(`2["message:send",{"conversationId":"42"}]`)
	require.NoError(t, err)
	require.Equal(t, "/", pkt.Namespace)
	require.Nil(t, pkt.ID)
	require.Equal(t, "message:send", pkt.Event)
	require.Len(t, pkt.Args, 1)
	require.JSONEq(t, `{"conversationId":"42"}`, string(pkt.Args[0]))
}

func TestParseEventPacket_NamespaceAndAckID(t *testing.T) {
	pkt, err := parseEventPacket(`2/chat,17["conversation:join","5"]`)
	require.NoError(t, err)
	require.Equal(t, "/chat", pkt.Namespace)
	require.NotNil(t, pkt.ID)
	require.Equal(t, 17, *pkt.ID)
	require.Equal(t, "conversation:join", pkt.Event)
}

func TestParseEventPacket_Errors(t *testing.T) {
	for _, payload := range []string{"", `0{}`, `2{}`, `2[]`, `2[1]`, `2["x"`} {
		_, err := parseEventPacket(payload)
		require.Error(t, err, payload)
	}
}

func TestParseSocketPacket_Connect(t *testing.T) {
	p, err := parseSocketPacket(`0{"token":"abc"}`)
	require.NoError(t, err)
	require.Equal(t, socketConnect, p.Type)
	require.Equal(t, `{"token":"abc"}`, p.Data)

	p, err = parseSocketPacket(`0/admin`)
	require.NoError(t, err)
	require.Equal(t, "/admin", p.Namespace)
	require.Empty(t, p.Data)
}

func TestBuildPackets(t *testing.T) {
	ev, err := buildEventPacket("/", "message:new", json.RawMessage(`{"id":"m1"}`))
	require.NoError(t, err)
	require.Equal(t, `42["message:new",{"id":"m1"}]`, ev)

	ev, err = buildEventPacket("/", "notification:new", nil)
	require.NoError(t, err)
	require.Equal(t, `42["notification:new",null]`, ev)

	ack, err := buildAckPacket("/", 3)
	require.NoError(t, err)
	require.Equal(t, `433[]`, ack)

	ack, err = buildAckPacket("/chat", 4, map[string]bool{"ok": true})
	require.NoError(t, err)
	require.Equal(t, `43/chat,4[{"ok":true}]`, ack)

	conn, err := buildConnectPacket("/", "sid-1")
	require.NoError(t, err)
	require.Equal(t, `40{"sid":"sid-1"}`, conn)

	cerr, err := buildConnectErrorPacket("/", "Missing token")
	require.NoError(t, err)
	require.Equal(t, `44{"message":"Missing token"}`, cerr)

	open, err := buildOpenPacket(openPacket{SID: "s", PingInterval: 25000, PingTimeout: 20000, MaxPayload: 10})
	require.NoError(t, err)
	require.Equal(t, `0{"sid":"s","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":10}`, open)
}
