package socketio

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type enginePacketType byte

const (
	engineOpen    enginePacketType = '0'
	engineClose   enginePacketType = '1'
	enginePing    enginePacketType = '2'
	enginePong    enginePacketType = '3'
	engineMessage enginePacketType = '4'
)

type socketPacketType byte

const (
	socketConnect      socketPacketType = '0'
	socketDisconnect   socketPacketType = '1'
	socketEvent        socketPacketType = '2'
	socketAck          socketPacketType = '3'
	socketConnectError socketPacketType = '4'
)

var (
	errEmptyPacket      = errors.New("empty packet")
	errNotEvent         = errors.New("not an event packet")
	errInvalidEvent     = errors.New("invalid event payload")
	errMissingEventArg  = errors.New("missing event name")
	errUnknownNamespace = errors.New("unknown namespace")
)

const rootNamespace = "/"

// socketPacket is a decoded Socket.IO packet without its engine prefix.
// Data is the raw JSON after the namespace and ack id.
type socketPacket struct {
	Type      socketPacketType
	Namespace string
	ID        *int
	Data      string
}

func parseSocketPacket(payload string) (socketPacket, error) {
	if payload == "" {
		return socketPacket{}, errEmptyPacket
	}
	p := socketPacket{Type: socketPacketType(payload[0]), Namespace: rootNamespace}
	rest := payload[1:]

	if strings.HasPrefix(rest, "/") {
		if comma := strings.IndexByte(rest, ','); comma != -1 {
			p.Namespace, rest = rest[:comma], rest[comma+1:]
		} else {
			p.Namespace, rest = rest, ""
		}
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		if id, err := strconv.Atoi(rest[:i]); err == nil {
			p.ID = &id
			rest = rest[i:]
		}
	}
	p.Data = rest
	return p, nil
}

type eventPacket struct {
	Namespace string
	ID        *int
	Event     string
	Args      []json.RawMessage
}

func parseEventPacket(payload string) (eventPacket, error) {
	p, err := parseSocketPacket(payload)
	if err != nil {
		return eventPacket{}, err
	}
	if p.Type != socketEvent {
		return eventPacket{}, errNotEvent
	}
	if !strings.HasPrefix(p.Data, "[") {
		return eventPacket{}, errInvalidEvent
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(p.Data), &arr); err != nil {
		return eventPacket{}, err
	}
	if len(arr) == 0 {
		return eventPacket{}, errMissingEventArg
	}
	var name string
	if err := json.Unmarshal(arr[0], &name); err != nil || name == "" {
		return eventPacket{}, errMissingEventArg
	}
	return eventPacket{Namespace: p.Namespace, ID: p.ID, Event: name, Args: arr[1:]}, nil
}

// buildPacket renders an engine message carrying one Socket.IO packet.
func buildPacket(t socketPacketType, namespace string, id *int, data any) (string, error) {
	var b strings.Builder
	b.WriteByte(byte(engineMessage))
	b.WriteByte(byte(t))
	if namespace != "" && namespace != rootNamespace {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
	if id != nil {
		b.WriteString(strconv.Itoa(*id))
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return "", err
		}
		b.Write(raw)
	}
	return b.String(), nil
}

func buildEventPacket(namespace, event string, payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return buildPacket(socketEvent, namespace, nil, []any{event, payload})
}

func buildConnectPacket(namespace, sid string) (string, error) {
	return buildPacket(socketConnect, namespace, nil, map[string]string{"sid": sid})
}

func buildConnectErrorPacket(namespace, message string) (string, error) {
	return buildPacket(socketConnectError, namespace, nil, map[string]string{"message": message})
}

func buildAckPacket(namespace string, id int, args ...any) (string, error) {
	if args == nil {
		args = make([]any, 0)
	}
	return buildPacket(socketAck, namespace, &id, args)
}

type openPacket struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
	MaxPayload   int64    `json:"maxPayload"`
}

func buildOpenPacket(p openPacket) (string, error) {
	if p.Upgrades == nil {
		p.Upgrades = []string{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(engineOpen) + string(raw), nil
}
