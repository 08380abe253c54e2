package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"realtime-hub/internal/model"
)

// Dispatch applies one client event from connection h. args are the event
// arguments as sent on the wire; only the first one is read. Errors are for
// the sender (ack replies); they never affect other connections.
func (h *Hub) Dispatch(c *Handle, event string, args []json.RawMessage) error {
	var arg json.RawMessage
	if len(args) > 0 {
		arg = args[0]
	}

	switch event {
	case model.EventConversationJoin:
		id, err := conversationID(arg)
		if err != nil {
			return err
		}
		return h.Join(c.ID, id)

	case model.EventConversationLeave:
		id, err := conversationID(arg)
		if err != nil {
			return err
		}
		return h.Leave(c.ID, id)

	case model.EventMessageSend:
		var body model.MessageSend
		if err := decode(arg, &body); err != nil {
			return err
		}
		if body.ConversationID == "" || isNull(body.Message) {
			return ErrInvalidPayload
		}
		h.router.BroadcastToRoom(ConversationRoom(body.ConversationID), model.EventMessageNew, body.Message, c.ID)
		return nil

	case model.EventMessageTyping:
		var body model.Typing
		if err := decode(arg, &body); err != nil {
			return err
		}
		if body.ConversationID == "" {
			return ErrInvalidPayload
		}
		body.UserID = c.UserID()
		h.router.BroadcastToRoom(ConversationRoom(body.ConversationID), model.EventMessageTyping, body, c.ID)
		return nil

	case model.EventMessageRead:
		var body model.ReadReceipt
		if err := decode(arg, &body); err != nil {
			return err
		}
		if body.ConversationID == "" || body.MessageID == "" {
			return ErrInvalidPayload
		}
		body.UserID = c.UserID()
		h.router.BroadcastToRoom(ConversationRoom(body.ConversationID), model.EventMessageRead, body, c.ID)
		return nil

	case model.EventNotificationSend:
		var body model.NotificationSend
		if err := decode(arg, &body); err != nil {
			return err
		}
		if body.UserID == "" {
			return ErrMissingTarget
		}
		h.router.UnicastToUser(body.UserID, model.EventNotificationNew, body.Notification)
		return nil

	case model.EventAssignmentUpdate:
		return h.assignmentUpdate(arg)

	case model.EventCallOffer, model.EventCallAnswer, model.EventCallICECandidate, model.EventCallEnd:
		kind, _ := signalKindOf(event)
		_, err := h.relay.Relay(c.Identity, kind, arg)
		return err

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

func (h *Hub) assignmentUpdate(arg json.RawMessage) error {
	var body model.AssignmentUpdate
	if err := decode(arg, &body); err != nil {
		return err
	}
	if body.AssignmentID == "" || isNull(body.Update) {
		return ErrInvalidPayload
	}
	var change model.AssignmentChange
	if err := decode(body.Update, &change); err != nil {
		return err
	}

	out := model.AssignmentUpdate{AssignmentID: body.AssignmentID, Update: body.Update}
	if change.StudentID != "" {
		h.router.UnicastToUser(change.StudentID, model.EventAssignmentUpdated, out)
	}
	if change.CoachID != "" && change.CoachID != change.StudentID {
		h.router.UnicastToUser(change.CoachID, model.EventAssignmentUpdated, out)
	}
	return nil
}

// conversationID accepts "42", 42 or {"conversationId": "42"}.
func conversationID(arg json.RawMessage) (string, error) {
	arg = bytes.TrimSpace(arg)
	if isNull(arg) {
		return "", ErrInvalidPayload
	}

	var id string
	switch arg[0] {
	case '"':
		if err := json.Unmarshal(arg, &id); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	case '{':
		var ref model.ConversationRef
		if err := json.Unmarshal(arg, &ref); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		id = ref.ConversationID
	default:
		var n json.Number
		if err := json.Unmarshal(arg, &n); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		id = n.String()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidPayload
	}
	return id, nil
}

func decode(arg json.RawMessage, v any) error {
	if isNull(arg) {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(arg, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
