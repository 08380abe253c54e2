package model

import "encoding/json"

// Client-originated event names.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventMessageTyping     = "message:typing"
	EventMessageRead       = "message:read"
	EventNotificationSend  = "notification:send"
	EventAssignmentUpdate  = "assignment:update"
	EventCallOffer         = "call:offer"
	EventCallAnswer        = "call:answer"
	EventCallICECandidate  = "call:ice-candidate"
	EventCallEnd           = "call:end"
)

// Server-originated event names. Typing, read and call events reuse the
// client names.
const (
	EventUserOnline        = "user:online"
	EventUserOffline       = "user:offline"
	EventMessageNew        = "message:new"
	EventNotificationNew   = "notification:new"
	EventAssignmentUpdated = "assignment:updated"
)

type Presence struct {
	UserID string `json:"userId"`
}

// ConversationRef is the object form of conversation:join/leave. Clients may
// also send the bare id string.
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

type MessageSend struct {
	ConversationID string          `json:"conversationId"`
	Message        json.RawMessage `json:"message"`
}

type Typing struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

type ReadReceipt struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId,omitempty"`
}

type NotificationSend struct {
	UserID       string          `json:"userId"`
	Notification json.RawMessage `json:"notification"`
}

type AssignmentChange struct {
	StudentID string `json:"studentId,omitempty"`
	CoachID   string `json:"coachId,omitempty"`
}

type AssignmentUpdate struct {
	AssignmentID string          `json:"assignmentId"`
	Update       json.RawMessage `json:"update"`
}

// SignalTarget is the part of a call:* payload the hub reads. Everything
// else is relayed untouched.
type SignalTarget struct {
	To string `json:"to"`
}
