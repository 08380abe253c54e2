package hub

import (
	"encoding/json"
	"fmt"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/model"
)

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalEnd          SignalKind = "end"
)

func (k SignalKind) Event() string { return "call:" + string(k) }

func signalKindOf(event string) (SignalKind, bool) {
	switch event {
	case model.EventCallOffer:
		return SignalOffer, true
	case model.EventCallAnswer:
		return SignalAnswer, true
	case model.EventCallICECandidate:
		return SignalICECandidate, true
	case model.EventCallEnd:
		return SignalEnd, true
	default:
		return "", false
	}
}

// Relay forwards call negotiation payloads point to point. Every payload
// reaches all of the target's connections tagged with the sender's user id.
// Sequential Relay calls from one sender land in each target connection's
// queue in call order, which is all the ordering offer/answer/ICE needs.
type Relay struct {
	router *Router
}

func NewRelay(router *Router) *Relay { return &Relay{router: router} }

// Relay returns an error only for payloads it cannot address. An offline
// target is not an error.
func (s *Relay) Relay(from auth.Identity, kind SignalKind, payload json.RawMessage) (Report, error) {
	var target model.SignalTarget
	if err := json.Unmarshal(payload, &target); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if target.To == "" {
		return Report{}, ErrMissingTarget
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	fromRaw, err := json.Marshal(from.UserID)
	if err != nil {
		return Report{}, err
	}
	fields["from"] = fromRaw

	return s.router.UnicastToUser(target.To, kind.Event(), fields), nil
}
