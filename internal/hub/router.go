package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Router fans events out to live connections. It holds no state of its own;
// subscribers are looked up at send time and no lock is held while emitting.
type Router struct {
	registry *Registry
	rooms    *Rooms
	log      zerolog.Logger
}

func NewRouter(registry *Registry, rooms *Rooms, log zerolog.Logger) *Router {
	return &Router{registry: registry, rooms: rooms, log: log}
}

// BroadcastToRoom delivers to every member of roomID except excludeConnectionID
// (pass "" to exclude nobody).
func (r *Router) BroadcastToRoom(roomID, event string, payload any, excludeConnectionID string) Report {
	report := Report{Event: event, Target: roomID}
	raw, ok := r.encode(event, payload)
	if !ok {
		return report
	}

	for _, id := range r.rooms.MembersOf(roomID) {
		if id == excludeConnectionID {
			continue
		}
		h, ok := r.registry.Lookup(id)
		if !ok {
			report.Deliveries = append(report.Deliveries, Delivery{ConnectionID: id, Status: Dropped, Reason: ErrConnectionGone})
			continue
		}
		report.Deliveries = append(report.Deliveries, r.deliver(h, event, raw))
	}
	r.logReport(report)
	return report
}

// UnicastToUser delivers to every live connection of userID.
func (r *Router) UnicastToUser(userID, event string, payload any) Report {
	report := Report{Event: event, Target: PersonalRoom(userID)}
	raw, ok := r.encode(event, payload)
	if !ok {
		return report
	}

	for _, h := range r.registry.ConnectionsOf(userID) {
		report.Deliveries = append(report.Deliveries, r.deliver(h, event, raw))
	}
	r.logReport(report)
	return report
}

// BroadcastAll delivers to every live connection; presence uses it.
func (r *Router) BroadcastAll(event string, payload any, excludeConnectionID string) Report {
	report := Report{Event: event, Target: "*"}
	raw, ok := r.encode(event, payload)
	if !ok {
		return report
	}

	for _, h := range r.registry.All() {
		if h.ID == excludeConnectionID {
			continue
		}
		report.Deliveries = append(report.Deliveries, r.deliver(h, event, raw))
	}
	r.logReport(report)
	return report
}

func (r *Router) encode(event string, payload any) (json.RawMessage, bool) {
	if raw, ok := payload.(json.RawMessage); ok {
		if len(raw) == 0 {
			return json.RawMessage("null"), true
		}
		return raw, true
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("encode payload")
		return nil, false
	}
	return raw, true
}

func (r *Router) deliver(h *Handle, event string, raw json.RawMessage) (d Delivery) {
	d = Delivery{ConnectionID: h.ID, Status: Delivered}
	defer func() {
		if p := recover(); p != nil {
			d.Status = Dropped
			d.Reason = fmt.Errorf("%w: %v", errEmitPanic, p)
		}
	}()

	if err := h.emitter.Emit(event, raw); err != nil {
		d.Status = Dropped
		d.Reason = err
	}
	return d
}

func (r *Router) logReport(report Report) {
	if report.Dropped() == 0 {
		r.log.Debug().Str("event", report.Event).Str("target", report.Target).Int("delivered", report.Delivered()).Msg("fan-out")
		return
	}
	ev := r.log.Warn().Str("event", report.Event).Str("target", report.Target).
		Int("delivered", report.Delivered()).Int("dropped", report.Dropped())
	for _, d := range report.Deliveries {
		if d.Status == Dropped && !errors.Is(d.Reason, ErrConnectionGone) {
			ev = ev.AnErr("first_error", d.Reason).Str("first_connection", d.ConnectionID)
			break
		}
	}
	ev.Msg("fan-out dropped sends")
}
