package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionGone means the connection closed between lookup and send.
	ErrConnectionGone = errors.New("connection gone")
	errEmitPanic      = errors.New("emitter panicked")
)

type DeliveryStatus int

const (
	Delivered DeliveryStatus = iota
	Dropped
)

func (s DeliveryStatus) String() string {
	if s == Delivered {
		return "delivered"
	}
	return "dropped"
}

// Delivery is the outcome of one send attempt to one connection.
type Delivery struct {
	ConnectionID string
	Status       DeliveryStatus
	Reason       error
}

// Report aggregates the deliveries of one fan-out. It is informational only:
// a broadcast never fails as a whole.
type Report struct {
	Event      string
	Target     string
	Deliveries []Delivery
}

func (r Report) Delivered() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Status == Delivered {
			n++
		}
	}
	return n
}

func (r Report) Dropped() int { return len(r.Deliveries) - r.Delivered() }

func (r Report) String() string {
	return fmt.Sprintf("%s -> %s: %d delivered, %d dropped", r.Event, r.Target, r.Delivered(), r.Dropped())
}
