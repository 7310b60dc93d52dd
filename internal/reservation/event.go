package reservation

import "time"

// EventKind names a reservation lifecycle transition.
type EventKind string

const (
	EventReserved  EventKind = "reserved"
	EventExtended  EventKind = "extended"
	EventCancelled EventKind = "cancelled"
	EventExpired   EventKind = "expired"
)

// Event records one lifecycle transition, as of the instant At.
type Event struct {
	Kind          EventKind
	ReservationID ReservationID
	AssetID       AssetID
	UserID        Principal
	StartTime     time.Time
	EndTime       time.Time
	At            time.Time
}

func newEvent(kind EventKind, r Reservation, at time.Time) Event {
	return Event{
		Kind:          kind,
		ReservationID: r.ID,
		AssetID:       r.AssetID,
		UserID:        r.UserID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		At:            at,
	}
}

// EventSink receives events after the operation that produced them has
// committed. Publish must not block for long.
type EventSink interface {
	Publish(Event)
}

type discardSink struct{}

func (discardSink) Publish(Event) {}
