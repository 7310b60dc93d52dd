package reservation

import (
	"time"
)

// Status is the derived state of a reservation at query time.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// StatusAt derives the status of r at now.
func (r Reservation) StatusAt(now time.Time) Status {
	switch {
	case r.Cancelled():
		return StatusCancelled
	case now.Before(r.EndTime):
		return StatusActive
	default:
		return StatusExpired
	}
}

// AssetView is the read projection of an asset. Reservation is set when a
// reservation covers the instant the view was taken.
type AssetView struct {
	ID          AssetID           `json:"id"`
	Name        string            `json:"name"`
	Reservation *AssetReservation `json:"reservation,omitempty"`
}

// AssetReservation summarises the live reservation of an asset.
type AssetReservation struct {
	ID      ReservationID `json:"id"`
	UserID  Principal     `json:"userId"`
	EndTime int64         `json:"endTime"`
}

// ReservationView is the read projection of a reservation. Timestamps are
// nanoseconds since the Unix epoch.
type ReservationView struct {
	ID          ReservationID `json:"id"`
	AssetID     AssetID       `json:"assetId"`
	UserID      Principal     `json:"userId"`
	StartTime   int64         `json:"startTime"`
	EndTime     int64         `json:"endTime"`
	Period      Period        `json:"period"`
	Status      Status        `json:"status"`
	CancelledAt *int64        `json:"cancelledAt,omitempty"`
}

func newReservationView(r Reservation, now time.Time) ReservationView {
	v := ReservationView{
		ID:        r.ID,
		AssetID:   r.AssetID,
		UserID:    r.UserID,
		StartTime: r.StartTime.UnixNano(),
		EndTime:   r.EndTime.UnixNano(),
		Period:    r.Period,
		Status:    r.StatusAt(now),
	}
	if r.CancelledAt != nil {
		ns := r.CancelledAt.UnixNano()
		v.CancelledAt = &ns
	}
	return v
}

func newReservationViews(rs []Reservation, now time.Time) []ReservationView {
	out := make([]ReservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReservationView(r, now))
	}
	return out
}
