package reservation

import (
	"time"
)

// ReservationID identifies a reservation, independently of asset ids.
type ReservationID uint64

// Principal is the opaque identity of an authenticated caller. Two principals
// are the same caller iff their values are equal.
type Principal string

// Reservation is a claim by one principal on one asset for [StartTime, EndTime).
type Reservation struct {
	ID          ReservationID
	AssetID     AssetID
	UserID      Principal
	StartTime   time.Time
	EndTime     time.Time
	Period      Period
	CreatedAt   time.Time
	CancelledAt *time.Time
}

// Cancelled reports whether the reservation was cancelled by its owner.
func (r Reservation) Cancelled() bool {
	return r.CancelledAt != nil
}

// ActiveAt reports whether the reservation still holds its asset at now:
// not cancelled and not yet ended. Expiry is derived from the clock only.
func (r Reservation) ActiveAt(now time.Time) bool {
	return !r.Cancelled() && now.Before(r.EndTime)
}

// CoversAt reports whether now falls inside the reservation's active window.
func (r Reservation) CoversAt(now time.Time) bool {
	return r.ActiveAt(now) && !now.Before(r.StartTime)
}

// overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching intervals do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ledger owns every reservation ever made, active or not. It is not safe for
// concurrent use; the Engine serialises access.
type ledger struct {
	reservations map[ReservationID]*Reservation
	order        []ReservationID
	// byAsset lists the reservations of each asset that are neither cancelled
	// nor reported as expired.
	byAsset map[AssetID][]ReservationID
	nextID  ReservationID
}

func newLedger() *ledger {
	return &ledger{
		reservations: make(map[ReservationID]*Reservation),
		byAsset:      make(map[AssetID][]ReservationID),
	}
}

func (l *ledger) get(id ReservationID) (*Reservation, bool) {
	r, ok := l.reservations[id]
	return r, ok
}

// conflicting returns the first active reservation on assetID, other than
// exclude, whose interval overlaps [start, end).
func (l *ledger) conflicting(assetID AssetID, start, end, now time.Time, exclude ReservationID, hasExclude bool) (*Reservation, bool) {
	for _, id := range l.byAsset[assetID] {
		if hasExclude && id == exclude {
			continue
		}
		other := l.reservations[id]
		if !other.ActiveAt(now) {
			continue
		}
		if overlaps(start, end, other.StartTime, other.EndTime) {
			return other, true
		}
	}
	return nil, false
}

// hasActive reports whether assetID has at least one active reservation.
func (l *ledger) hasActive(assetID AssetID, now time.Time) bool {
	for _, id := range l.byAsset[assetID] {
		if l.reservations[id].ActiveAt(now) {
			return true
		}
	}
	return false
}

// current returns the reservation on assetID covering now, if any.
func (l *ledger) current(assetID AssetID, now time.Time) (*Reservation, bool) {
	for _, id := range l.byAsset[assetID] {
		if r := l.reservations[id]; r.CoversAt(now) {
			return r, true
		}
	}
	return nil, false
}

func (l *ledger) insert(r Reservation) {
	stored := r
	l.reservations[r.ID] = &stored
	l.order = append(l.order, r.ID)
	if !r.Cancelled() {
		l.byAsset[r.AssetID] = append(l.byAsset[r.AssetID], r.ID)
	}
	if r.ID >= l.nextID {
		l.nextID = r.ID + 1
	}
}

// update replaces a stored reservation with r, keeping the asset index in
// step with cancellation.
func (l *ledger) update(r Reservation) {
	stored, ok := l.reservations[r.ID]
	if !ok {
		return
	}
	*stored = r
	if r.Cancelled() {
		l.unindex(r.AssetID, r.ID)
	}
}

// unindex drops id from the asset index. The reservation itself stays in the
// ledger.
func (l *ledger) unindex(assetID AssetID, id ReservationID) {
	ids := l.byAsset[assetID]
	for i, indexed := range ids {
		if indexed == id {
			l.byAsset[assetID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(l.byAsset[assetID]) == 0 {
		delete(l.byAsset, assetID)
	}
}

// expired returns the indexed reservations that have ended by now, removing
// them from the index so each is returned once.
func (l *ledger) expired(now time.Time) []Reservation {
	var out []Reservation
	for _, ids := range l.byAsset {
		for _, id := range ids {
			if r := l.reservations[id]; !now.Before(r.EndTime) {
				out = append(out, copyReservation(r))
			}
		}
	}
	for _, r := range out {
		l.unindex(r.AssetID, r.ID)
	}
	return out
}

// list returns copies of the reservations accepted by keep, in creation order.
func (l *ledger) list(keep func(*Reservation) bool) []Reservation {
	out := make([]Reservation, 0, len(l.order))
	for _, id := range l.order {
		r := l.reservations[id]
		if keep == nil || keep(r) {
			out = append(out, copyReservation(r))
		}
	}
	return out
}

func copyReservation(r *Reservation) Reservation {
	out := *r
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		out.CancelledAt = &at
	}
	return out
}
