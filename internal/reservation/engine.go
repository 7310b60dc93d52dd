package reservation

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"asset-reservation-backend/internal/clock"
)

// latestEnd is the last instant stored as int64 nanoseconds since the epoch.
// No reservation may end after it.
var latestEnd = time.Unix(0, math.MaxInt64).UTC()

// Snapshot is the complete durable state of an engine.
type Snapshot struct {
	Assets            []Asset
	Reservations      []Reservation
	NextAssetID       AssetID
	NextReservationID ReservationID
}

// Persister stores engine mutations. Each call must be atomic: either the
// whole change is durable or none of it is.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	CreateAsset(ctx context.Context, a Asset) error
	DeleteAsset(ctx context.Context, id AssetID) error
	CreateReservation(ctx context.Context, r Reservation) error
	UpdateReservation(ctx context.Context, r Reservation) error
}

// Engine is the reservation engine: an asset registry and a reservation
// ledger behind one lock. Mutations hold the write lock for the whole
// check-persist-apply sequence; queries share the read lock and observe a
// consistent snapshot.
type Engine struct {
	mu     sync.RWMutex
	assets *registry
	ledger *ledger

	clock   clock.Clock
	persist Persister
	events  EventSink
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Defaults to the real UTC clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPersister makes every mutation durable through p before it is applied.
func WithPersister(p Persister) Option {
	return func(e *Engine) { e.persist = p }
}

// WithEventSink sets where lifecycle events are published.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.events = s }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an empty engine. Without WithPersister state lives in
// memory only.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		assets:  newRegistry(),
		ledger:  newLedger(),
		clock:   clock.NewRealClock(),
		persist: memoryPersister{},
		events:  discardSink{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces the engine state with the persisted snapshot. Reservations
// already expired at load time are not indexed and never reported to the
// sweeper.
func (e *Engine) Load(ctx context.Context) error {
	now := e.clock.Now()
	snap, err := e.persist.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load engine state")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.assets = newRegistry()
	e.ledger = newLedger()
	for _, a := range snap.Assets {
		e.assets.insert(a)
	}
	for _, r := range snap.Reservations {
		e.ledger.insert(r)
		if !r.Cancelled() && !now.Before(r.EndTime) {
			e.ledger.unindex(r.AssetID, r.ID)
		}
	}
	if snap.NextAssetID > e.assets.nextID {
		e.assets.nextID = snap.NextAssetID
	}
	if snap.NextReservationID > e.ledger.nextID {
		e.ledger.nextID = snap.NextReservationID
	}

	e.logger.Info("reservation engine state loaded",
		"assets", len(snap.Assets),
		"reservations", len(snap.Reservations),
		"next_asset_id", uint64(e.assets.nextID),
		"next_reservation_id", uint64(e.ledger.nextID))
	return nil
}

// AddAsset registers a new asset and returns its id.
func (e *Engine) AddAsset(ctx context.Context, name string) (AssetID, error) {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.assets.prepare(name, now)
	if err != nil {
		return 0, err
	}
	if err := e.persist.CreateAsset(ctx, a); err != nil {
		return 0, errors.Wrapf(err, "persist asset %d", a.ID)
	}
	e.assets.insert(a)

	e.logger.Debug("asset added", "asset_id", uint64(a.ID), "name", a.Name)
	return a.ID, nil
}

// RemoveAsset deletes an asset that has no active reservation. Past
// reservations on it stay in the ledger.
func (e *Engine) RemoveAsset(ctx context.Context, id AssetID) error {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.assets.get(id); !ok {
		return notFoundf("asset %d not found", id)
	}
	if e.ledger.hasActive(id, now) {
		return conflictf("asset %d has an active reservation", id)
	}
	if err := e.persist.DeleteAsset(ctx, id); err != nil {
		return errors.Wrapf(err, "persist removal of asset %d", id)
	}
	e.assets.remove(id)

	e.logger.Debug("asset removed", "asset_id", uint64(id))
	return nil
}

// Reserve books assetID for caller from now for one period.
func (e *Engine) Reserve(ctx context.Context, caller Principal, assetID AssetID, period Period) (ReservationID, error) {
	now := e.clock.Now()
	return e.reserve(ctx, caller, assetID, period, now, now)
}

// ReserveAt books assetID for caller from start for one period. start must
// not lie in the past.
func (e *Engine) ReserveAt(ctx context.Context, caller Principal, assetID AssetID, period Period, start time.Time) (ReservationID, error) {
	now := e.clock.Now()
	if start.Before(now) {
		return 0, invalidArgumentf("start time %s is in the past", start.Format(time.RFC3339Nano))
	}
	return e.reserve(ctx, caller, assetID, period, start, now)
}

func (e *Engine) reserve(ctx context.Context, caller Principal, assetID AssetID, period Period, start, now time.Time) (ReservationID, error) {
	if caller == "" {
		return 0, invalidArgumentf("caller identity is required")
	}
	if !period.Valid() {
		return 0, invalidArgumentf("unknown period %s", period)
	}
	end := start.Add(period.Duration())
	if end.After(latestEnd) {
		return 0, invalidArgumentf("reservation would end after %s", latestEnd.Format(time.RFC3339))
	}

	e.mu.Lock()
	r, err := e.reserveLocked(ctx, caller, assetID, period, start, end, now)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}

	e.events.Publish(newEvent(EventReserved, r, now))
	return r.ID, nil
}

func (e *Engine) reserveLocked(ctx context.Context, caller Principal, assetID AssetID, period Period, start, end, now time.Time) (Reservation, error) {
	if _, ok := e.assets.get(assetID); !ok {
		return Reservation{}, notFoundf("asset %d not found", assetID)
	}

	if other, found := e.ledger.conflicting(assetID, start, end, now, 0, false); found {
		return Reservation{}, conflictf("asset %d is already reserved until %s (reservation %d)",
			assetID, other.EndTime.Format(time.RFC3339), other.ID)
	}

	r := Reservation{
		ID:        e.ledger.nextID,
		AssetID:   assetID,
		UserID:    caller,
		StartTime: start,
		EndTime:   end,
		Period:    period,
		CreatedAt: now,
	}
	if err := e.persist.CreateReservation(ctx, r); err != nil {
		return Reservation{}, errors.Wrapf(err, "persist reservation %d", r.ID)
	}
	e.ledger.insert(r)

	e.logger.Debug("asset reserved",
		"reservation_id", uint64(r.ID), "asset_id", uint64(assetID), "user_id", string(caller),
		"period", period.String())
	return r, nil
}

// Extend pushes the end of an active reservation forward by one more period
// of its own class. Only the owner may extend.
func (e *Engine) Extend(ctx context.Context, caller Principal, id ReservationID) (ReservationView, error) {
	now := e.clock.Now()

	e.mu.Lock()
	r, err := e.extendLocked(ctx, caller, id, now)
	e.mu.Unlock()
	if err != nil {
		return ReservationView{}, err
	}

	e.events.Publish(newEvent(EventExtended, r, now))
	return newReservationView(r, now), nil
}

func (e *Engine) extendLocked(ctx context.Context, caller Principal, id ReservationID, now time.Time) (Reservation, error) {
	stored, ok := e.ledger.get(id)
	if !ok || !stored.ActiveAt(now) {
		return Reservation{}, notFoundf("reservation %d not found", id)
	}
	if caller != stored.UserID {
		return Reservation{}, unauthorizedf("reservation %d belongs to another user", id)
	}

	candidateEnd := stored.EndTime.Add(stored.Period.Duration())
	if candidateEnd.After(latestEnd) {
		return Reservation{}, conflictf("reservation %d cannot be extended past %s", id, latestEnd.Format(time.RFC3339))
	}
	if other, found := e.ledger.conflicting(stored.AssetID, stored.StartTime, candidateEnd, now, id, true); found {
		return Reservation{}, conflictf("extending reservation %d would overlap reservation %d", id, other.ID)
	}

	updated := copyReservation(stored)
	updated.EndTime = candidateEnd
	if err := e.persist.UpdateReservation(ctx, updated); err != nil {
		return Reservation{}, errors.Wrapf(err, "persist extension of reservation %d", id)
	}
	e.ledger.update(updated)

	e.logger.Debug("reservation extended", "reservation_id", uint64(id), "end_time", candidateEnd)
	return updated, nil
}

// Cancel marks a reservation cancelled, releasing its asset. Only the owner
// may cancel; a reservation can be cancelled once.
func (e *Engine) Cancel(ctx context.Context, caller Principal, id ReservationID) error {
	now := e.clock.Now()

	e.mu.Lock()
	r, err := e.cancelLocked(ctx, caller, id, now)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.events.Publish(newEvent(EventCancelled, r, now))
	return nil
}

func (e *Engine) cancelLocked(ctx context.Context, caller Principal, id ReservationID, now time.Time) (Reservation, error) {
	stored, ok := e.ledger.get(id)
	if !ok || stored.Cancelled() {
		return Reservation{}, notFoundf("reservation %d not found", id)
	}
	if caller != stored.UserID {
		return Reservation{}, unauthorizedf("reservation %d belongs to another user", id)
	}

	updated := copyReservation(stored)
	cancelledAt := now
	updated.CancelledAt = &cancelledAt
	if err := e.persist.UpdateReservation(ctx, updated); err != nil {
		return Reservation{}, errors.Wrapf(err, "persist cancellation of reservation %d", id)
	}
	e.ledger.update(updated)

	e.logger.Debug("reservation cancelled", "reservation_id", uint64(id))
	return updated, nil
}

// Assets lists all assets in creation order, each annotated with the
// reservation holding it right now.
func (e *Engine) Assets() []AssetView {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	assets := e.assets.list()
	out := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		v := AssetView{ID: a.ID, Name: a.Name}
		if r, ok := e.ledger.current(a.ID, now); ok {
			v.Reservation = &AssetReservation{
				ID:      r.ID,
				UserID:  r.UserID,
				EndTime: r.EndTime.UnixNano(),
			}
		}
		out = append(out, v)
	}
	return out
}

// Reservations lists every reservation, including cancelled and expired ones.
func (e *Engine) Reservations() []ReservationView {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	return newReservationViews(e.ledger.list(nil), now)
}

// UserReservations lists the reservations owned by caller.
func (e *Engine) UserReservations(caller Principal) []ReservationView {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	return newReservationViews(e.ledger.list(func(r *Reservation) bool {
		return r.UserID == caller
	}), now)
}

// Reservation returns the projection of a single reservation.
func (e *Engine) Reservation(id ReservationID) (ReservationView, error) {
	now := e.clock.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.ledger.get(id)
	if !ok {
		return ReservationView{}, notFoundf("reservation %d not found", id)
	}
	return newReservationView(copyReservation(r), now), nil
}

// CollectExpired returns the reservations that have expired by now and were
// not returned by an earlier call, and publishes an expired event for each.
// Returned reservations leave the asset index, so conflict checks only scan
// live bookings. now is capped at the engine clock.
func (e *Engine) CollectExpired(now time.Time) []Reservation {
	if clockNow := e.clock.Now(); clockNow.Before(now) {
		now = clockNow
	}

	e.mu.Lock()
	expired := e.ledger.expired(now)
	e.mu.Unlock()

	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	for _, r := range expired {
		e.events.Publish(newEvent(EventExpired, r, now))
	}
	return expired
}

type memoryPersister struct{}

func (memoryPersister) Load(context.Context) (Snapshot, error) { return Snapshot{}, nil }

func (memoryPersister) CreateAsset(context.Context, Asset) error { return nil }

func (memoryPersister) DeleteAsset(context.Context, AssetID) error { return nil }

func (memoryPersister) CreateReservation(context.Context, Reservation) error { return nil }

func (memoryPersister) UpdateReservation(context.Context, Reservation) error { return nil }
