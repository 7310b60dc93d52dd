package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-reservation-backend/internal/model"
	"asset-reservation-backend/internal/reservation"
)

// Store defines the interface for all database operations.
type Store interface {
	reservation.Persister

	// AppendEvents writes audit events in one batch.
	AppendEvents(ctx context.Context, events []reservation.Event) error
	// ReservationEvents returns the audit trail of one reservation, oldest first.
	ReservationEvents(ctx context.Context, id reservation.ReservationID) ([]reservation.Event, error)
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Load reads every asset, every reservation and the id sequences.
func (s *gormStore) Load(ctx context.Context) (reservation.Snapshot, error) {
	var snap reservation.Snapshot
	db := s.db.WithContext(ctx)

	var assets []model.Asset
	if err := db.Order("id").Find(&assets).Error; err != nil {
		return snap, errors.Wrap(err, "failed to load assets")
	}
	for _, row := range assets {
		snap.Assets = append(snap.Assets, fromAssetRow(row))
		if next := reservation.AssetID(row.ID) + 1; next > snap.NextAssetID {
			snap.NextAssetID = next
		}
	}

	var reservations []model.Reservation
	if err := db.Order("id").Find(&reservations).Error; err != nil {
		return snap, errors.Wrap(err, "failed to load reservations")
	}
	for _, row := range reservations {
		r, err := fromReservationRow(row)
		if err != nil {
			return snap, err
		}
		snap.Reservations = append(snap.Reservations, r)
		if next := r.ID + 1; next > snap.NextReservationID {
			snap.NextReservationID = next
		}
	}

	var sequences []model.Sequence
	if err := db.Find(&sequences).Error; err != nil {
		return snap, errors.Wrap(err, "failed to load sequences")
	}
	for _, seq := range sequences {
		switch seq.Name {
		case model.SequenceAssets:
			if next := reservation.AssetID(seq.Next); next > snap.NextAssetID {
				snap.NextAssetID = next
			}
		case model.SequenceReservations:
			if next := reservation.ReservationID(seq.Next); next > snap.NextReservationID {
				snap.NextReservationID = next
			}
		}
	}
	return snap, nil
}

// CreateAsset inserts the asset and advances the asset sequence past its id.
func (s *gormStore) CreateAsset(ctx context.Context, a reservation.Asset) error {
	row := toAssetRow(a)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrapf(err, "failed to insert asset %d", row.ID)
		}
		return upsertSequence(tx, model.SequenceAssets, row.ID+1)
	})
}

// DeleteAsset hard-deletes the asset row. Reservations referencing it stay.
func (s *gormStore) DeleteAsset(ctx context.Context, id reservation.AssetID) error {
	res := s.db.WithContext(ctx).Where("id = ?", uint64(id)).Delete(&model.Asset{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to delete asset %d", id)
	}
	if res.RowsAffected == 0 {
		return errors.Newf("asset %d is not stored", id)
	}
	return nil
}

// CreateReservation inserts the reservation and advances the reservation sequence.
func (s *gormStore) CreateReservation(ctx context.Context, r reservation.Reservation) error {
	row := toReservationRow(r)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrapf(err, "failed to insert reservation %d", row.ID)
		}
		return upsertSequence(tx, model.SequenceReservations, row.ID+1)
	})
}

// UpdateReservation writes the mutable columns of a reservation: its end and
// its cancellation instant.
func (s *gormStore) UpdateReservation(ctx context.Context, r reservation.Reservation) error {
	row := toReservationRow(r)
	res := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"end_ns":          row.EndNs,
			"cancelled_at_ns": row.CancelledAtNs,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update reservation %d", row.ID)
	}
	if res.RowsAffected == 0 {
		return errors.Newf("reservation %d is not stored", row.ID)
	}
	return nil
}

func (s *gormStore) AppendEvents(ctx context.Context, events []reservation.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.ReservationEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, toEventRow(ev))
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return errors.Wrapf(err, "failed to insert %d reservation events", len(rows))
	}
	return nil
}

func (s *gormStore) ReservationEvents(ctx context.Context, id reservation.ReservationID) ([]reservation.Event, error) {
	var rows []model.ReservationEvent
	if err := s.db.WithContext(ctx).
		Where("reservation_id = ?", uint64(id)).
		Order("at_ns, id").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to load events of reservation %d", id)
	}
	events := make([]reservation.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, fromEventRow(row))
	}
	return events, nil
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.PingContext(ctx)
}

func upsertSequence(tx *gorm.DB, name string, next uint64) error {
	seq := model.Sequence{Name: name, Next: next}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"next"}),
	}).Create(&seq).Error; err != nil {
		return errors.Wrapf(err, "failed to advance sequence %s", name)
	}
	return nil
}
