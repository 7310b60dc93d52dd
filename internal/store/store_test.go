package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"asset-reservation-backend/internal/model"
	"asset-reservation-backend/internal/reservation"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a migrated sqlite database in a temp dir.
func newSQLiteDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Asset{}, &model.Reservation{}, &model.ReservationEvent{}, &model.Sequence{}))
	return db
}

func TestGormStore_CreateAsset(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "assets"`)).
		WithArgs(0, "Room A", t0.UnixNano()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sequences"`)+`.*ON CONFLICT \("name"\) DO UPDATE SET "next"="excluded"."next"`).
		WithArgs(model.SequenceAssets, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.CreateAsset(context.Background(), reservation.Asset{ID: 0, Name: "Room A", CreatedAt: t0})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateReservationRollsBack(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "reservations"`)).
		WithArgs(4, 1, "alice", Any{}, Any{}, "OneHour", Any{}, Any{}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sequences"`)).
		WithArgs(model.SequenceReservations, 5).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CreateReservation(context.Background(), reservation.Reservation{
		ID:        4,
		AssetID:   1,
		UserID:    "alice",
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
		Period:    reservation.OneHour,
		CreatedAt: t0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteAsset(t *testing.T) {
	testCases := []struct {
		name        string
		affected    int64
		expectedErr bool
	}{
		{name: "row deleted", affected: 1},
		{name: "row missing", affected: 0, expectedErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "assets" WHERE id = $1`)).
				WithArgs(7).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))
			mock.ExpectCommit()

			err := s.DeleteAsset(context.Background(), 7)
			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_UpdateReservation(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)
	cancelledAt := t0.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reservations" SET "cancelled_at_ns"=$1,"end_ns"=$2 WHERE id = $3`)).
		WithArgs(cancelledAt.UnixNano(), t0.Add(time.Hour).UnixNano(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateReservation(context.Background(), reservation.Reservation{
		ID:          3,
		AssetID:     1,
		UserID:      "alice",
		StartTime:   t0,
		EndTime:     t0.Add(time.Hour),
		Period:      reservation.OneHour,
		CancelledAt: &cancelledAt,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AppendEvents(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	events := []reservation.Event{
		{Kind: reservation.EventReserved, ReservationID: 1, AssetID: 2, UserID: "alice", StartTime: t0, EndTime: t0.Add(time.Hour), At: t0},
		{Kind: reservation.EventExtended, ReservationID: 1, AssetID: 2, UserID: "alice", StartTime: t0, EndTime: t0.Add(2 * time.Hour), At: t0.Add(time.Minute)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reservation_events"`)).
		WithArgs(1, 2, "alice", "reserved", Any{}, Any{}, Any{},
			1, 2, "alice", "extended", Any{}, Any{}, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectCommit()

	assert.NoError(t, s.AppendEvents(context.Background(), events))
	assert.NoError(t, s.AppendEvents(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LoadTakesHighestSequence(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "assets" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at_ns"}).
			AddRow(2, "Van", t0.UnixNano()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations" ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asset_id", "user_id", "start_ns", "end_ns", "period", "created_at_ns", "cancelled_at_ns"}).
			AddRow(0, 2, "bob", t0.UnixNano(), t0.Add(8*time.Hour).UnixNano(), "EightHours", t0.UnixNano(), nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sequences"`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "next"}).
			AddRow(model.SequenceAssets, 9).
			AddRow(model.SequenceReservations, 1))

	snap, err := s.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reservation.AssetID(9), snap.NextAssetID)
	assert.Equal(t, reservation.ReservationID(1), snap.NextReservationID)
	require.Len(t, snap.Reservations, 1)
	assert.Equal(t, reservation.EightHours, snap.Reservations[0].Period)
	assert.Equal(t, t0.Add(8*time.Hour), snap.Reservations[0].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, filepath.Join(t.TempDir(), "store.db"))
	s := NewGormStore(db)

	require.NoError(t, s.CreateAsset(ctx, reservation.Asset{ID: 0, Name: "Room A", CreatedAt: t0}))
	require.NoError(t, s.CreateAsset(ctx, reservation.Asset{ID: 1, Name: "Room B", CreatedAt: t0}))
	require.NoError(t, s.DeleteAsset(ctx, 1))

	r := reservation.Reservation{
		ID:        0,
		AssetID:   0,
		UserID:    "alice",
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
		Period:    reservation.OneHour,
		CreatedAt: t0,
	}
	require.NoError(t, s.CreateReservation(ctx, r))

	cancelledAt := t0.Add(5 * time.Minute)
	r.EndTime = t0.Add(2 * time.Hour)
	r.CancelledAt = &cancelledAt
	require.NoError(t, s.UpdateReservation(ctx, r))

	snap, err := s.Load(ctx)
	require.NoError(t, err)

	want := reservation.Snapshot{
		Assets:            []reservation.Asset{{ID: 0, Name: "Room A", CreatedAt: t0}},
		Reservations:      []reservation.Reservation{r},
		NextAssetID:       2,
		NextReservationID: 1,
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	missing := r
	missing.ID = 42
	assert.Error(t, s.UpdateReservation(ctx, missing))
	assert.NoError(t, s.Ping(ctx))
}

func TestGormStore_SQLiteEvents(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t, filepath.Join(t.TempDir(), "events.db")))

	require.NoError(t, s.AppendEvents(ctx, []reservation.Event{
		{Kind: reservation.EventCancelled, ReservationID: 3, AssetID: 1, UserID: "alice", StartTime: t0, EndTime: t0.Add(time.Hour), At: t0.Add(30 * time.Minute)},
		{Kind: reservation.EventReserved, ReservationID: 3, AssetID: 1, UserID: "alice", StartTime: t0, EndTime: t0.Add(time.Hour), At: t0},
		{Kind: reservation.EventReserved, ReservationID: 4, AssetID: 1, UserID: "bob", StartTime: t0, EndTime: t0.Add(time.Hour), At: t0},
	}))

	events, err := s.ReservationEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, reservation.EventReserved, events[0].Kind)
	assert.Equal(t, reservation.EventCancelled, events[1].Kind)
	assert.Equal(t, t0.Add(30*time.Minute), events[1].At)

	none, err := s.ReservationEvents(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
