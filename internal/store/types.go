package store

import (
	"time"

	"github.com/cockroachdb/errors"

	"asset-reservation-backend/internal/model"
	"asset-reservation-backend/internal/parse"
	"asset-reservation-backend/internal/reservation"
)

func toAssetRow(a reservation.Asset) model.Asset {
	return model.Asset{
		ID:          uint64(a.ID),
		Name:        a.Name,
		CreatedAtNs: a.CreatedAt.UnixNano(),
	}
}

func fromAssetRow(row model.Asset) reservation.Asset {
	return reservation.Asset{
		ID:        reservation.AssetID(row.ID),
		Name:      row.Name,
		CreatedAt: parse.Nanos(row.CreatedAtNs),
	}
}

func toReservationRow(r reservation.Reservation) model.Reservation {
	row := model.Reservation{
		ID:          uint64(r.ID),
		AssetID:     uint64(r.AssetID),
		UserID:      string(r.UserID),
		StartNs:     r.StartTime.UnixNano(),
		EndNs:       r.EndTime.UnixNano(),
		Period:      r.Period.String(),
		CreatedAtNs: r.CreatedAt.UnixNano(),
	}
	row.CancelledAtNs = nanosPtr(r.CancelledAt)
	return row
}

func fromReservationRow(row model.Reservation) (reservation.Reservation, error) {
	period, err := reservation.ParsePeriod(row.Period)
	if err != nil {
		return reservation.Reservation{}, errors.Wrapf(err, "reservation %d", row.ID)
	}
	r := reservation.Reservation{
		ID:        reservation.ReservationID(row.ID),
		AssetID:   reservation.AssetID(row.AssetID),
		UserID:    reservation.Principal(row.UserID),
		StartTime: parse.Nanos(row.StartNs),
		EndTime:   parse.Nanos(row.EndNs),
		Period:    period,
		CreatedAt: parse.Nanos(row.CreatedAtNs),
	}
	if row.CancelledAtNs != nil {
		at := parse.Nanos(*row.CancelledAtNs)
		r.CancelledAt = &at
	}
	return r, nil
}

func toEventRow(ev reservation.Event) model.ReservationEvent {
	return model.ReservationEvent{
		ReservationID: uint64(ev.ReservationID),
		AssetID:       uint64(ev.AssetID),
		UserID:        string(ev.UserID),
		Kind:          string(ev.Kind),
		StartNs:       ev.StartTime.UnixNano(),
		EndNs:         ev.EndTime.UnixNano(),
		AtNs:          ev.At.UnixNano(),
	}
}

func fromEventRow(row model.ReservationEvent) reservation.Event {
	return reservation.Event{
		Kind:          reservation.EventKind(row.Kind),
		ReservationID: reservation.ReservationID(row.ReservationID),
		AssetID:       reservation.AssetID(row.AssetID),
		UserID:        reservation.Principal(row.UserID),
		StartTime:     parse.Nanos(row.StartNs),
		EndTime:       parse.Nanos(row.EndNs),
		At:            parse.Nanos(row.AtNs),
	}
}

func nanosPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ns := t.UnixNano()
	return &ns
}
