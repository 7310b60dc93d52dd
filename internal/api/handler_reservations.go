package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-reservation-backend/internal/mw"
	"asset-reservation-backend/internal/parse"
	"asset-reservation-backend/internal/reservation"
)

type reserveRequest struct {
	AssetID *uint64            `json:"assetId" binding:"required"`
	Period  reservation.Period `json:"period"`
	// StartTime is nanoseconds since the Unix epoch; omitted means now.
	StartTime *int64 `json:"startTime"`
}

// eventResponse is one entry of a reservation's audit trail.
type eventResponse struct {
	Kind          reservation.EventKind     `json:"kind"`
	ReservationID reservation.ReservationID `json:"reservationId"`
	AssetID       reservation.AssetID       `json:"assetId"`
	UserID        reservation.Principal     `json:"userId"`
	StartTime     int64                     `json:"startTime"`
	EndTime       int64                     `json:"endTime"`
	At            int64                     `json:"at"`
}

func reservationID(c *gin.Context) (reservation.ReservationID, bool) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid reservation id")
		return 0, false
	}
	return reservation.ReservationID(id), true
}

// Reserve handles POST /api/reservations.
func (h *Handler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	var (
		id  reservation.ReservationID
		err error
	)
	ctx := c.Request.Context()
	caller := mw.Principal(c)
	assetID := reservation.AssetID(*req.AssetID)
	if req.StartTime == nil {
		id, err = h.engine.Reserve(ctx, caller, assetID, req.Period)
	} else {
		id, err = h.engine.ReserveAt(ctx, caller, assetID, req.Period, parse.Nanos(*req.StartTime))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Extend handles POST /api/reservations/:id/extend.
func (h *Handler) Extend(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	view, err := h.engine.Extend(c.Request.Context(), mw.Principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Cancel handles DELETE /api/reservations/:id.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	if err := h.engine.Cancel(c.Request.Context(), mw.Principal(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListReservations handles GET /api/reservations.
func (h *Handler) ListReservations(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Reservations())
}

// ListMyReservations handles GET /api/me/reservations.
func (h *Handler) ListMyReservations(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.UserReservations(mw.Principal(c)))
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}

	view, err := h.engine.Reservation(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ReservationEvents handles GET /api/reservations/:id/events.
func (h *Handler) ReservationEvents(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if _, err := h.engine.Reservation(id); err != nil {
		h.fail(c, err)
		return
	}

	events, err := h.audit.ReservationEvents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{
			Kind:          ev.Kind,
			ReservationID: ev.ReservationID,
			AssetID:       ev.AssetID,
			UserID:        ev.UserID,
			StartTime:     ev.StartTime.UnixNano(),
			EndTime:       ev.EndTime.UnixNano(),
			At:            ev.At.UnixNano(),
		})
	}
	c.JSON(http.StatusOK, out)
}
