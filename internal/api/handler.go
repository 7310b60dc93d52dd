package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-reservation-backend/internal/mw"
	"asset-reservation-backend/internal/reservation"
)

// AuditLog is the read side of the reservation audit trail.
type AuditLog interface {
	ReservationEvents(ctx context.Context, id reservation.ReservationID) ([]reservation.Event, error)
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine *reservation.Engine
	audit  AuditLog
	logger *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine *reservation.Engine, audit AuditLog, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		audit:  audit,
		logger: logger,
	}
}

// statusOf maps an engine failure kind onto an HTTP status.
func statusOf(err error) int {
	switch reservation.KindOf(err) {
	case reservation.KindNotFound:
		return http.StatusNotFound
	case reservation.KindUnauthorized:
		return http.StatusForbidden
	case reservation.KindConflict:
		return http.StatusConflict
	case reservation.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body. Internal failures are logged and
// their detail withheld from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"request_id", mw.RequestID(c), "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if h.audit != nil {
		if err := h.audit.Ping(c.Request.Context()); err != nil {
			h.logger.WarnContext(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
