package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-reservation-backend/internal/parse"
	"asset-reservation-backend/internal/reservation"
)

type addAssetRequest struct {
	Name string `json:"name"`
}

// AddAsset handles POST /api/assets.
func (h *Handler) AddAsset(c *gin.Context) {
	var req addAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	id, err := h.engine.AddAsset(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// RemoveAsset handles DELETE /api/assets/:id.
func (h *Handler) RemoveAsset(c *gin.Context) {
	id, err := parse.ID(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid asset id")
		return
	}

	if err := h.engine.RemoveAsset(c.Request.Context(), reservation.AssetID(id)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAssets handles GET /api/assets.
func (h *Handler) ListAssets(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Assets())
}
