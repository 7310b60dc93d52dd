package api

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"asset-reservation-backend/config"
	"asset-reservation-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logging(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		AllowMethods:  cfg.CORS.AllowMethods,
		AllowHeaders:  cfg.CORS.AllowHeaders,
		ExposeHeaders: []string{mw.RequestIDHeader},
		MaxAge:        time.Duration(cfg.CORS.MaxAgeSeconds) * time.Second,
	}))

	r.GET("/healthz", handler.Health)

	api := r.Group("/api")
	api.Use(
		mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst),
		mw.RequirePrincipal(cfg.Server.PrincipalHeader),
	)
	if ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second; ttl > 0 {
		api.Use(mw.Cache(cache.New(ttl, 2*ttl), ttl))
	}
	{
		api.GET("/assets", handler.ListAssets)
		api.POST("/assets", handler.AddAsset)
		api.DELETE("/assets/:id", handler.RemoveAsset)

		api.GET("/reservations", handler.ListReservations)
		api.POST("/reservations", handler.Reserve)
		api.GET("/reservations/:id", handler.GetReservation)
		api.DELETE("/reservations/:id", handler.Cancel)
		api.POST("/reservations/:id/extend", handler.Extend)
		api.GET("/reservations/:id/events", handler.ReservationEvents)

		api.GET("/me/reservations", handler.ListMyReservations)
	}

	return r
}
