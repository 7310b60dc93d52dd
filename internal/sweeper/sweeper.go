package sweeper

import (
	"context"
	"log/slog"
	"time"

	"asset-reservation-backend/config"
	"asset-reservation-backend/internal/clock"
	"asset-reservation-backend/internal/reservation"
)

// Collector reports reservations that expired since the last call.
type Collector interface {
	CollectExpired(now time.Time) []reservation.Reservation
}

// Service periodically asks the engine which reservations have run out, so
// that each expiry is logged and audited once. Expiry itself needs no sweep:
// the engine derives it from the clock.
type Service struct {
	cfg       config.SweeperConfig
	collector Collector
	clock     clock.Clock
	logger    *slog.Logger
}

// NewService creates the sweeper.
func NewService(cfg config.SweeperConfig, collector Collector, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		collector: collector,
		clock:     clk,
		logger:    logger,
	}
}

// Run sweeps once immediately and then every configured interval until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("sweeper is disabled, not starting")
		return
	}
	s.logger.Info("starting expiry sweeper", "interval", s.cfg.Interval)

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce collects newly expired reservations and returns how many there were.
func (s *Service) SweepOnce(ctx context.Context) int {
	now := s.clock.Now()
	expired := s.collector.CollectExpired(now)
	for _, r := range expired {
		s.logger.InfoContext(ctx, "reservation expired",
			"reservation_id", uint64(r.ID),
			"asset_id", uint64(r.AssetID),
			"user_id", string(r.UserID),
			"end_time", r.EndTime)
	}
	if len(expired) > 0 {
		s.logger.DebugContext(ctx, "sweep finished", "expired", len(expired))
	}
	return len(expired)
}
