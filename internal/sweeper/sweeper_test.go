package sweeper

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-reservation-backend/config"
	"asset-reservation-backend/internal/clock"
	"asset-reservation-backend/internal/reservation"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingCollector records how often it was asked.
type countingCollector struct {
	mu    sync.Mutex
	calls []time.Time
}

func (c *countingCollector) CollectExpired(now time.Time) []reservation.Reservation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, now)
	return nil
}

func (c *countingCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestSweepOnce_ReportsEachExpiryOnce(t *testing.T) {
	clk := clock.NewManual(t0)
	engine := reservation.NewEngine(reservation.WithClock(clk))
	ctx := context.Background()

	asset, err := engine.AddAsset(ctx, "Room A")
	require.NoError(t, err)
	_, err = engine.Reserve(ctx, "alice", asset, reservation.OneHour)
	require.NoError(t, err)

	svc := NewService(config.SweeperConfig{Enabled: true, Interval: time.Minute}, engine, clk, discardLogger())

	assert.Equal(t, 0, svc.SweepOnce(ctx))

	clk.Advance(time.Hour)
	assert.Equal(t, 1, svc.SweepOnce(ctx))
	assert.Equal(t, 0, svc.SweepOnce(ctx))
}

func TestRun_Disabled(t *testing.T) {
	collector := &countingCollector{}
	svc := NewService(config.SweeperConfig{Enabled: false, Interval: time.Millisecond}, collector, clock.NewManual(t0), discardLogger())

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled sweeper")
	}
	assert.Equal(t, 0, collector.count())
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	collector := &countingCollector{}
	svc := NewService(config.SweeperConfig{Enabled: true, Interval: 5 * time.Millisecond}, collector, clock.NewManual(t0), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return collector.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
