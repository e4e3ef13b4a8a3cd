package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/store"
)

// HousekeepingService removes refresh token records past their expiry.
// Revoked records that haven't expired yet stay, so a replay is still
// recognised as one.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// means hourly.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start sweeps once straight away and then every Interval until ctx is done
// or Stop is called.
func (s *HousekeepingService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	// A sweep that has begun runs to completion.
	sweepCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			s.Cleanup(sweepCtx)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels the loop and waits for a sweep in progress to finish.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.Logger.Info("housekeeping stopped")
}

// Cleanup runs one sweep and returns how many records it removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("failed to delete expired refresh tokens", "err", err)
		}
		return 0
	}

	if n > 0 {
		s.Logger.Info("removed expired refresh tokens", "count", n)
	}
	return n
}
