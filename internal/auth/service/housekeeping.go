package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/otp"
)

// HousekeepingService periodically purges OTP records that have outlived
// their retention window. It is only needed for backends without native
// expiry; correctness never depends on it running.
type HousekeepingService struct {
	Purger    otp.Purger
	Retention time.Duration
	Logger    *slog.Logger
	Interval  time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one minute.
func NewHousekeepingService(p otp.Purger, retention time.Duration, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Purger:    p,
		Retention: retention,
		Logger:    logger,
		Interval:  interval,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop signals the worker and blocks until any in-progress purge finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one purge pass and returns how many records were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	cutoff := s.Now().Add(-s.Retention)
	n, err := s.Purger.Purge(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to purge expired otps", "error", err)
		return 0
	}

	if n > 0 {
		s.Logger.Info("purged expired otps", "deleted", n)
	} else {
		s.Logger.Debug("no expired otps to purge")
	}
	return n
}
