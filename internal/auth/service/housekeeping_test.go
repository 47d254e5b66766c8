package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/otp"
	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Now()}

	backend := otp.NewMemoryBackend()
	ledger := otp.NewLedger(backend, 5*time.Minute)
	ledger.Now = c.Now

	_, err := ledger.Issue(ctx, "old@example.com")
	require.NoError(t, err)
	c.Advance(time.Hour)
	fresh, err := ledger.Issue(ctx, "fresh@example.com")
	require.NoError(t, err)

	hk := service.NewHousekeepingService(backend, ledger.Retention, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	hk.Now = c.Now

	require.EqualValues(t, 1, hk.Cleanup(ctx))
	require.Equal(t, 1, backend.Len())
	require.NoError(t, ledger.Verify(ctx, "fresh@example.com", fresh.Code))
}

func TestHousekeepingStartStop(t *testing.T) {
	ctx := context.Background()
	backend := otp.NewMemoryBackend()
	ledger := otp.NewLedger(backend, time.Minute)
	ledger.Now = func() time.Time { return time.Now().Add(-time.Hour) }

	_, err := ledger.Issue(ctx, "stale@example.com")
	require.NoError(t, err)

	hk := service.NewHousekeepingService(backend, ledger.Retention, slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Millisecond)
	hk.Start()
	require.Eventually(t, func() bool { return backend.Len() == 0 }, time.Second, 5*time.Millisecond)
	hk.Stop()
}
