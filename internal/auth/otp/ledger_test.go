package otp_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/storefront/internal/auth/otp"
	"github.com/aussiebroadwan/storefront/internal/auth/store/drivers/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newSQLiteBackend(t *testing.T) *otp.StoreBackend {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return otp.NewStoreBackend(s)
}

// backends returns a fresh instance of every backend per call.
func backends(t *testing.T) map[string]otp.Backend {
	_, rdb := newMiniredis(t)
	return map[string]otp.Backend{
		"memory": otp.NewMemoryBackend(),
		"redis":  otp.NewRedisBackend(rdb),
		"sqlite": newSQLiteBackend(t),
	}
}

func newLedger(b otp.Backend) (*otp.Ledger, *clock) {
	c := newClock()
	l := otp.NewLedger(b, 5*time.Minute)
	l.Now = c.Now
	return l, c
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	const email = "shopper@example.com"

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("issue then verify consumes once", func(t *testing.T) {
				l, _ := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)
				require.Len(t, rec.Code, otp.CodeDigits)

				require.NoError(t, l.Verify(ctx, email, rec.Code))
				require.ErrorIs(t, l.Verify(ctx, email, rec.Code), otp.ErrNotFound)
			})

			t.Run("unknown email", func(t *testing.T) {
				l, _ := newLedger(backend)
				require.ErrorIs(t, l.Verify(ctx, "ghost@example.com", "123456"), otp.ErrNotFound)
			})

			t.Run("wrong code keeps the record", func(t *testing.T) {
				l, _ := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)

				wrong := "100000"
				if rec.Code == wrong {
					wrong = "100001"
				}
				require.ErrorIs(t, l.Verify(ctx, email, wrong), otp.ErrMismatch)
				require.ErrorIs(t, l.Verify(ctx, email, "not-a-code"), otp.ErrMismatch)
				require.ErrorIs(t, l.Verify(ctx, email, ""), otp.ErrMismatch)
				require.NoError(t, l.Verify(ctx, email, rec.Code))
			})

			t.Run("codes compare numerically", func(t *testing.T) {
				l, _ := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)
				require.NoError(t, l.Verify(ctx, email, " 0"+rec.Code+" "))
			})

			t.Run("valid up to the expiry boundary", func(t *testing.T) {
				l, c := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)

				c.Advance(5 * time.Minute)
				require.NoError(t, l.Verify(ctx, email, rec.Code))
			})

			t.Run("expired code is reported then removed", func(t *testing.T) {
				l, c := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)

				c.Advance(5*time.Minute + time.Second)
				require.ErrorIs(t, l.Verify(ctx, email, rec.Code), otp.ErrExpired)
				require.ErrorIs(t, l.Verify(ctx, email, rec.Code), otp.ErrNotFound)
			})

			t.Run("expiry wins over a wrong code", func(t *testing.T) {
				l, c := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)

				wrong := "100000"
				if rec.Code == wrong {
					wrong = "100001"
				}

				c.Advance(6 * time.Minute)
				require.ErrorIs(t, l.Verify(ctx, email, wrong), otp.ErrExpired)
				require.ErrorIs(t, l.Verify(ctx, email, rec.Code), otp.ErrNotFound)
			})

			t.Run("reissue replaces the earlier code", func(t *testing.T) {
				l, c := newLedger(backend)
				first, err := l.Issue(ctx, email)
				require.NoError(t, err)
				c.Advance(time.Second)

				var second = first
				for second.Code == first.Code {
					second, err = l.Issue(ctx, email)
					require.NoError(t, err)
				}

				require.ErrorIs(t, l.Verify(ctx, email, first.Code), otp.ErrMismatch)
				require.NoError(t, l.Verify(ctx, email, second.Code))
			})

			t.Run("email is normalized", func(t *testing.T) {
				l, _ := newLedger(backend)
				rec, err := l.Issue(ctx, "  Mixed.Case@Example.COM ")
				require.NoError(t, err)
				require.Equal(t, "mixed.case@example.com", rec.Email)
				require.NoError(t, l.Verify(ctx, "MIXED.case@example.com", rec.Code))
			})

			t.Run("withdraw removes only the live record", func(t *testing.T) {
				l, c := newLedger(backend)
				first, err := l.Issue(ctx, email)
				require.NoError(t, err)
				c.Advance(time.Second)
				second, err := l.Issue(ctx, email)
				require.NoError(t, err)

				require.NoError(t, l.Withdraw(ctx, first))
				require.NoError(t, l.Verify(ctx, email, second.Code))

				third, err := l.Issue(ctx, email)
				require.NoError(t, err)
				require.NoError(t, l.Withdraw(ctx, third))
				require.ErrorIs(t, l.Verify(ctx, email, third.Code), otp.ErrNotFound)
			})

			t.Run("concurrent verifies succeed exactly once", func(t *testing.T) {
				l, _ := newLedger(backend)
				rec, err := l.Issue(ctx, email)
				require.NoError(t, err)

				const workers = 16
				var (
					wg      sync.WaitGroup
					mu      sync.Mutex
					success int
					others  []error
				)
				for range workers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						err := l.Verify(ctx, email, rec.Code)
						mu.Lock()
						defer mu.Unlock()
						if err == nil {
							success++
							return
						}
						others = append(others, err)
					}()
				}
				wg.Wait()

				require.Equal(t, 1, success)
				for _, err := range others {
					require.True(t, errors.Is(err, otp.ErrNotFound), "unexpected error: %v", err)
				}
			})
		})
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()

	purgers := map[string]interface {
		otp.Backend
		otp.Purger
	}{
		"memory": otp.NewMemoryBackend(),
		"sqlite": newSQLiteBackend(t),
	}

	for name, backend := range purgers {
		t.Run(name, func(t *testing.T) {
			l, c := newLedger(backend)
			old, err := l.Issue(ctx, "old@example.com")
			require.NoError(t, err)

			c.Advance(time.Hour)
			fresh, err := l.Issue(ctx, "fresh@example.com")
			require.NoError(t, err)

			n, err := backend.Purge(ctx, c.Now().Add(-l.Retention))
			require.NoError(t, err)
			require.EqualValues(t, 1, n)

			require.ErrorIs(t, l.Verify(ctx, "old@example.com", old.Code), otp.ErrNotFound)
			require.NoError(t, l.Verify(ctx, "fresh@example.com", fresh.Code))
		})
	}
}

func TestRedisRetention(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	l, c := newLedger(otp.NewRedisBackend(rdb))

	rec, err := l.Issue(ctx, "late@example.com")
	require.NoError(t, err)
	require.Equal(t, l.Retention, mr.TTL("otp:late@example.com"))

	// Past expiry but inside retention: the caller learns it expired.
	c.Advance(6 * time.Minute)
	mr.FastForward(6 * time.Minute)
	require.ErrorIs(t, l.Verify(ctx, "late@example.com", rec.Code), otp.ErrExpired)

	rec, err = l.Issue(ctx, "gone@example.com")
	require.NoError(t, err)
	mr.FastForward(l.Retention + time.Second)
	require.ErrorIs(t, l.Verify(ctx, "gone@example.com", rec.Code), otp.ErrNotFound)
}

func TestRedisBackendError(t *testing.T) {
	mr, rdb := newMiniredis(t)
	l, _ := newLedger(otp.NewRedisBackend(rdb))
	mr.Close()

	_, err := l.Issue(context.Background(), "down@example.com")
	require.Error(t, err)

	err = l.Verify(context.Background(), "down@example.com", "123456")
	require.Error(t, err)
	require.False(t, errors.Is(err, otp.ErrNotFound))
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a@b.co", "a@b.co"},
		{"  A@B.CO  ", "a@b.co"},
		{"\tMixed@Case.Com\n", "mixed@case.com"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, otp.NormalizeEmail(tt.in))
	}
}
