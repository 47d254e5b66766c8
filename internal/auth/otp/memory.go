package otp

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/auth/domain"
)

// MemoryBackend keeps records in process. Records are only removed by
// CompareAndDelete or Purge.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]domain.OTPRecord
}

var (
	_ Backend = (*MemoryBackend)(nil)
	_ Purger  = (*MemoryBackend)(nil)
)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]domain.OTPRecord)}
}

func (m *MemoryBackend) Save(_ context.Context, rec domain.OTPRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Email] = rec
	return nil
}

func (m *MemoryBackend) Load(_ context.Context, email string) (domain.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return domain.OTPRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryBackend) CompareAndDelete(_ context.Context, rec domain.OTPRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[rec.Email]
	if !ok || !sameRecord(cur, rec) {
		return false, nil
	}
	delete(m.records, rec.Email)
	return true, nil
}

func (m *MemoryBackend) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for email, rec := range m.records {
		if rec.IssuedAt.Before(cutoff) {
			delete(m.records, email)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are held, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func sameRecord(a, b domain.OTPRecord) bool {
	return a.Email == b.Email && a.Code == b.Code && a.IssuedAt.Equal(b.IssuedAt)
}
