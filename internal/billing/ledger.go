package billing

import (
	"context"
	"sync"
	"time"
)

// Ledger records which webhook deliveries have been claimed so a replay is
// acknowledged without being applied twice.
type Ledger interface {
	// Claim reserves key. It reports false when the key was claimed before.
	Claim(ctx context.Context, key, event string, payload []byte) (bool, error)
	// Complete marks a claimed key as applied.
	Complete(ctx context.Context, key string) error
	// Release drops a claim whose application failed so a retry can run.
	Release(ctx context.Context, key string) error
}

// ClaimLease is how long an unfinished claim blocks a retry. A claim left
// behind by a crashed or abandoned delivery can be taken again after it.
const ClaimLease = 5 * time.Minute

func leaseOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return ClaimLease
	}
	return d
}

type ledgerEntry struct {
	event       string
	claimedAt   time.Time
	processedAt time.Time
}

// MemoryLedger is an in-memory Ledger.
type MemoryLedger struct {
	// Lease overrides ClaimLease when positive.
	Lease time.Duration

	mu      sync.Mutex
	entries map[string]ledgerEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]ledgerEntry)}
}

func (l *MemoryLedger) Claim(_ context.Context, key, event string, _ []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	if e, ok := l.entries[key]; ok {
		if !e.processedAt.IsZero() || now.Sub(e.claimedAt) < leaseOrDefault(l.Lease) {
			return false, nil
		}
	}
	l.entries[key] = ledgerEntry{event: event, claimedAt: now}
	return true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok {
		e.processedAt = time.Now().UTC()
		l.entries[key] = e
	}
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok && e.processedAt.IsZero() {
		delete(l.entries, key)
	}
	return nil
}

// Processed reports whether key was claimed and completed.
func (l *MemoryLedger) Processed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.entries[key].processedAt.IsZero()
}
