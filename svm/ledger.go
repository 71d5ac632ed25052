package svm

import (
	"sync"
	"time"
)

// DefaultReferenceTTL bounds how long settled references are retained.
// A replayed transaction older than this is rejected by the network
// anyway once its blockhash expires.
const DefaultReferenceTTL = 10 * time.Minute

// ReferenceLedger tracks payment references to stop the same payment from
// settling twice. A reference is claimed just before broadcast, released
// if the broadcast fails so the buyer can retry, and retained with a TTL
// once settlement succeeds.
type ReferenceLedger struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	settled  map[string]time.Time
	ttl      time.Duration
}

// NewReferenceLedger creates a ledger with the given retention for
// settled references. A non-positive TTL falls back to the default.
func NewReferenceLedger(ttl time.Duration) *ReferenceLedger {
	if ttl <= 0 {
		ttl = DefaultReferenceTTL
	}
	return &ReferenceLedger{
		inFlight: make(map[string]struct{}),
		settled:  make(map[string]time.Time),
		ttl:      ttl,
	}
}

// Claim atomically marks a reference as in-flight. It returns false when
// the reference is already in-flight or already settled within the
// retention window.
func (l *ReferenceLedger) Claim(reference string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.inFlight[reference]; exists {
		return false
	}
	if expiry, exists := l.settled[reference]; exists {
		if time.Now().Before(expiry) {
			return false
		}
		delete(l.settled, reference)
	}

	l.inFlight[reference] = struct{}{}
	return true
}

// Release drops an in-flight claim without recording a settlement,
// allowing the reference to be presented again.
func (l *ReferenceLedger) Release(reference string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, reference)
}

// Settle converts an in-flight claim into a settled record that expires
// after the ledger's TTL.
func (l *ReferenceLedger) Settle(reference string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, reference)
	l.settled[reference] = time.Now().Add(l.ttl)

	l.cleanupExpiredLocked()
}

// cleanupExpiredLocked removes expired settled entries. Must be called
// with the lock held.
func (l *ReferenceLedger) cleanupExpiredLocked() {
	now := time.Now()
	for reference, expiry := range l.settled {
		if now.After(expiry) {
			delete(l.settled, reference)
		}
	}
}
