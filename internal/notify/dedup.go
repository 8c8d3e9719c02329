package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DedupTTL is how long a delivered key is remembered.
	DedupTTL = 24 * time.Hour

	// DedupCleanupInterval is how often expired keys are dropped.
	DedupCleanupInterval = 10 * time.Minute
)

// Deduplicator remembers event keys so each is enqueued at most once.
type Deduplicator struct {
	clock       clockwork.Clock
	ttl         time.Duration
	logger      *slog.Logger
	seen        map[string]time.Time
	mu          sync.Mutex
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewDeduplicator creates a deduplicator and starts its cleanup loop.
func NewDeduplicator(clock clockwork.Clock, ttl time.Duration, logger *slog.Logger) *Deduplicator {
	d := &Deduplicator{
		clock:       clock,
		ttl:         ttl,
		logger:      logger,
		seen:        make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go d.cleanupLoop()

	return d
}

// Record marks key as seen. It returns false when the key was already seen
// within the TTL. Check and mark happen under one lock.
func (d *Deduplicator) Record(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return false
	}
	d.seen[key] = d.clock.Now()
	return true
}

// Forget removes key so a later Record accepts it again.
func (d *Deduplicator) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

// Len reports the number of remembered keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Deduplicator) cleanupLoop() {
	ticker := d.clock.NewTicker(DedupCleanupInterval)
	defer ticker.Stop()
	defer close(d.cleanupDone)

	for {
		select {
		case <-ticker.Chan():
			d.cleanup()
		case <-d.stopCleanup:
			return
		}
	}
}

func (d *Deduplicator) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	expired := 0
	for key, seenAt := range d.seen {
		if now.Sub(seenAt) > d.ttl {
			delete(d.seen, key)
			expired++
		}
	}

	if expired > 0 {
		d.logger.Debug("dedup entries expired", "expired", expired, "remaining", len(d.seen))
	}
}

// Stop ends the cleanup loop and waits for it to exit.
func (d *Deduplicator) Stop() {
	close(d.stopCleanup)
	<-d.cleanupDone
}
