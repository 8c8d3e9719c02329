// Package notify fans change events out to connected sessions through one
// rate-limited FIFO queue.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

// SessionState is a session's position in its lifecycle.
type SessionState int

const (
	StateConnected SessionState = iota
	StateSubscribed
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

var (
	// ErrSessionExists is returned when subscribing an ID that is already live.
	ErrSessionExists = errors.New("session already subscribed")

	// ErrBufferFull means a session fell behind and was disconnected.
	ErrBufferFull = errors.New("session buffer full")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Options tunes a Dispatcher. Zero values take the defaults.
type Options struct {
	MinInterval   time.Duration // spacing between deliveries, default 2s, negative for none
	QueueSize     int           // default 256
	SessionBuffer int           // default 32
	Clock         clockwork.Clock
}

type session struct {
	id          string
	connectedAt time.Time
	state       SessionState
	ch          chan domain.ChangeEvent
}

// Dispatcher delivers notification-worthy events to subscribed sessions.
type Dispatcher struct {
	clock       clockwork.Clock
	minInterval time.Duration
	bufSize     int
	queue       chan domain.ChangeEvent
	dedup       *Deduplicator
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewDispatcher creates a dispatcher. Call Run to start delivering and Close
// to release it.
func NewDispatcher(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if opts.MinInterval < 0 {
		opts.MinInterval = 0
	} else if opts.MinInterval == 0 {
		opts.MinInterval = 2 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SessionBuffer <= 0 {
		opts.SessionBuffer = 32
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		clock:       opts.Clock,
		minInterval: opts.MinInterval,
		bufSize:     opts.SessionBuffer,
		queue:       make(chan domain.ChangeEvent, opts.QueueSize),
		dedup:       NewDeduplicator(opts.Clock, DedupTTL, logger),
		logger:      logger,
		metrics:     metrics,
		sessions:    make(map[string]*session),
	}
}

// Subscribe registers a session connected at connectedAt and returns its
// event stream. Records whose time is not after connectedAt are never sent
// to it. The channel is closed when the session is disconnected.
func (d *Dispatcher) Subscribe(sessionID string, connectedAt time.Time) (<-chan domain.ChangeEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if _, exists := d.sessions[sessionID]; exists {
		return nil, ErrSessionExists
	}

	s := &session{id: sessionID, connectedAt: connectedAt, state: StateConnected}
	d.sessions[sessionID] = s
	s.ch = make(chan domain.ChangeEvent, d.bufSize)
	s.state = StateSubscribed
	d.metrics.ActiveSessions.Set(float64(len(d.sessions)))

	d.logger.Debug("session subscribed", "session_id", sessionID, "connected_at", connectedAt)
	return s.ch, nil
}

// Unsubscribe disconnects a session. Unknown IDs are ignored.
func (d *Dispatcher) Unsubscribe(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[sessionID]; ok {
		d.disconnect(s)
	}
}

// State reports a session's lifecycle state. Sessions that were never
// registered or already left report StateDisconnected.
func (d *Dispatcher) State(sessionID string) SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[sessionID]; ok {
		return s.state
	}
	return StateDisconnected
}

// Sessions reports the number of live sessions.
func (d *Dispatcher) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// disconnect must be called with d.mu held.
func (d *Dispatcher) disconnect(s *session) {
	s.state = StateDisconnected
	close(s.ch)
	delete(d.sessions, s.id)
	d.metrics.ActiveSessions.Set(float64(len(d.sessions)))
	d.logger.Debug("session disconnected", "session_id", s.id)
}

// Notify enqueues the notification-worthy events not seen before, in order.
// It blocks while the queue is full and returns ctx.Err() if ctx ends first.
func (d *Dispatcher) Notify(ctx context.Context, events []domain.ChangeEvent) error {
	for _, ev := range events {
		if !ev.Notifiable() {
			continue
		}
		if !d.dedup.Record(ev.DedupKey()) {
			d.metrics.Suppressed.WithLabelValues("duplicate").Inc()
			continue
		}
		select {
		case d.queue <- ev:
			d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		case <-ctx.Done():
			d.dedup.Forget(ev.DedupKey())
			return ctx.Err()
		}
	}
	return nil
}

// Run delivers queued events, spacing deliveries at least MinInterval apart,
// until ctx is done. Events no session can receive are dropped without taking
// a delivery slot.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "min_interval", d.minInterval)
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err())
			return nil
		case ev := <-d.queue:
			d.metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
			if d.dropUnwanted(ev) {
				continue
			}
			if !last.IsZero() {
				if wait := d.minInterval - d.clock.Since(last); wait > 0 {
					select {
					case <-d.clock.After(wait):
					case <-ctx.Done():
						d.logger.Info("dispatcher stopping", "reason", ctx.Err())
						return nil
					}
				}
			}
			d.deliver(ev)
			last = d.clock.Now()
		}
	}
}

// dropUnwanted reports whether no subscribed session would accept ev, counting
// the suppressions when so. Sessions that subscribe later still go through
// the connect-time check in deliver.
func (d *Dispatcher) dropUnwanted(ev domain.ChangeEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	suppressed := 0
	for _, s := range d.sessions {
		if s.state != StateSubscribed {
			continue
		}
		if ev.RecordTime.After(s.connectedAt) {
			return false
		}
		suppressed++
	}
	d.metrics.Suppressed.WithLabelValues("session_start").Add(float64(suppressed))
	if suppressed == 0 {
		d.metrics.Suppressed.WithLabelValues("no_sessions").Inc()
	}
	return true
}

// deliver hands ev to every subscribed session that connected before the
// record time. A session whose buffer is full is disconnected; the others
// are unaffected.
func (d *Dispatcher) deliver(ev domain.ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.sessions {
		if s.state != StateSubscribed {
			continue
		}
		if !ev.RecordTime.After(s.connectedAt) {
			d.metrics.Suppressed.WithLabelValues("session_start").Inc()
			continue
		}
		select {
		case s.ch <- ev:
			d.metrics.Deliveries.Inc()
		default:
			err := &domain.DispatchError{SessionID: s.id, Err: ErrBufferFull}
			d.logger.Warn("dropping slow session", "error", err, "event", ev.DedupKey())
			d.metrics.DeliveryFailures.Inc()
			d.disconnect(s)
		}
	}
}

// Close disconnects every session and stops background work.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, s := range d.sessions {
		d.disconnect(s)
	}
	d.mu.Unlock()
	d.dedup.Stop()
}
