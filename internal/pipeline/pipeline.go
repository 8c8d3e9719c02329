// Package pipeline runs the incident and warning poll loops: fetch a complete
// set, diff it against the published snapshot, swap, then notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
	"github.com/couchcryptid/fire-watch-service/internal/store"
)

const (
	sourceIncidents = "incidents"
	sourceWarnings  = "warnings"
)

var (
	// ErrCycleInFlight is returned when a poll for the same source is still running.
	ErrCycleInFlight = errors.New("poll cycle already in flight")

	// ErrSourceDisabled is returned when polling a source that has no fetcher.
	ErrSourceDisabled = errors.New("source disabled")
)

// IncidentFetcher produces the complete current incident set.
type IncidentFetcher interface {
	FetchIncidents(ctx context.Context) ([]domain.Incident, error)
}

// WarningFetcher produces the complete current warning set.
type WarningFetcher interface {
	FetchWarnings(ctx context.Context) ([]domain.Warning, error)
}

// Notifier receives the notification-worthy events of a successful cycle.
type Notifier interface {
	Notify(ctx context.Context, events []domain.ChangeEvent) error
}

// Options configures poll cadence. Zero values take the defaults.
type Options struct {
	IncidentsInterval time.Duration // default 2m
	WarningsInterval  time.Duration // default 5m
	PollTimeout       time.Duration // default 3m
	Clock             clockwork.Clock
}

// Pipeline owns both poll loops.
type Pipeline struct {
	incidents IncidentFetcher
	warnings  WarningFetcher
	store     *store.Store
	notifiers []Notifier
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics

	incidentsBusy atomic.Bool
	warningsBusy  atomic.Bool
	ready         atomic.Bool
}

// New creates a Pipeline. A nil fetcher disables that source's loop.
func New(inc IncidentFetcher, warn WarningFetcher, st *store.Store, notifiers []Notifier, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.IncidentsInterval <= 0 {
		opts.IncidentsInterval = 2 * time.Minute
	}
	if opts.WarningsInterval <= 0 {
		opts.WarningsInterval = 5 * time.Minute
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		incidents: inc,
		warnings:  warn,
		store:     st,
		notifiers: notifiers,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once any snapshot has been published, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot has been published yet")
	}
	return nil
}

// Run polls both sources immediately and then on their intervals until ctx
// is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"incidents_interval", p.opts.IncidentsInterval,
		"warnings_interval", p.opts.WarningsInterval,
		"poll_timeout", p.opts.PollTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)
	if p.incidents != nil {
		g.Go(func() error {
			p.loop(gctx, sourceIncidents, p.opts.IncidentsInterval, p.PollIncidents)
			return nil
		})
	}
	if p.warnings != nil {
		g.Go(func() error {
			p.loop(gctx, sourceWarnings, p.opts.WarningsInterval, p.PollWarnings)
			return nil
		})
	}
	err := g.Wait()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return err
}

// loop starts a cycle on every tick. Ticks that land while a cycle is still
// running are skipped by the single-flight guard.
func (p *Pipeline) loop(ctx context.Context, source string, interval time.Duration, poll func(context.Context) error) {
	var wg sync.WaitGroup
	defer wg.Wait()

	run := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poll(ctx); errors.Is(err, ErrCycleInFlight) {
				p.logger.Debug("poll tick skipped", "source", source)
			}
		}()
	}

	run()
	ticker := p.opts.Clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			run()
		}
	}
}

// PollIncidents runs one incident cycle.
func (p *Pipeline) PollIncidents(ctx context.Context) error {
	if p.incidents == nil {
		return ErrSourceDisabled
	}
	return poll(ctx, p, cycle[domain.Incident]{
		source: sourceIncidents,
		busy:   &p.incidentsBusy,
		fetch:  p.incidents.FetchIncidents,
		swap: func(items []domain.Incident, at time.Time) []domain.Incident {
			return p.store.SwapIncidents(items, at).Items
		},
		diff: domain.DiffIncidents,
	})
}

// PollWarnings runs one warning cycle.
func (p *Pipeline) PollWarnings(ctx context.Context) error {
	if p.warnings == nil {
		return ErrSourceDisabled
	}
	return poll(ctx, p, cycle[domain.Warning]{
		source: sourceWarnings,
		busy:   &p.warningsBusy,
		fetch:  p.warnings.FetchWarnings,
		swap: func(items []domain.Warning, at time.Time) []domain.Warning {
			return p.store.SwapWarnings(items, at).Items
		},
		diff: domain.DiffWarnings,
	})
}

type cycle[T interface{ Key() string }] struct {
	source string
	busy   *atomic.Bool
	fetch  func(context.Context) ([]T, error)
	swap   func([]T, time.Time) []T
	diff   func(prev, next []T) []domain.ChangeEvent
}

// poll runs fetch under the cycle timeout. Only a complete result that
// arrived before the deadline is published; anything else leaves the
// current snapshot in place.
func poll[T interface{ Key() string }](ctx context.Context, p *Pipeline, c cycle[T]) error {
	if !c.busy.CompareAndSwap(false, true) {
		p.metrics.PollCycles.WithLabelValues(c.source, "skipped").Inc()
		return ErrCycleInFlight
	}
	defer c.busy.Store(false)

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, p.opts.PollTimeout)
	defer cancel()

	items, err := c.fetch(cctx)
	if err == nil {
		err = cctx.Err()
	}
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		p.metrics.PollCycles.WithLabelValues(c.source, outcome).Inc()
		p.logger.Error("poll cycle failed", "source", c.source, "outcome", outcome, "error", err)
		return fmt.Errorf("poll %s: %w", c.source, err)
	}

	items, dropped := domain.UniqueByKey(items)
	if dropped > 0 {
		p.logger.Warn("duplicate record keys dropped", "source", c.source, "dropped", dropped)
	}

	prev := c.swap(items, domain.Now())
	events := c.diff(prev, items)

	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)
	p.metrics.PollCycles.WithLabelValues(c.source, "success").Inc()
	p.metrics.PollDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())
	p.metrics.SnapshotSize.WithLabelValues(c.source).Set(float64(len(items)))
	for _, ev := range events {
		p.metrics.ChangeEvents.WithLabelValues(string(ev.Kind), string(ev.Type)).Inc()
	}

	p.logger.Info("snapshot published",
		"source", c.source,
		"records", len(items),
		"changes", len(events),
		"duration", time.Since(start),
	)

	p.notify(ctx, c.source, domain.NotifiableEvents(events))
	return nil
}

// notify hands events to every notifier. Failures are logged; the snapshot
// is already published.
func (p *Pipeline) notify(ctx context.Context, source string, events []domain.ChangeEvent) {
	if len(events) == 0 {
		return
	}
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, events); err != nil {
			p.logger.Error("notify failed", "source", source, "events", len(events), "error", err)
		}
	}
}
