// Package alerts112 scrapes the public 112 emergency-number feed and turns
// its messages into located, classified warnings.
package alerts112

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/gazetteer"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

// Renderer returns the fully rendered HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Gazetteer maps a place name onto its administrative context.
type Gazetteer interface {
	Lookup(name string) (gazetteer.Entry, bool)
}

// Scraper renders, parses, locates and geocodes the warning feed.
type Scraper struct {
	url         string
	base        *url.URL
	renderer    Renderer
	gazetteer   Gazetteer
	geocoder    domain.Geocoder
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewScraper creates a warning scraper. gz and geocoder may be nil.
func NewScraper(feedURL string, renderer Renderer, gz Gazetteer, geocoder domain.Geocoder, concurrency int, logger *slog.Logger, metrics *observability.Metrics) (*Scraper, error) {
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{
		url:         feedURL,
		base:        base,
		renderer:    renderer,
		gazetteer:   gz,
		geocoder:    geocoder,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// FetchWarnings returns the warnings published within the retention window,
// newest first. A render failure is returned as *domain.RenderError.
func (s *Scraper) FetchWarnings(ctx context.Context) ([]domain.Warning, error) {
	page, err := s.renderer.Render(ctx, s.url)
	if err != nil {
		var re *domain.RenderError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, &domain.RenderError{URL: s.url, Err: err}
	}

	parsed, skipped, err := ParseWarnings(page, s.base)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.url, err)
	}
	for _, perr := range skipped {
		s.logger.Warn("warning item skipped", "error", perr, "block", perr.Block)
		s.metrics.ParseSkipped.WithLabelValues(sourceName).Inc()
	}

	now := domain.Now()
	warnings := make([]domain.Warning, 0, len(parsed))
	for _, w := range parsed {
		if w.Urgency(now) == domain.UrgencyExpired {
			continue
		}
		warnings = append(warnings, w)
	}
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].PublishedAt.After(warnings[j].PublishedAt)
	})

	for i := range warnings {
		for j := range warnings[i].Locations {
			warnings[i].Locations[j] = s.locate(warnings[i].Locations[j])
		}
	}
	if err := s.geocode(ctx, warnings); err != nil {
		return nil, err
	}

	s.logger.Debug("warnings scraped",
		"count", len(warnings),
		"expired", len(parsed)-len(warnings),
		"skipped", len(skipped),
	)
	return warnings, nil
}

// locate fills municipality and region from the gazetteer, trying the whole
// name first and then dropping trailing words ("Κερατέα Αττικής" -> "Κερατέα").
func (s *Scraper) locate(loc domain.WarningLocation) domain.WarningLocation {
	if s.gazetteer == nil {
		return loc
	}
	words := strings.Fields(loc.Name)
	for n := len(words); n > 0; n-- {
		if e, ok := s.gazetteer.Lookup(strings.Join(words[:n], " ")); ok {
			loc.Municipality = e.Municipality
			loc.Region = e.Region
			return loc
		}
	}
	return loc
}

// geocode resolves every location of every warning independently, with at
// most s.concurrency lookups in flight.
func (s *Scraper) geocode(ctx context.Context, warnings []domain.Warning) error {
	if s.geocoder == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range warnings {
		for j := range warnings[i].Locations {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				loc := &warnings[i].Locations[j]
				*loc = domain.EnrichWarningLocation(gctx, *loc, s.geocoder, s.logger)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("geocode warnings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("geocode warnings: %w", err)
	}
	return nil
}
