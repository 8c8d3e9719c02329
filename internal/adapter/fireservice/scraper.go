// Package fireservice scrapes the Hellenic Fire Service current-incidents
// listing.
package fireservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // Europe/Athens on hosts without zoneinfo

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

// Fetcher retrieves a page body.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) (int, []byte, error)
}

// Scraper fetches, parses and geocodes the incident listing.
type Scraper struct {
	url         string
	fetcher     Fetcher
	geocoder    domain.Geocoder
	concurrency int
	loc         *time.Location
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewScraper creates an incident scraper. geocoder may be nil, in which case
// incidents are returned without coordinates beyond what the listing carries.
func NewScraper(url string, fetcher Fetcher, geocoder domain.Geocoder, concurrency int, logger *slog.Logger, metrics *observability.Metrics) (*Scraper, error) {
	loc, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		return nil, fmt.Errorf("load Europe/Athens: %w", err)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{
		url:         url,
		fetcher:     fetcher,
		geocoder:    geocoder,
		concurrency: concurrency,
		loc:         loc,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// FetchIncidents runs fetch, parse and geocode. A fetch failure is returned
// as *domain.FetchError; malformed blocks are logged and skipped; geocoding
// failures leave the incident without coordinates. The result is ordered as
// on the page.
func (s *Scraper) FetchIncidents(ctx context.Context) ([]domain.Incident, error) {
	_, body, err := s.fetcher.Get(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}

	incidents, skipped, err := ParseIncidents(bytes.NewReader(body), s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.url, err)
	}
	for _, perr := range skipped {
		s.logger.Warn("incident block skipped", "error", perr, "block", perr.Block)
		s.metrics.ParseSkipped.WithLabelValues(sourceName).Inc()
	}

	if err := s.geocode(ctx, incidents); err != nil {
		return nil, err
	}

	s.logger.Debug("incidents scraped", "count", len(incidents), "skipped", len(skipped))
	return incidents, nil
}

// geocode enriches incidents in place with at most s.concurrency lookups in
// flight. It only fails when ctx is done.
func (s *Scraper) geocode(ctx context.Context, incidents []domain.Incident) error {
	if s.geocoder == nil || len(incidents) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range incidents {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			incidents[i] = domain.EnrichIncident(gctx, incidents[i], s.geocoder, s.logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("geocode incidents: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("geocode incidents: %w", err)
	}
	return nil
}
