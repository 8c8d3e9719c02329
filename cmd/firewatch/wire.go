package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/fire-watch-service/internal/adapter/alerts112"
	"github.com/couchcryptid/fire-watch-service/internal/adapter/fetch"
	"github.com/couchcryptid/fire-watch-service/internal/adapter/fireservice"
	"github.com/couchcryptid/fire-watch-service/internal/adapter/mapbox"
	"github.com/couchcryptid/fire-watch-service/internal/adapter/nominatim"
	"github.com/couchcryptid/fire-watch-service/internal/adapter/render"
	"github.com/couchcryptid/fire-watch-service/internal/config"
	"github.com/couchcryptid/fire-watch-service/internal/gazetteer"
	"github.com/couchcryptid/fire-watch-service/internal/geocode"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

// sources holds the two scrapers sharing one geocoder.
type sources struct {
	incidents *fireservice.Scraper
	warnings  *alerts112.Scraper
	resolver  *geocode.Resolver
}

func newProvider(cfg *config.Config, logger *slog.Logger) geocode.Provider {
	if cfg.GeocoderProvider == config.ProviderMapbox {
		logger.Info("geocoding with mapbox", "timeout", cfg.GeocoderTimeout)
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderTimeout, logger)
	}
	logger.Info("geocoding with nominatim", "url", cfg.NominatimURL, "min_interval", cfg.GeocoderMinInterval)
	return nominatim.NewClient(cfg.NominatimURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger)
}

func newSources(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*sources, error) {
	resolver := geocode.NewResolver(newProvider(cfg, logger), cfg.GeocoderMinInterval, logger, metrics)

	gz, err := gazetteer.Default()
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}

	inc, err := fireservice.NewScraper(
		cfg.IncidentsURL,
		fetch.NewClient(cfg.FetchTimeout, cfg.GeocoderUserAgent),
		resolver, cfg.GeocoderConcurrency, logger, metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("incident scraper: %w", err)
	}

	warn, err := alerts112.NewScraper(
		cfg.WarningsURL,
		render.NewChrome(cfg.RenderTimeout, cfg.GeocoderUserAgent, logger),
		gz, resolver, cfg.GeocoderConcurrency, logger, metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("warning scraper: %w", err)
	}

	return &sources{incidents: inc, warnings: warn, resolver: resolver}, nil
}
