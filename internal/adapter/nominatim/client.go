package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/geocode"
)

const providerName = "nominatim"

// Client implements geocode.Provider using the OpenStreetMap Nominatim search
// API, restricted to Greece. Nominatim's usage policy requires an identifying
// User-Agent and at most one request per second; the resolver enforces the
// rate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a Nominatim client against baseURL.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		logger:    logger,
	}
}

// Name identifies the provider in metrics.
func (c *Client) Name() string { return providerName }

// Search forward-geocodes a free-text query.
func (c *Client) Search(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"limit":           {"1"},
		"countrycodes":    {"gr"},
		"accept-language": {"el,en"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, false, geocode.NetworkError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinates{}, false, geocode.StatusError(providerName, resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return domain.Coordinates{}, false, nil
	}

	p := places[0]
	lat, err := domain.ParseCoordinate(p.Lat, 90)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := domain.ParseCoordinate(p.Lon, 180)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	c.logger.Debug("nominatim match", "query", query, "place", p.DisplayName, "type", p.Type)
	return domain.Coordinates{Lat: lat, Lon: lon}, true, nil
}

// Nominatim jsonv2 response item. Coordinates arrive as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}
