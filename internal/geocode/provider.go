// Package geocode resolves free-text Greek place names to coordinates through
// ordered fallback tiers on top of a rate-limited forward geocoding provider.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

// ErrTransient marks provider failures worth one retry: network errors,
// timeouts, 5xx and 429 responses. Providers wrap it with %w.
var ErrTransient = errors.New("transient provider failure")

// Provider is a forward geocoding backend. Search reports found=false when the
// provider answered but had no result; that answer is definitive and cached.
// Returned coordinates may use the large-integer encoding; the resolver
// normalizes them.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) (coords domain.Coordinates, found bool, err error)
}

// StatusError converts a non-200 provider response into an error. 429 and 5xx
// responses are transient.
func StatusError(provider string, status int, body []byte) error {
	if len(body) > 200 {
		body = body[:200]
	}
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return fmt.Errorf("%s API error: status %d: %s: %w", provider, status, body, ErrTransient)
	}
	return fmt.Errorf("%s API error: status %d: %s", provider, status, body)
}

// NetworkError wraps a transport failure as transient.
func NetworkError(provider string, err error) error {
	return fmt.Errorf("%s request: %w: %w", provider, ErrTransient, err)
}
