package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
	"github.com/couchcryptid/fire-watch-service/internal/observability"
)

const countrySuffix = "Greece"

// searchTimeout bounds a provider search shared by coalesced callers. The
// search does not inherit any single caller's cancellation.
const searchTimeout = 30 * time.Second

// strategy builds the provider query for one fallback tier. An empty query
// means the tier does not apply to this input.
type strategy struct {
	tier  string
	query func(q domain.GeocodeQuery) string
}

// Tiers in resolution order. The first in-envelope answer wins.
var strategies = []strategy{
	{domain.GeoSourceExact, func(q domain.GeocodeQuery) string {
		if strings.TrimSpace(q.Location) == "" {
			return ""
		}
		return joinQuery(q.Location, q.Municipality)
	}},
	{domain.GeoSourceMunicipality, func(q domain.GeocodeQuery) string {
		return joinQuery(q.Municipality)
	}},
	{domain.GeoSourceRegion, func(q domain.GeocodeQuery) string {
		return joinQuery(q.Region)
	}},
}

// joinQuery joins the non-empty, accent-insensitively distinct parts and
// appends the country. It returns "" when every part is empty.
func joinQuery(parts ...string) string {
	var kept []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = domain.CleanText(p)
		if p == "" || seen[domain.Fold(p)] {
			continue
		}
		seen[domain.Fold(p)] = true
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(append(kept, countrySuffix), ", ")
}

// Resolver implements domain.Geocoder on top of a Provider.
type Resolver struct {
	provider Provider
	limiter  *rate.Limiter
	cache    *cache
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver creates a resolver whose provider calls are spaced at least
// minInterval apart across all goroutines.
func NewResolver(provider Provider, minInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Resolver{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    newCache(),
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve walks the tiers in order. It returns domain.ErrNotFound when every
// applicable tier produced a definitive miss, and a *domain.GeocodeError when
// no tier succeeded and at least one attempt failed outright.
func (r *Resolver) Resolve(ctx context.Context, q domain.GeocodeQuery) (domain.GeocodeResult, error) {
	attempted := make(map[string]struct{}, len(strategies))
	var lastErr error

	for _, s := range strategies {
		query := s.query(q)
		if query == "" {
			continue
		}
		key := domain.Fold(query)
		if _, dup := attempted[key]; dup {
			continue
		}
		attempted[key] = struct{}{}

		e, err := r.lookup(ctx, query, s.tier)
		if err != nil {
			if ctx.Err() != nil {
				return domain.GeocodeResult{}, err
			}
			lastErr = err
			continue
		}
		if e.Found {
			return domain.GeocodeResult{Coordinates: e.Coordinates, Tier: s.tier}, nil
		}
	}

	if lastErr != nil {
		return domain.GeocodeResult{}, lastErr
	}
	return domain.GeocodeResult{}, domain.ErrNotFound
}

// lookup answers one exact query string from the cache or the provider.
// Concurrent lookups for the same string share a single provider call; a
// caller whose ctx ends stops waiting without failing the others.
func (r *Resolver) lookup(ctx context.Context, query, tier string) (entry, error) {
	if e, ok := r.cache.get(query); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return e, nil
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	if err := ctx.Err(); err != nil {
		return entry{}, err
	}

	ch := r.group.DoChan(query, func() (any, error) {
		if e, ok := r.cache.get(query); ok {
			return e, nil
		}
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), searchTimeout)
		defer cancel()
		e, err := r.search(sctx, query, tier)
		if err != nil {
			return entry{}, err
		}
		r.cache.put(query, e)
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return entry{}, res.Err
		}
		return res.Val.(entry), nil
	case <-ctx.Done():
		return entry{}, ctx.Err()
	}
}

// search calls the provider, retrying once on a transient failure, and turns
// the answer into a cacheable entry.
func (r *Resolver) search(ctx context.Context, query, tier string) (entry, error) {
	coords, found, err := r.call(ctx, query)
	if err != nil && errors.Is(err, ErrTransient) {
		r.logger.Debug("geocode transient failure, retrying", "query", query, "error", err)
		coords, found, err = r.call(ctx, query)
	}
	if err != nil {
		r.metrics.GeocodeRequests.WithLabelValues(tier, "error").Inc()
		return entry{}, &domain.GeocodeError{Query: query, Err: err}
	}

	e := entry{Tier: tier, StoredAt: domain.Now()}
	if !found {
		r.metrics.GeocodeRequests.WithLabelValues(tier, "empty").Inc()
		return e, nil
	}

	c := domain.NormalizeCoordinates(coords.Lat, coords.Lon)
	if !c.InGreece() {
		r.metrics.GeocodeRequests.WithLabelValues(tier, "outside").Inc()
		r.logger.Debug("geocode result outside envelope", "query", query, "lat", c.Lat, "lon", c.Lon)
		return e, nil
	}

	r.metrics.GeocodeRequests.WithLabelValues(tier, "found").Inc()
	e.Coordinates = c
	e.Found = true
	return e, nil
}

func (r *Resolver) call(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, false, err
	}
	start := time.Now()
	coords, found, err := r.provider.Search(ctx, query)
	r.metrics.GeocodeAPIDuration.WithLabelValues(r.provider.Name()).Observe(time.Since(start).Seconds())
	return coords, found, err
}

// CacheSize reports the number of cached query answers.
func (r *Resolver) CacheSize() int { return r.cache.len() }
