package domain

import (
	"context"
	"errors"
	"log/slog"
)

// EnrichIncident attempts to attach coordinates to an incident. If geocoder is
// nil or geocoding fails, the incident is returned with GeoSource set
// accordingly and no coordinates (graceful degradation).
func EnrichIncident(ctx context.Context, inc Incident, geocoder Geocoder, logger *slog.Logger) Incident {
	if geocoder == nil {
		return inc
	}

	if inc.Coordinates != nil {
		if inc.Coordinates.InGreece() {
			inc.GeoSource = GeoSourceOriginal
			return inc
		}
		inc.Coordinates = nil
	}

	q := GeocodeQuery{Location: inc.Location, Municipality: inc.Municipality, Region: inc.Region}
	result, err := geocoder.Resolve(ctx, q)
	switch {
	case err == nil:
		c := result.Coordinates
		inc.Coordinates = &c
		inc.GeoSource = result.Tier
	case errors.Is(err, ErrNotFound):
		logger.Debug("incident not geocoded",
			"incident_id", inc.ID,
			"location", inc.Location,
			"municipality", inc.Municipality,
		)
		inc.GeoSource = GeoSourceNone
	default:
		logger.Warn("incident geocoding failed",
			"incident_id", inc.ID,
			"location", inc.Location,
			"municipality", inc.Municipality,
			"error", err,
		)
		inc.GeoSource = GeoSourceFailed
	}
	return inc
}

// EnrichWarningLocation geocodes one location mentioned in a warning.
func EnrichWarningLocation(ctx context.Context, loc WarningLocation, geocoder Geocoder, logger *slog.Logger) WarningLocation {
	if geocoder == nil {
		return loc
	}

	result, err := geocoder.Resolve(ctx, GeocodeQuery{
		Location:     loc.Name,
		Municipality: loc.Municipality,
		Region:       loc.Region,
	})
	switch {
	case err == nil:
		c := result.Coordinates
		loc.Coordinates = &c
		loc.Geocoded = true
		loc.GeoSource = result.Tier
	case errors.Is(err, ErrNotFound):
		loc.GeoSource = GeoSourceNone
	default:
		logger.Warn("warning location geocoding failed", "location", loc.Name, "error", err)
		loc.GeoSource = GeoSourceFailed
	}
	return loc
}
