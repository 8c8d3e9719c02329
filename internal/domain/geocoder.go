package domain

import "context"

// Geocode source tags recorded on incidents and warning locations.
const (
	GeoSourceExact        = "exact"
	GeoSourceMunicipality = "municipality"
	GeoSourceRegion       = "region"
	GeoSourceNone         = "none"
	GeoSourceFailed       = "failed"
	GeoSourceOriginal     = "original"
)

// GeocodeQuery is a free-text place plus whatever administrative context the
// source provided.
type GeocodeQuery struct {
	Location     string
	Municipality string
	Region       string
}

// GeocodeResult is an in-envelope coordinate and the tier that produced it.
type GeocodeResult struct {
	Coordinates Coordinates
	Tier        string
}

// Geocoder resolves free-text places to coordinates.
type Geocoder interface {
	// Resolve returns ErrNotFound when no tier produced an in-envelope result.
	Resolve(ctx context.Context, q GeocodeQuery) (GeocodeResult, error)
}
