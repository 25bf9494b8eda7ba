package domain

import "context"

// Place is one candidate returned by a geocoding provider.
type Place struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	City             string
	Country          string
	CountryCode      string
}

// Geocoder resolves places in both directions. Implementations return candidates
// ordered by provider relevance; an empty slice with a nil error means no match.
type Geocoder interface {
	// ForwardGeocode converts a free-text query to candidate places.
	ForwardGeocode(ctx context.Context, query string) ([]Place, error)

	// ReverseGeocode converts coordinates to candidate place descriptions.
	ReverseGeocode(ctx context.Context, lat, lon float64) ([]Place, error)
}
