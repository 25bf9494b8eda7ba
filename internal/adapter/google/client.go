// Package google implements domain.Geocoder on top of the Google Maps
// Geocoding API client.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

const providerName = "google"

// Client adapts maps.Client to domain.Geocoder.
type Client struct {
	client  *maps.Client
	timeout time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Google geocoding client. Extra options are passed to
// maps.NewClient after the API key.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...maps.ClientOption) (*Client, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("new maps client: %w", err)
	}
	return &Client{
		client:  client,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// ForwardGeocode converts a free-text query to candidate places.
func (c *Client) ForwardGeocode(ctx context.Context, query string) ([]domain.Place, error) {
	return c.geocode(ctx, "forward", &maps.GeocodingRequest{
		Address:  query,
		Language: "en",
	})
}

// ReverseGeocode converts coordinates to candidate place descriptions.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) ([]domain.Place, error) {
	return c.geocode(ctx, "reverse", &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: lat, Lng: lon},
		ResultType: []string{"locality"},
		Language:   "en",
	})
}

func (c *Client) geocode(ctx context.Context, method string, req *maps.GeocodingRequest) ([]domain.Place, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := c.client.Geocode(ctx, req)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case len(results) == 0:
		outcome = "empty"
	}
	c.metrics.ObserveGeocode(providerName, method, outcome, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s geocode request: %w", method, err)
	}

	places := make([]domain.Place, 0, len(results))
	for _, r := range results {
		places = append(places, toPlace(r))
	}
	c.logger.Debug("google geocode", "method", method, "results", len(places))
	return places, nil
}

func toPlace(r maps.GeocodingResult) domain.Place {
	p := domain.Place{
		Lat:              r.Geometry.Location.Lat,
		Lon:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
	}
	for _, a := range r.AddressComponents {
		switch {
		case slices.Contains(a.Types, "locality"):
			p.City = a.LongName
		case p.City == "" && slices.Contains(a.Types, "postal_town"):
			p.City = a.LongName
		case slices.Contains(a.Types, "country"):
			p.Country = a.LongName
			p.CountryCode = a.ShortName
		}
	}
	return p
}
