package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

const providerName = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limit      int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		limit:   5,
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode converts a free-text query to candidate places.
func (c *Client) ForwardGeocode(ctx context.Context, query string) ([]domain.Place, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {fmt.Sprint(c.limitOrDefault())},
		"types":        {"place,locality,region,country"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "forward")
}

// ReverseGeocode converts coordinates to candidate place descriptions.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) ([]domain.Place, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
}

func (c *Client) limitOrDefault() int {
	if c.limit <= 0 {
		return 1
	}
	return c.limit
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) ([]domain.Place, error) {
	start := time.Now()
	places, err := c.fetch(ctx, fullURL, method)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case len(places) == 0:
		outcome = "empty"
	}
	c.metrics.ObserveGeocode(providerName, method, outcome, time.Since(start).Seconds())
	return places, err
}

func (c *Client) fetch(ctx context.Context, fullURL, method string) ([]domain.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	places := make([]domain.Place, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		if len(f.Center) != 2 {
			c.logger.Debug("skipping mapbox feature without center", "place_name", f.PlaceName)
			continue
		}
		places = append(places, f.toPlace())
	}
	return places, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64        `json:"center"` // [lon, lat]
	PlaceName string           `json:"place_name"`
	Text      string           `json:"text"`
	PlaceType []string         `json:"place_type"`
	Relevance float64          `json:"relevance"`
	Context   []featureContext `json:"context"`
}

type featureContext struct {
	ID        string `json:"id"` // "<type>.<id>", e.g. "place.123", "country.456"
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}

func (f feature) toPlace() domain.Place {
	p := domain.Place{
		Lon:              f.Center[0],
		Lat:              f.Center[1],
		FormattedAddress: f.PlaceName,
	}
	if slices.Contains(f.PlaceType, "place") || slices.Contains(f.PlaceType, "locality") {
		p.City = f.Text
	}
	if slices.Contains(f.PlaceType, "country") {
		p.Country = f.Text
	}
	for _, ctx := range f.Context {
		switch {
		case p.City == "" && strings.HasPrefix(ctx.ID, "place."):
			p.City = ctx.Text
		case strings.HasPrefix(ctx.ID, "country."):
			p.Country = ctx.Text
			p.CountryCode = strings.ToUpper(ctx.ShortCode)
		}
	}
	return p
}
