// Package nominatim implements domain.Geocoder against an OpenStreetMap
// Nominatim server. The public instance requires an identifying User-Agent and
// at most one request per second.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

const providerName = "nominatim"

// Client implements domain.Geocoder using the Nominatim search and reverse APIs.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. baseURL has no trailing path, e.g.
// https://nominatim.openstreetmap.org.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode converts a free-text query to candidate places.
func (c *Client) ForwardGeocode(ctx context.Context, query string) ([]domain.Place, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}

	start := time.Now()
	var hits []searchResult
	err := c.get(ctx, "/search", params, &hits)
	places := make([]domain.Place, 0, len(hits))
	if err == nil {
		for _, h := range hits {
			p, perr := h.toPlace()
			if perr != nil {
				c.logger.Debug("skipping nominatim result", "display_name", h.DisplayName, "error", perr)
				continue
			}
			places = append(places, p)
		}
	}
	c.observe("forward", start, len(places), err)
	if err != nil {
		return nil, err
	}
	return places, nil
}

// ReverseGeocode converts coordinates to a place description. Nominatim returns a
// single object, or an error object when nothing is found there.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) ([]domain.Place, error) {
	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', 6, 64)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"zoom":           {"10"},
	}

	start := time.Now()
	var hit searchResult
	err := c.get(ctx, "/reverse", params, &hit)
	var places []domain.Place
	if err == nil && hit.Error == "" {
		if p, perr := hit.toPlace(); perr == nil {
			places = append(places, p)
		}
	}
	c.observe("reverse", start, len(places), err)
	if err != nil {
		return nil, err
	}
	return places, nil
}

func (c *Client) observe(method string, start time.Time, n int, err error) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case n == 0:
		outcome = "empty"
	}
	c.metrics.ObserveGeocode(providerName, method, outcome, time.Since(start).Seconds())
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Nominatim API response types. Coordinates arrive as strings.

type searchResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Hamlet      string `json:"hamlet"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

func (a address) city() string {
	for _, v := range []string{a.City, a.Town, a.Village, a.Hamlet} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r searchResult) toPlace() (domain.Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}
	return domain.Place{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: r.DisplayName,
		City:             r.Address.city(),
		Country:          r.Address.Country,
		CountryCode:      strings.ToUpper(r.Address.CountryCode),
	}, nil
}
