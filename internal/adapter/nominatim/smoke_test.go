//go:build nominatim

package nominatim

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/team-map-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Nominatim instance.
// Run with: go test -tags=nominatim ./internal/adapter/nominatim/ -v -count=1

func smokeClient() *Client {
	return NewClient("https://nominatim.openstreetmap.org", "team-map-service-smoke/1.0",
		10*time.Second, observability.NewMetricsForTesting(), observability.DiscardLogger())
}

func TestSmoke_ForwardThenReverse(t *testing.T) {
	c := smokeClient()
	ctx := context.Background()

	places, err := c.ForwardGeocode(ctx, "Seattle, US")
	require.NoError(t, err)
	require.NotEmpty(t, places)
	assert.InDelta(t, 47.6, places[0].Lat, 0.2)
	assert.InDelta(t, -122.3, places[0].Lon, 0.2)

	// Respect the public instance's one request per second policy.
	time.Sleep(1100 * time.Millisecond)

	rev, err := c.ReverseGeocode(ctx, places[0].Lat, places[0].Lon)
	require.NoError(t, err)
	require.NotEmpty(t, rev)
	assert.Contains(t, rev[0].FormattedAddress, "Seattle")
}
