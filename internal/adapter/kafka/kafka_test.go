package kafka

import (
	"context"
	"math"
	"testing"

	"github.com/couchcryptid/team-map-service/internal/config"
	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	meta := domain.DatasetMetadata{DataVersion: "1.0", LastUpdated: "2025-03-01T12:00:00Z"}
	m := domain.EnrichedMember{
		ID:        42,
		Name:      "Grace Hopper",
		Location:  "Arlington",
		Country:   "US",
		Latitude:  38.8816,
		Longitude: -77.091,
		Teams:     []domain.TeamSummary{{ID: 1, Name: "Core", Slug: "core"}},
	}

	msg, err := serializeToMessage(m, meta)
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), msg.Key)
	assert.Contains(t, string(msg.Value), `"name":"Grace Hopper"`)
	assert.Contains(t, string(msg.Value), `"latitude":38.8816`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "data_version", msg.Headers[0].Key)
	assert.Equal(t, []byte("1.0"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2025-03-01T12:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_RejectsNonFinite(t *testing.T) {
	_, err := serializeToMessage(domain.EnrichedMember{ID: 1, Latitude: math.NaN()}, domain.DatasetMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize member 1")
}

func TestPublish_EmptyDataset(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:0"}, KafkaTopic: "unused"}, observability.DiscardLogger())
	t.Cleanup(func() { _ = w.Close() })

	n, err := w.Publish(context.Background(), &domain.Dataset{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
