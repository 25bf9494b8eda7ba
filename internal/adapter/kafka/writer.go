package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/team-map-service/internal/config"
	"github.com/couchcryptid/team-map-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// publishBatchSize bounds the number of messages handed to one WriteMessages call.
const publishBatchSize = 100

// Writer publishes enriched team members to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message per member, keyed by member id so that repeated
// publishes of the same member land on the same partition. It returns the
// number of members written before any error.
func (w *Writer) Publish(ctx context.Context, ds *domain.Dataset) (int, error) {
	written := 0
	for start := 0; start < len(ds.Team); start += publishBatchSize {
		end := min(start+publishBatchSize, len(ds.Team))

		msgs := make([]kafkago.Message, 0, end-start)
		for _, m := range ds.Team[start:end] {
			msg, err := serializeToMessage(m, ds.Metadata)
			if err != nil {
				return written, err
			}
			msgs = append(msgs, msg)
		}

		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return written, fmt.Errorf("write members %d-%d: %w", start, end-1, err)
		}
		written += len(msgs)
		w.logger.Debug("published batch", "topic", w.writer.Topic, "count", len(msgs))
	}

	w.logger.Info("dataset published", "topic", w.writer.Topic, "members", written,
		"data_version", ds.Metadata.DataVersion)
	return written, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EnrichedMember into a Kafka message.
func serializeToMessage(m domain.EnrichedMember, meta domain.DatasetMetadata) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize member %d: %w", m.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(m.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "data_version", Value: []byte(meta.DataVersion)},
			{Key: "generated_at", Value: []byte(meta.LastUpdated)},
		},
	}, nil
}
