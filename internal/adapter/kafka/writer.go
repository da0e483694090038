package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flood-frequency/internal/config"
	"github.com/couchcryptid/flood-frequency/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes fitted frequency curves to the sink topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes a fitted curve event and writes it to the sink topic.
func (w *Writer) Publish(ctx context.Context, event domain.FittedCurveEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FittedCurveEvent into a Kafka message keyed
// by station, so per-station ordering survives partitioning.
func serializeToMessage(event domain.FittedCurveEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fitted curve: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_id", Value: []byte(event.StationID)},
			{Key: "fitted_at", Value: []byte(event.FittedAt.Format(time.RFC3339))},
		},
	}, nil
}
