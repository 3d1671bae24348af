package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/config"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces one message per marker to the sink topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// Publish writes the detail payload of every entry in a single
// WriteMessages call. Messages are keyed by record name so updates for the
// same sensor land on the same partition.
func (w *Writer) Publish(ctx context.Context, entries []registry.MarkerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ingestedAt := w.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(entries))
	for i := range entries {
		msg, err := serializeToMessage(entries[i], ingestedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write markers to %s: %w", w.writer.Topic, err)
	}
	w.logger.Debug("markers published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(entry registry.MarkerEntry, ingestedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(entry.Detail())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize marker %q: %w", entry.Record.Name, err)
	}
	return kafkago.Message{
		Key:   []byte(entry.Record.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "type", Value: []byte(entry.Record.Type)},
			{Key: "ingested_at", Value: []byte(ingestedAt.Format(time.RFC3339))},
		},
	}, nil
}
