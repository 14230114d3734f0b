// Package kafka publishes clustered sightings to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/sighting-analytics-service/internal/config"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published message.
const (
	HeaderCluster = "cluster"
	HeaderYear    = "year"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and sends the clustered sightings in a single
// WriteMessages call. Messages are keyed by sighting ID so re-publishing a
// snapshot lands each row on the same partition.
func (w *Writer) Publish(ctx context.Context, sightings []domain.ClusteredSighting) error {
	if len(sightings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(sightings))
	for i := range sightings {
		msg, err := serializeToMessage(sightings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("published clustered sightings", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ClusteredSighting into a Kafka message. The
// year header is omitted when the sighting has no year.
func serializeToMessage(s domain.ClusteredSighting) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sighting %s: %w", s.ID, err)
	}
	headers := []kafkago.Header{
		{Key: HeaderCluster, Value: []byte(strconv.Itoa(s.ClusterID))},
	}
	if s.Year != nil {
		headers = append(headers, kafkago.Header{Key: HeaderYear, Value: []byte(strconv.Itoa(*s.Year))})
	}
	return kafkago.Message{
		Key:     []byte(s.ID),
		Value:   data,
		Headers: headers,
	}, nil
}
