package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/location-analysis/internal/config"
	"github.com/couchcryptid/location-analysis/internal/domain"
)

// Writer publishes analysis reports to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes reports in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.ReportMessage) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a report, keyed by the request it answers so
// replies for one request land on one partition.
func serializeToMessage(m domain.ReportMessage) (kafkago.Message, error) {
	data, err := json.Marshal(m.Report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report %s: %w", m.Report.ID, err)
	}
	key := m.RequestID
	if key == "" {
		key = m.Report.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_id", Value: []byte(m.Report.ID)},
			{Key: "request_id", Value: []byte(m.RequestID)},
			{Key: "generated_at", Value: []byte(m.Report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
