package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/climate-trigger-map/internal/config"
	"github.com/couchcryptid/climate-trigger-map/internal/domain"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the SnapshotWriter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SnapshotWriter publishes the rows behind each rendered map, one message per
// province. It implements pipeline.Publisher.
type SnapshotWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSnapshotWriter creates a Kafka producer for the configured snapshot topic.
func NewSnapshotWriter(cfg *config.Config, logger *slog.Logger) *SnapshotWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSnapshotTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &SnapshotWriter{writer: w, logger: logger}
}

// Publish writes the snapshot in a single WriteMessages call, retrying
// transient failures with backoff.
func (w *SnapshotWriter) Publish(ctx context.Context, snap *domain.Snapshot) error {
	msgs, err := snapshotMessages(snap)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err = w.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			return nil
		}
		if attempt == maxAttempts || ctx.Err() != nil {
			return fmt.Errorf("publish snapshot %s: %w", snap.ArtifactID, err)
		}
		w.logger.Warn("snapshot write failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish snapshot %s: %w", snap.ArtifactID, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (w *SnapshotWriter) Close() error {
	return w.writer.Close()
}

// provinceRecord is the message value for one province.
type provinceRecord struct {
	ArtifactID  string         `json:"artifact_id"`
	Map         string         `json:"map"`
	Year        int            `json:"year,omitempty"`
	Month       int            `json:"month,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Province    string         `json:"province"`
	Values      map[string]any `json:"values"`
}

// snapshotMessages serializes each record of snap, keyed by province.
func snapshotMessages(snap *domain.Snapshot) ([]kafkago.Message, error) {
	headers := []kafkago.Header{
		{Key: "artifact_id", Value: []byte(snap.ArtifactID)},
		{Key: "map", Value: []byte(snap.Map)},
		{Key: "generated_at", Value: []byte(snap.GeneratedAt.Format(time.RFC3339))},
	}
	if snap.Year != 0 {
		period := fmt.Sprintf("%d-%02d", snap.Year, snap.Month)
		headers = append(headers, kafkago.Header{Key: "period", Value: []byte(period)})
	}

	msgs := make([]kafkago.Message, 0, len(snap.Records))
	for _, rec := range snap.Records {
		province, _ := rec[domain.ColProvince].(string)
		data, err := json.Marshal(provinceRecord{
			ArtifactID:  snap.ArtifactID,
			Map:         snap.Map,
			Year:        snap.Year,
			Month:       snap.Month,
			GeneratedAt: snap.GeneratedAt,
			Province:    province,
			Values:      rec,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize %s snapshot for %q: %w", snap.Map, province, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:     []byte(province),
			Value:   data,
			Headers: headers,
		})
	}
	return msgs, nil
}
