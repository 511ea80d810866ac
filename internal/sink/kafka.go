package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/miradorstack/flightwatch/internal/models"
	"github.com/miradorstack/flightwatch/internal/utils"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Kafka publishes one JSON message per anomaly keyed by anomaly type.
type Kafka struct {
	writer messageWriter
}

// NewKafka creates a synchronous Kafka writer for the configured topic.
func NewKafka(cfg KafkaConfig) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}}
}

// Publish writes the cycle's records as a single batch.
func (k *Kafka) Publish(ctx context.Context, records []models.AnomalyRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs, err := buildMessages(records)
	if err != nil {
		return utils.NewAppError("kafka.publish", "encode anomalies", err)
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return utils.NewAppError("kafka.publish", "write messages", err)
	}
	return nil
}

// Name identifies the sink.
func (k *Kafka) Name() string { return "kafka" }

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func buildMessages(records []models.AnomalyRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(rec.Type),
			Value: payload,
			Time:  rec.Timestamp,
			Headers: []kafka.Header{
				{Key: "severity", Value: []byte(rec.Severity)},
				{Key: "anomaly-id", Value: []byte(rec.ID)},
			},
		})
	}
	return msgs, nil
}
