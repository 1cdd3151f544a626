// Package kafka publishes completed pipeline results to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"payrelay/config"
	"payrelay/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultBatchSize    = 100
	DefaultBatchTimeout = 100 * time.Millisecond

	headerIdempotencyKey = "idempotency-key"
	headerOperation      = "operation"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a synchronous writer that hashes keys so results for one
// merchant reference stay ordered on a partition.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.ReferenceHash{},
		BatchSize:              DefaultBatchSize,
		BatchTimeout:           DefaultBatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

// ResultPublisher implements ports.EventPublisher on top of a Kafka writer.
type ResultPublisher struct {
	writer MessageWriter
}

func NewResultPublisher(writer MessageWriter) *ResultPublisher {
	return &ResultPublisher{writer: writer}
}

// Publish writes result keyed by its merchant reference.
func (p *ResultPublisher) Publish(ctx context.Context, idempotencyKey string, result domain.CanonicalResult) error {
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(result.MerchantReference),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerIdempotencyKey, Value: []byte(idempotencyKey)},
			{Key: headerOperation, Value: []byte(result.Operation)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write result %s: %w", result.MerchantReference, err)
	}
	return nil
}

func (p *ResultPublisher) Close() error {
	return p.writer.Close()
}

// HealthCheck dials the first reachable broker.
type HealthCheck struct {
	brokers []string
}

func NewHealthCheck(brokers []string) *HealthCheck {
	return &HealthCheck{brokers: brokers}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var lastErr error
	for _, b := range h.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka brokers %s unreachable: %w", strings.Join(h.brokers, ","), lastErr)
}

func (h *HealthCheck) Name() string {
	return "kafka"
}
