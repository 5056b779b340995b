package events

import (
	"context"       // Context for Kafka writes
	"encoding/json" // JSON encoding of event payloads
	"fmt"           // Error wrapping
	"strconv"       // Wallet ID to message key

	"github.com/segmentio/kafka-go" // Kafka client
	"github.com/sirupsen/logrus"    // Logging library
)

// TransactionEvent is published after a ledger entry is finalized so
// downstream consumers (dashboards, reporting) can follow wallet activity.
type TransactionEvent struct {
	WalletID      uint   `json:"wallet_id"`      // Owning wallet
	TransactionID uint   `json:"transaction_id"` // Ledger entry, zero for recharge failures
	Kind          string `json:"kind"`           // credit or debit
	Status        string `json:"status"`         // completed or failed
	AmountCents   int64  `json:"amount_cents"`   // Amount in cents
	Sequence      uint64 `json:"sequence"`       // Ledger sequence, zero for recharge failures
	Description   string `json:"description"`    // Human-readable reason
}

// Publisher delivers wallet events to interested consumers.
type Publisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent) error
}

// KafkaPublisher publishes events to a Kafka topic, keyed by wallet ID so
// events for the same wallet stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaWriter builds a writer for the given brokers and topic
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},    // Hash balancer keeps per-wallet ordering
		RequiredAcks: kafka.RequireOne, // Wait for acknowledgement from leader
		Async:        false,            // Synchronous writing for reliability
		MaxAttempts:  10,
	}
}

// NewKafkaPublisher creates a KafkaPublisher on top of an existing writer
func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// PublishTransaction sends the event to Kafka
func (p *KafkaPublisher) PublishTransaction(ctx context.Context, event TransactionEvent) error {
	payload, err := json.Marshal(event) // Marshal event to JSON
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}
	// Key by wallet ID to guarantee ordering for events of the same wallet
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.WalletID), 10)),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write transaction event: %w", err)
	}
	return nil
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

// PublishTransaction discards the event
func (NopPublisher) PublishTransaction(ctx context.Context, event TransactionEvent) error {
	return nil
}

// Publish is a helper that publishes and logs (instead of propagating) the
// error: event delivery is best-effort and must never fail the mutation that
// produced it.
func Publish(ctx context.Context, p Publisher, event TransactionEvent) {
	if p == nil {
		return
	}
	if err := p.PublishTransaction(ctx, event); err != nil {
		logrus.WithFields(logrus.Fields{
			"wallet_id": event.WalletID,   // Owning wallet
			"kind":      event.Kind,       // Event kind
			"error":     err.Error(),      // Publish error
		}).Warn("Failed to publish wallet event")
	}
}
