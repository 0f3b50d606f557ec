// Package queue defines the transport that carries activity records from
// ingestion to the processor. Implementations (Kafka, in-memory) are
// interchangeable behind Producer and Consumer.
package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"vigil-go/internal/domain"
)

// Header keys set on record messages.
const (
	HeaderRecordID  = "record_id"
	HeaderConnector = "connector"
	HeaderAction    = "action"
)

// Message represents a message in the queue.
type Message struct {
	// Key is the partition key for ordering guarantees.
	Key []byte

	// Value is the message payload.
	Value []byte

	// Headers contains optional metadata.
	Headers map[string]string
}

// Producer defines the interface for publishing messages to a queue.
// Implementations must be safe for concurrent use.
type Producer interface {
	// Publish sends a message to the queue. Messages with the same key are
	// delivered in order.
	Publish(ctx context.Context, msg *Message) error

	// Close releases any resources held by the producer.
	Close() error
}

// MessageHandler processes one consumed message. A returned error means the
// message was not handled and should be delivered again.
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer defines the interface for consuming messages from a queue.
type Consumer interface {
	// Start calls handler for each message until ctx is canceled or the
	// consumer is closed. It blocks.
	Start(ctx context.Context, handler MessageHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}

// PartitionKey returns the routing key for a record. Redeliveries of one
// record land on the same partition and are evaluated in order.
func PartitionKey(recordID string) string {
	hash := sha256.Sum256([]byte(recordID))
	return hex.EncodeToString(hash[:8])
}

// EncodeRecord wraps a record in a message.
func EncodeRecord(rec *domain.Record) (*Message, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	return &Message{
		Key:   []byte(PartitionKey(rec.ID)),
		Value: payload,
		Headers: map[string]string{
			HeaderRecordID:  rec.ID,
			HeaderConnector: rec.Connector,
			HeaderAction:    rec.Action,
		},
	}, nil
}

// DecodeRecord reads the record carried by a message.
func DecodeRecord(msg *Message) (*domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}
	return &rec, nil
}
