// Package ingest accepts activity records from the HTTP API, validates them
// and publishes them to the queue for asynchronous evaluation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
	"vigil-go/internal/queue"
)

// ErrPublishFailed is returned when the queue rejects a record.
var ErrPublishFailed = errors.New("failed to publish record to queue")

// Service handles record ingestion.
type Service struct {
	producer queue.Producer
	logger   *slog.Logger
}

// NewService creates a new ingest service.
func NewService(producer queue.Producer, logger *slog.Logger) *Service {
	return &Service{
		producer: producer,
		logger:   logger,
	}
}

// Prepare normalises a record received from outside: identifiers are
// trimmed, a missing ID is generated and a missing timestamp is set to now.
func Prepare(rec *domain.Record) error {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.AuthorID = strings.TrimSpace(rec.AuthorID)
	rec.Connector = strings.TrimSpace(rec.Connector)
	rec.Context = strings.TrimSpace(rec.Context)
	rec.Action = strings.TrimSpace(rec.Action)

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return rec.Validate()
}

// IngestRecord validates rec and publishes it to the queue. The record is
// prepared in place so the caller can report the assigned ID.
func (s *Service) IngestRecord(ctx context.Context, rec *domain.Record) error {
	if err := Prepare(rec); err != nil {
		return err
	}

	metrics.RecordsReceivedTotal.WithLabelValues(rec.Connector).Inc()

	msg, err := queue.EncodeRecord(rec)
	if err != nil {
		s.logger.Error("failed to serialize record", "error", err, "recordID", rec.ID)
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	publishStart := time.Now()
	if err := s.producer.Publish(ctx, msg); err != nil {
		s.logger.Error("failed to publish record", "error", err, "recordID", rec.ID)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	metrics.QueuePublishLatency.Observe(time.Since(publishStart).Seconds())
	metrics.RecordsPublishedTotal.WithLabelValues(rec.Connector).Inc()

	s.logger.Debug("record published to queue",
		"recordID", rec.ID,
		"connector", rec.Connector,
		"action", rec.Action,
	)

	return nil
}
