// Package processor runs the per-record pipeline: load enabled alerts,
// find matches and dispatch them. It is fed either by the record queue or
// synchronously by a host that inserts records itself.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vigil-go/internal/dispatch"
	"vigil-go/internal/domain"
	"vigil-go/internal/engine"
	"vigil-go/internal/metrics"
	"vigil-go/internal/queue"
	"vigil-go/internal/store"
)

// Report summarises one evaluation pass for a record.
type Report struct {
	RecordID  string                   `json:"record_id"`
	Evaluated int                      `json:"evaluated"`
	Matched   []string                 `json:"matched"`
	Results   []*domain.DispatchResult `json:"results"`
}

// Service consumes records and drives them through matching and dispatch.
type Service struct {
	consumer queue.Consumer
	repo     store.AlertRepository
	engine   *engine.Engine
	pool     *dispatch.Pool
	logger   *slog.Logger

	listenerTimeout time.Duration
}

// DefaultListenerTimeout bounds one OnRecordInserted call.
const DefaultListenerTimeout = 30 * time.Second

// NewService creates a new processor service.
func NewService(
	consumer queue.Consumer,
	repo store.AlertRepository,
	eng *engine.Engine,
	pool *dispatch.Pool,
	logger *slog.Logger,
) *Service {
	return &Service{
		consumer: consumer,
		repo:     repo,
		engine:   eng,
		pool:     pool,
		logger:   logger,

		listenerTimeout: DefaultListenerTimeout,
	}
}

// SetListenerTimeout changes the deadline applied to OnRecordInserted.
// Non-positive values are ignored.
func (s *Service) SetListenerTimeout(d time.Duration) {
	if d > 0 {
		s.listenerTimeout = d
	}
}

// Start begins consuming records from the queue. It blocks until ctx is
// canceled or the consumer is closed.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting processor service")
	return s.consumer.Start(ctx, s.handleMessage)
}

// handleMessage processes a single record message from the queue.
func (s *Service) handleMessage(ctx context.Context, msg *queue.Message) error {
	rec, err := queue.DecodeRecord(msg)
	if err != nil {
		metrics.RecordsProcessedTotal.WithLabelValues("invalid").Inc()
		s.logger.Error("failed to decode record", "error", err, "key", string(msg.Key))
		// Return nil to avoid reprocessing malformed messages
		return nil
	}

	if _, err := s.ProcessRecord(ctx, rec); err != nil {
		if isInvalidRecord(err) {
			// Redelivery cannot fix the record, so it is dropped.
			s.logger.Warn("dropping invalid record", "error", err, "recordID", rec.ID, "key", string(msg.Key))
			return nil
		}
		// Storage failures are returned so the message is delivered again.
		// Pairs that already fired are skipped by the dedup tracker.
		return err
	}
	return nil
}

// isInvalidRecord reports whether err comes from record validation.
func isInvalidRecord(err error) bool {
	return errors.Is(err, domain.ErrEmptyRecordID) ||
		errors.Is(err, domain.ErrEmptyConnector) ||
		errors.Is(err, domain.ErrEmptyAction)
}

// ProcessRecord evaluates rec against a fresh snapshot of enabled alerts and
// dispatches every match. Per-pair failures are part of the report; the
// returned error is reserved for storage failures that make the pass
// unreliable.
func (s *Service) ProcessRecord(ctx context.Context, rec *domain.Record) (*Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if err := rec.Validate(); err != nil {
		metrics.RecordsProcessedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	alerts, err := s.repo.ListEnabled(ctx)
	if err != nil {
		metrics.RecordsProcessedTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("failed to load enabled alerts", "recordID", rec.ID, "error", err)
		return nil, fmt.Errorf("failed to load enabled alerts: %w", err)
	}

	matches := s.engine.FindMatches(rec, alerts)
	report := &Report{
		RecordID:  rec.ID,
		Evaluated: len(alerts),
		Matched:   make([]string, 0, len(matches)),
	}
	for _, a := range matches {
		report.Matched = append(report.Matched, a.ID)
	}

	if len(matches) == 0 {
		report.Results = []*domain.DispatchResult{}
		metrics.RecordsProcessedTotal.WithLabelValues("ok").Inc()
		s.logger.Debug("no alerts matched record", "recordID", rec.ID, "evaluated", len(alerts))
		return report, nil
	}

	results, err := s.pool.DispatchAll(ctx, rec, matches)
	report.Results = results
	if err != nil {
		metrics.RecordsProcessedTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("dispatch pass incomplete",
			"recordID", rec.ID,
			"matched", len(matches),
			"dispatched", len(results),
			"error", err,
		)
		return report, fmt.Errorf("failed to dispatch record %s: %w", rec.ID, err)
	}

	metrics.RecordsProcessedTotal.WithLabelValues("ok").Inc()
	s.logger.Info("record processed",
		"recordID", rec.ID,
		"evaluated", len(alerts),
		"matched", len(matches),
	)
	return report, nil
}

// OnRecordInserted is the listener a host calls after persisting a record.
// It runs the pipeline and always hands back the record it was given, so a
// failing or panicking evaluation never blocks the host's own pipeline.
// The pass is bounded by the listener timeout even when ctx has no deadline.
func (s *Service) OnRecordInserted(ctx context.Context, rec *domain.Record) (out *domain.Record) {
	out = rec
	if rec == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, s.listenerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("record listener panicked", "recordID", rec.ID, "panic", r)
		}
	}()

	if _, err := s.ProcessRecord(ctx, rec); err != nil {
		level := slog.LevelError
		if isInvalidRecord(err) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "record listener failed", "recordID", rec.ID, "error", err)
	}
	return out
}

// Stop gracefully stops the processor service.
func (s *Service) Stop() error {
	s.logger.Info("stopping processor service")
	return s.consumer.Close()
}
