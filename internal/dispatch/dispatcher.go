// Package dispatch fires notifiers for matched (alert, record) pairs, at
// most once per pair.
//
// A pair is claimed by atomically creating its dedup marker before the
// notifier runs. Only the caller that creates the marker invokes the
// notifier; concurrent evaluations of the same record observe the marker and
// skip. The marker's outcome is updated as soon as the attempt finishes, so a
// crash between claim and outcome leaves a pending marker and no retry.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vigil-go/internal/config"
	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
	"vigil-go/internal/notifier"
	"vigil-go/internal/store"
)

// Errors describing failed attempts. They appear in DispatchResult.Error.
var (
	ErrNotifierTimeout = errors.New("notifier timed out")
	ErrNotifierPanic   = errors.New("notifier panicked")
)

// DefaultTimeout bounds a notifier call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Observer receives every dispatch result. Implementations must not block.
type Observer interface {
	ObserveDispatch(result *domain.DispatchResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(result *domain.DispatchResult)

// ObserveDispatch calls f.
func (f ObserverFunc) ObserveDispatch(result *domain.DispatchResult) {
	f(result)
}

// Options tune a Dispatcher.
type Options struct {
	// Timeout bounds each notifier call. Exceeding it is a timeout outcome.
	Timeout time.Duration

	// Unresolved decides what happens when the notification kind is not
	// registered: retry leaves the pair unmarked, skip marks it for good.
	Unresolved config.UnresolvedPolicy

	// Observers are called with every result.
	Observers []Observer
}

// Dispatcher invokes notifiers for matched pairs.
type Dispatcher struct {
	notifiers  *notifier.Registry
	tracker    store.DedupTracker
	timeout    time.Duration
	unresolved config.UnresolvedPolicy
	observers  []Observer
	logger     *slog.Logger
}

// New creates a dispatcher.
func New(notifiers *notifier.Registry, tracker store.DedupTracker, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Unresolved == "" {
		opts.Unresolved = config.UnresolvedRetry
	}
	return &Dispatcher{
		notifiers:  notifiers,
		tracker:    tracker,
		timeout:    opts.Timeout,
		unresolved: opts.Unresolved,
		observers:  opts.Observers,
		logger:     logger,
	}
}

// Dispatch fires alert's notifier for rec unless the pair already fired.
//
// Everything that goes wrong with this pair alone, including notifier
// errors, timeouts and panics, is reported in the result. A non-nil error
// means the dedup store failed; the caller should treat the pass as broken.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *domain.Alert, rec *domain.Record) (*domain.DispatchResult, error) {
	result := &domain.DispatchResult{
		AlertID:      alert.ID,
		RecordID:     rec.ID,
		NotifierKind: alert.NotificationKind,
	}

	fired, err := d.tracker.AlreadyFired(ctx, alert.ID, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dedup marker for alert %s: %w", alert.ID, err)
	}
	if fired {
		result.Outcome = domain.OutcomeAlreadyFired
		d.report(result)
		return result, nil
	}

	n, ok := d.notifiers.Resolve(alert.NotificationKind)
	if !ok {
		return d.unavailable(ctx, result)
	}

	created, err := d.tracker.MarkFired(ctx, domain.NewDedupMarker(alert.ID, rec.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to mark alert %s fired: %w", alert.ID, err)
	}
	if !created {
		// Another evaluation claimed the pair between the check and the mark.
		metrics.DedupRaceLossesTotal.WithLabelValues(result.NotifierKind).Inc()
		result.Outcome = domain.OutcomeAlreadyFired
		d.report(result)
		return result, nil
	}

	start := time.Now()
	result.Outcome, err = d.invoke(ctx, n, alert, rec)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
	}

	// The attempt happened; record it even if the caller's context is gone.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.tracker.SetOutcome(storeCtx, alert.ID, rec.ID, result.Outcome); err != nil {
		d.report(result)
		return result, fmt.Errorf("failed to record outcome for alert %s: %w", alert.ID, err)
	}

	d.report(result)
	return result, nil
}

// unavailable handles a notification kind that does not resolve.
func (d *Dispatcher) unavailable(ctx context.Context, result *domain.DispatchResult) (*domain.DispatchResult, error) {
	result.Outcome = domain.OutcomeNotifierUnavailable

	if d.unresolved == config.UnresolvedSkip {
		marker := domain.NewDedupMarker(result.AlertID, result.RecordID)
		marker.Outcome = domain.OutcomeNotifierUnavailable
		created, err := d.tracker.MarkFired(ctx, marker)
		if err != nil {
			return nil, fmt.Errorf("failed to mark alert %s unavailable: %w", result.AlertID, err)
		}
		if !created {
			metrics.DedupRaceLossesTotal.WithLabelValues(result.NotifierKind).Inc()
			result.Outcome = domain.OutcomeAlreadyFired
		}
	}

	d.report(result)
	return result, nil
}

// invoke runs the notifier under the dispatch timeout. The notifier runs in
// its own goroutine so a call that ignores its context cannot hold a worker
// past the deadline.
func (d *Dispatcher) invoke(ctx context.Context, n notifier.Notifier, alert *domain.Alert, rec *domain.Record) (domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	recCopy := *rec
	alertCopy := alert.Clone()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrNotifierPanic, r)
			}
		}()
		done <- n.Notify(ctx, alertCopy, &recCopy)
	}()

	select {
	case err := <-done:
		if err == nil {
			return domain.OutcomeSent, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.OutcomeTimeout, fmt.Errorf("%w: %w", ErrNotifierTimeout, err)
		}
		return domain.OutcomeFailed, err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.OutcomeTimeout, fmt.Errorf("%w after %s", ErrNotifierTimeout, d.timeout)
		}
		return domain.OutcomeFailed, ctx.Err()
	}
}

// report emits the per-attempt log line, metrics and observer callbacks.
func (d *Dispatcher) report(result *domain.DispatchResult) {
	metrics.DispatchAttemptsTotal.WithLabelValues(result.NotifierKind, string(result.Outcome)).Inc()
	if result.Outcome.Attempted() {
		metrics.DispatchLatency.WithLabelValues(result.NotifierKind).Observe(result.Duration.Seconds())
	}

	attrs := []any{
		"alertID", result.AlertID,
		"recordID", result.RecordID,
		"notifierKind", result.NotifierKind,
		"outcome", result.Outcome,
	}
	switch result.Outcome {
	case domain.OutcomeSent, domain.OutcomeAlreadyFired:
		d.logger.Debug("dispatch finished", attrs...)
	default:
		if result.Error != "" {
			attrs = append(attrs, "error", result.Error)
		}
		d.logger.Warn("dispatch did not deliver", attrs...)
	}

	for _, o := range d.observers {
		o.ObserveDispatch(result)
	}
}
