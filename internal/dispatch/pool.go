package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
)

// ErrPoolStopped is returned when work is submitted after Shutdown.
var ErrPoolStopped = errors.New("dispatch pool stopped")

// job is one (alert, record) pair waiting for a worker.
type job struct {
	ctx   context.Context
	alert *domain.Alert
	rec   *domain.Record
	done  func(*domain.DispatchResult, error)
}

// Pool runs dispatches on a fixed number of workers so slow notifiers for
// one alert do not hold up the other alerts matched by the same record.
type Pool struct {
	dispatcher *Dispatcher
	workers    int
	jobs       chan job
	logger     *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool and starts its workers.
func NewPool(dispatcher *Dispatcher, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		dispatcher: dispatcher,
		workers:    workers,
		jobs:       make(chan job, queueSize),
		logger:     logger,
	}

	p.startWorkers()
	return p
}

func (p *Pool) startWorkers() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("dispatch worker started", "workerID", id)

	// The channel is closed by Shutdown once no submitter holds the lock,
	// so every accepted job is processed before the worker exits.
	for j := range p.jobs {
		metrics.DispatchQueueDepth.Dec()
		j.done(p.dispatcher.Dispatch(j.ctx, j.alert, j.rec))
	}

	p.logger.Debug("dispatch worker stopped", "workerID", id)
}

// DispatchAll dispatches every alert for rec concurrently and waits for the
// results. Results keep the order of alerts; pairs that could not be
// submitted are omitted. The error joins every dedup store failure and
// submission failure; a pair's own notifier failure is never an error.
func (p *Pool) DispatchAll(ctx context.Context, rec *domain.Record, alerts []*domain.Alert) ([]*domain.DispatchResult, error) {
	results := make([]*domain.DispatchResult, len(alerts))
	errs := make([]error, len(alerts))

	var batch sync.WaitGroup
	for i, alert := range alerts {
		batch.Add(1)
		j := job{
			ctx:   ctx,
			alert: alert,
			rec:   rec,
			done: func(result *domain.DispatchResult, err error) {
				results[i] = result
				errs[i] = err
				batch.Done()
			},
		}

		if err := p.submit(ctx, j); err != nil {
			errs[i] = err
			batch.Done()
			// Later submissions would fail the same way.
			for k := i + 1; k < len(alerts); k++ {
				errs[k] = err
			}
			break
		}
	}
	batch.Wait()

	out := make([]*domain.DispatchResult, 0, len(alerts))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}

func (p *Pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	metrics.DispatchQueueDepth.Inc()
	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		metrics.DispatchQueueDepth.Dec()
		return ctx.Err()
	}
}

// Shutdown stops accepting work, lets workers drain the queue and waits for
// them or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("dispatch pool shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
