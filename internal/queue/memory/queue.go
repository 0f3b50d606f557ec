// Package memory provides an in-memory implementation of the queue interfaces.
// It is used in memory storage mode and in tests.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"vigil-go/internal/queue"
)

// ErrQueueClosed is returned when attempting to publish to a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// Queue is an in-memory implementation of both Producer and Consumer.
// Messages are stored in a buffered channel. Safe for concurrent use.
type Queue struct {
	messages chan *queue.Message
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a new in-memory queue with the specified buffer size.
// Publish blocks while the buffer is full.
func NewQueue(bufferSize int, logger *slog.Logger) *Queue {
	return &Queue{
		messages: make(chan *queue.Message, bufferSize),
		logger:   logger,
	}
}

// Publish sends a message to the in-memory queue.
func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start consumes messages until ctx is canceled or the queue is closed.
// There is no redelivery: a handler error is logged and the message dropped.
func (q *Queue) Start(ctx context.Context, handler queue.MessageHandler) error {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-q.messages:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg); err != nil {
				q.logger.Error("failed to process message",
					"error", err,
					"recordID", msg.Headers[queue.HeaderRecordID],
				)
			}
		}
	}
}

// Close shuts down the queue and waits for consumers to drain it.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.messages)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of buffered messages.
func (q *Queue) Len() int {
	return len(q.messages)
}
