package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-go/internal/domain"
	"vigil-go/internal/notifier"
	"vigil-go/internal/store/memory"
)

func alertsFor(kinds ...string) []*domain.Alert {
	alerts := make([]*domain.Alert, len(kinds))
	for i, kind := range kinds {
		alerts[i] = &domain.Alert{
			ID:               kind + "-" + string(rune('a'+i)),
			Status:           domain.AlertStatusEnabled,
			NotificationKind: kind,
		}
	}
	return alerts
}

func TestPool_FailureDoesNotBlockSiblings(t *testing.T) {
	failing := &fakeNotifier{kind: "failing", err: errors.New("smtp down")}
	ok := &fakeNotifier{kind: "ok"}
	d, _, _ := newDispatcher(t, Options{}, failing, ok)

	pool := NewPool(d, 4, 16, testLogger())
	defer pool.Shutdown(context.Background())

	_, rec := testPair("ok")
	results, err := pool.DispatchAll(context.Background(), rec, alertsFor("failing", "ok"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.OutcomeFailed, results[0].Outcome)
	assert.Equal(t, domain.OutcomeSent, results[1].Outcome)
	assert.Equal(t, int32(1), ok.calls.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	slow := &fakeNotifier{kind: "slow", delay: 20 * time.Millisecond}
	d, _, _ := newDispatcher(t, Options{}, slow)

	pool := NewPool(d, 2, 0, testLogger())
	defer pool.Shutdown(context.Background())

	_, rec := testPair("slow")
	results, err := pool.DispatchAll(context.Background(), rec, alertsFor("slow", "slow", "slow", "slow", "slow", "slow"))
	require.NoError(t, err)

	assert.Len(t, results, 6)
	assert.Equal(t, int32(6), slow.calls.Load())
	assert.LessOrEqual(t, slow.maxSeen.Load(), int32(2))
}

func TestPool_RunsConcurrently(t *testing.T) {
	slow := &fakeNotifier{kind: "slow", delay: 50 * time.Millisecond}
	d, _, _ := newDispatcher(t, Options{}, slow)

	pool := NewPool(d, 4, 4, testLogger())
	defer pool.Shutdown(context.Background())

	_, rec := testPair("slow")
	start := time.Now()
	_, err := pool.DispatchAll(context.Background(), rec, alertsFor("slow", "slow", "slow", "slow"))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 180*time.Millisecond, "four 50ms notifiers on four workers should overlap")
}

func TestPool_StorageErrorsAreJoined(t *testing.T) {
	reg := notifier.NewRegistry(testLogger())
	n := &fakeNotifier{kind: "fake"}
	require.NoError(t, reg.Register(n))
	tracker := &failingTracker{DedupTracker: memory.NewDedupTracker(), failMark: true}

	pool := NewPool(New(reg, tracker, Options{}, testLogger()), 2, 2, testLogger())
	defer pool.Shutdown(context.Background())

	_, rec := testPair("fake")
	results, err := pool.DispatchAll(context.Background(), rec, alertsFor("fake", "fake"))
	assert.ErrorIs(t, err, errStorage)
	assert.Empty(t, results)
	assert.Zero(t, n.calls.Load())
}

func TestPool_ShutdownRejectsWork(t *testing.T) {
	d, _, _ := newDispatcher(t, Options{}, &fakeNotifier{kind: "fake"})
	pool := NewPool(d, 1, 1, testLogger())

	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()), "shutdown is idempotent")

	_, rec := testPair("fake")
	results, err := pool.DispatchAll(context.Background(), rec, alertsFor("fake", "fake"))
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.Empty(t, results)
}

func TestPool_EmptyBatch(t *testing.T) {
	d, _, _ := newDispatcher(t, Options{})
	pool := NewPool(d, 1, 0, testLogger())
	defer pool.Shutdown(context.Background())

	_, rec := testPair("fake")
	results, err := pool.DispatchAll(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
