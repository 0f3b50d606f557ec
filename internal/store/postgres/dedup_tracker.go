package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
)

// DedupTracker implements store.DedupTracker on the dedup_markers table.
// The (alert_id, record_id) primary key makes MarkFired a single atomic insert.
type DedupTracker struct {
	db *DB
}

// NewDedupTracker creates a new PostgreSQL-backed dedup tracker.
func NewDedupTracker(db *DB) *DedupTracker {
	return &DedupTracker{db: db}
}

// AlreadyFired reports whether a marker exists for the pair.
func (t *DedupTracker) AlreadyFired(ctx context.Context, alertID, recordID string) (exists bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "dedup_exists", start, err) }()

	query := `SELECT EXISTS (SELECT 1 FROM dedup_markers WHERE alert_id = $1 AND record_id = $2)`
	if err = t.db.pool.QueryRow(ctx, query, alertID, recordID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check dedup marker: %w", err)
	}

	return exists, nil
}

// MarkFired inserts the marker unless one exists. Only the inserting caller
// gets a row back from RETURNING, so only it sees true.
func (t *DedupTracker) MarkFired(ctx context.Context, marker *domain.DedupMarker) (created bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "dedup_mark", start, err) }()

	query := `
		INSERT INTO dedup_markers (alert_id, record_id, outcome, fired_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (alert_id, record_id) DO NOTHING
		RETURNING alert_id
	`

	var alertID string
	err = t.db.pool.QueryRow(ctx, query,
		marker.AlertID,
		marker.RecordID,
		marker.Outcome,
		marker.FiredAt,
		marker.UpdatedAt,
	).Scan(&alertID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
			return false, nil
		}
		return false, fmt.Errorf("failed to insert dedup marker: %w", err)
	}

	return true, nil
}

// SetOutcome records the result of the attempt on an existing marker.
func (t *DedupTracker) SetOutcome(ctx context.Context, alertID, recordID string, outcome domain.Outcome) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "dedup_set_outcome", start, err) }()

	query := `
		UPDATE dedup_markers SET outcome = $3, updated_at = $4
		WHERE alert_id = $1 AND record_id = $2
	`

	result, err := t.db.pool.Exec(ctx, query, alertID, recordID, outcome, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update dedup marker: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMarkerNotFound
	}

	return nil
}

// ListByRecord returns every marker written for a record, oldest first.
func (t *DedupTracker) ListByRecord(ctx context.Context, recordID string) (markers []*domain.DedupMarker, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "dedup_list", start, err) }()

	query := `
		SELECT alert_id, record_id, outcome, fired_at, updated_at
		FROM dedup_markers WHERE record_id = $1
		ORDER BY fired_at, alert_id
	`

	rows, err := t.db.pool.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dedup markers: %w", err)
	}
	defer rows.Close()

	markers = []*domain.DedupMarker{}
	for rows.Next() {
		var m domain.DedupMarker
		if err = rows.Scan(&m.AlertID, &m.RecordID, &m.Outcome, &m.FiredAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dedup marker: %w", err)
		}
		markers = append(markers, &m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dedup markers: %w", err)
	}

	return markers, nil
}

// Close is a no-op; the pool is owned by DB.
func (t *DedupTracker) Close() error {
	return nil
}
