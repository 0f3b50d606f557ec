package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"vigil-go/internal/domain"
	"vigil-go/internal/metrics"
)

const alertColumns = `
	id, status, author_id, trigger_kind, trigger_filters,
	notification_kind, notification_config, created_at, updated_at
`

// AlertRepository implements store.AlertRepository using PostgreSQL.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new PostgreSQL-backed alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create stores a new alert definition.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "alert_create", start, err) }()

	filters, err := json.Marshal(alert.TriggerFilters)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger filters: %w", err)
	}
	config, err := json.Marshal(alert.NotificationConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal notification config: %w", err)
	}

	query := `
		INSERT INTO alert_definitions (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.pool.Exec(ctx, query,
		alert.ID,
		alert.Status,
		alert.AuthorID,
		alert.TriggerKind,
		filters,
		alert.NotificationKind,
		config,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// UpdateStatus switches an alert on or off and returns the updated row.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, status domain.AlertStatus) (alert *domain.Alert, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "alert_update_status", start, err) }()

	query := `
		UPDATE alert_definitions SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + alertColumns

	row := r.db.pool.QueryRow(ctx, query, id, status, time.Now().UTC())
	alert, err = scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update alert status: %w", err)
	}

	return alert, nil
}

// Delete removes an alert definition by ID.
func (r *AlertRepository) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "alert_delete", start, err) }()

	result, err := r.db.pool.Exec(ctx, `DELETE FROM alert_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}

	return nil
}

// GetByID retrieves an alert definition by its ID.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (alert *domain.Alert, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "alert_get", start, err) }()

	query := `SELECT ` + alertColumns + ` FROM alert_definitions WHERE id = $1`

	alert, err = scanAlert(r.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// List retrieves alert definitions matching the filter criteria, newest first.
func (r *AlertRepository) List(ctx context.Context, filter domain.AlertFilter) (alerts []*domain.Alert, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStorage("postgres", "alert_list", start, err) }()

	query := `SELECT ` + alertColumns + ` FROM alert_definitions WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}

	if filter.TriggerKind != "" {
		query += fmt.Sprintf(" AND trigger_kind = $%d", argNum)
		args = append(args, filter.TriggerKind)
		argNum++
	}

	if filter.NotificationKind != "" {
		query += fmt.Sprintf(" AND notification_kind = $%d", argNum)
		args = append(args, filter.NotificationKind)
		argNum++
	}

	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListEnabled returns every enabled alert definition.
func (r *AlertRepository) ListEnabled(ctx context.Context) ([]*domain.Alert, error) {
	return r.List(ctx, domain.AlertFilter{Status: domain.AlertStatusEnabled})
}

// scanAlert scans a single row into an Alert.
func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var alert domain.Alert
	var filters, config []byte

	err := row.Scan(
		&alert.ID,
		&alert.Status,
		&alert.AuthorID,
		&alert.TriggerKind,
		&filters,
		&alert.NotificationKind,
		&config,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSONColumns(&alert, filters, config); err != nil {
		return nil, err
	}

	return &alert, nil
}

// scanAlerts scans multiple rows into a slice of Alerts.
func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	alerts := []*domain.Alert{}

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// decodeJSONColumns fills the JSONB-backed fields. Malformed filters are kept
// as an error here rather than silently widened to a wildcard.
func decodeJSONColumns(alert *domain.Alert, filters, config []byte) error {
	alert.TriggerFilters = domain.Filters{}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &alert.TriggerFilters); err != nil {
			return fmt.Errorf("failed to decode trigger filters for alert %s: %w", alert.ID, err)
		}
	}

	alert.NotificationConfig = map[string]string{}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &alert.NotificationConfig); err != nil {
			return fmt.Errorf("failed to decode notification config for alert %s: %w", alert.ID, err)
		}
	}

	return nil
}
