package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

const alertColumns = `id, device_id, severity, message, resolved, created_at, resolved_at`

// ListAlerts returns up to limit alerts for deviceID, newest first.
func (r *Repository) ListAlerts(ctx context.Context, deviceID string, limit int) ([]model.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM device_alerts
		WHERE device_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, alert)
	}
	return items, rows.Err()
}

func (r *Repository) InsertAlert(ctx context.Context, alert model.Alert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		alert.DeviceID,
		string(alert.Severity),
		alert.Message,
		alert.Resolved,
		formatTime(alert.CreatedAt),
		fromTimePtr(alert.ResolvedAt),
	)
	return err
}

// ResolveAlert marks an alert resolved. Resolving twice keeps the first resolved_at.
func (r *Repository) ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Alert{}, err
	}
	defer tx.Rollback()

	alert, err := scanAlert(tx.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM device_alerts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, ErrNotFound
	}
	if err != nil {
		return model.Alert{}, err
	}
	if alert.Resolved {
		return alert, tx.Commit()
	}

	resolvedAt := at.UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE device_alerts SET resolved = 1, resolved_at = ? WHERE id = ?`,
		formatTime(resolvedAt), id,
	); err != nil {
		return model.Alert{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Alert{}, err
	}
	alert.Resolved = true
	alert.ResolvedAt = &resolvedAt
	return alert, nil
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var (
		alert      model.Alert
		severity   string
		createdAt  string
		resolvedAt sql.NullString
	)
	if err := row.Scan(
		&alert.ID,
		&alert.DeviceID,
		&severity,
		&alert.Message,
		&alert.Resolved,
		&createdAt,
		&resolvedAt,
	); err != nil {
		return model.Alert{}, err
	}
	alert.Severity = model.AlertSeverity(severity)
	alert.CreatedAt = parseTime(createdAt)
	alert.ResolvedAt = toTimePtr(resolvedAt)
	return alert, nil
}
