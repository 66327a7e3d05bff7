package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

const readingColumns = `id, device_id, metric_name, value, unit, timestamp, created_at`

// LatestReading returns the reading with the greatest timestamp for deviceID.
func (r *Repository) LatestReading(ctx context.Context, deviceID string) (model.Reading, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+readingColumns+`
		FROM sensor_readings
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT 1`, deviceID)
	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reading{}, false, nil
	}
	if err != nil {
		return model.Reading{}, false, err
	}
	return reading, true, nil
}

// ListReadings returns up to limit readings for deviceID, newest first.
func (r *Repository) ListReadings(ctx context.Context, deviceID string, limit int) ([]model.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM sensor_readings
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Reading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, reading)
	}
	return items, rows.Err()
}

func (r *Repository) InsertReading(ctx context.Context, reading model.Reading) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (`+readingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.DeviceID,
		reading.MetricName,
		reading.Value,
		reading.Unit,
		formatTime(reading.Timestamp),
		formatTime(reading.CreatedAt),
	)
	return err
}

func scanReading(row rowScanner) (model.Reading, error) {
	var (
		reading              model.Reading
		timestamp, createdAt string
	)
	if err := row.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.MetricName,
		&reading.Value,
		&reading.Unit,
		&timestamp,
		&createdAt,
	); err != nil {
		return model.Reading{}, err
	}
	reading.Timestamp = parseTime(timestamp)
	reading.CreatedAt = parseTime(createdAt)
	return reading, nil
}
