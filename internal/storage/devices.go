package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

var ErrNotFound = errors.New("not found")

const deviceColumns = `id, name, type, status, location, last_seen, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ListDevices returns all devices ordered by name using binary collation.
func (r *Repository) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, device)
	}
	return items, rows.Err()
}

func (r *Repository) GetDevice(ctx context.Context, id string) (model.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	device, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, ErrNotFound
	}
	return device, err
}

func (r *Repository) InsertDevice(ctx context.Context, device model.Device) error {
	metadata, err := encodeMetadata(device.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Name,
		string(device.Type),
		string(device.Status),
		fromStringPtr(device.Location),
		fromTimePtr(device.LastSeen),
		metadata,
		formatTime(device.CreatedAt),
		formatTime(device.UpdatedAt),
	)
	return err
}

// PatchDevice loads one device, applies mutate and writes it back in a single transaction.
func (r *Repository) PatchDevice(ctx context.Context, id string, mutate func(*model.Device)) (model.Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Device{}, err
	}
	defer tx.Rollback()

	device, err := scanDevice(tx.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, ErrNotFound
	}
	if err != nil {
		return model.Device{}, err
	}

	mutate(&device)
	device.ID = id

	metadata, err := encodeMetadata(device.Metadata)
	if err != nil {
		return model.Device{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, type = ?, status = ?, location = ?, last_seen = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		device.Name,
		string(device.Type),
		string(device.Status),
		fromStringPtr(device.Location),
		fromTimePtr(device.LastSeen),
		metadata,
		formatTime(device.UpdatedAt),
		id,
	); err != nil {
		return model.Device{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Device{}, err
	}
	return device, nil
}

func (r *Repository) DeleteDevice(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		device               model.Device
		deviceType, status   string
		location, lastSeen   sql.NullString
		metadata             string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&device.ID,
		&device.Name,
		&deviceType,
		&status,
		&location,
		&lastSeen,
		&metadata,
		&createdAt,
		&updatedAt,
	); err != nil {
		return model.Device{}, err
	}
	device.Type = model.DeviceType(deviceType)
	device.Status = model.DeviceStatus(status)
	device.Location = strPtr(location)
	device.LastSeen = toTimePtr(lastSeen)
	device.Metadata = decodeMetadata(metadata)
	device.CreatedAt = parseTime(createdAt)
	device.UpdatedAt = parseTime(updatedAt)
	return device, nil
}

func encodeMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

func decodeMetadata(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
