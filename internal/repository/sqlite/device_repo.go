package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
	"github.com/micro-ha/iot-dashboard/internal/pkg/utils"
	"github.com/micro-ha/iot-dashboard/internal/storage"
)

// ChangeNotifier is told about every committed write.
type ChangeNotifier interface {
	Notify()
}

// DeviceRepository is sqlite implementation of device.Repository.
type DeviceRepository struct {
	db       *DB
	notifier ChangeNotifier
}

// NewDeviceRepository creates sqlite-backed device repository. notifier may be nil.
func NewDeviceRepository(db *DB, notifier ChangeNotifier) *DeviceRepository {
	return &DeviceRepository{db: db, notifier: notifier}
}

// ListDevices returns all devices ordered by name.
func (r *DeviceRepository) ListDevices(ctx context.Context) ([]model.Device, error) {
	items, err := r.db.storage.ListDevices(ctx)
	if err != nil {
		return nil, classify("list devices", err)
	}
	return items, nil
}

// GetDevice returns one device by id.
func (r *DeviceRepository) GetDevice(ctx context.Context, id string) (model.Device, error) {
	device, err := r.db.storage.GetDevice(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Device{}, devicedomain.ErrDeviceNotFound
	}
	if err != nil {
		return model.Device{}, classify("get device", err)
	}
	return device, nil
}

// CreateDevice inserts a new device row.
func (r *DeviceRepository) CreateDevice(ctx context.Context, device model.Device) error {
	if err := r.db.storage.InsertDevice(ctx, device); err != nil {
		return classify("create device", err)
	}
	r.changed()
	return nil
}

// UpdateDevice applies non-nil patch fields.
func (r *DeviceRepository) UpdateDevice(
	ctx context.Context,
	id string,
	patch devicedomain.DevicePatch,
) (model.Device, error) {
	now := utils.NowUTC()
	device, err := r.db.storage.PatchDevice(ctx, id, func(d *model.Device) {
		ApplyPatch(d, patch, now)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return model.Device{}, devicedomain.ErrDeviceNotFound
	}
	if err != nil {
		return model.Device{}, classify("update device", err)
	}
	r.changed()
	return device, nil
}

// DeleteDevice removes a device with its readings and alerts.
func (r *DeviceRepository) DeleteDevice(ctx context.Context, id string) error {
	err := r.db.storage.DeleteDevice(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return devicedomain.ErrDeviceNotFound
	}
	if err != nil {
		return classify("delete device", err)
	}
	r.changed()
	return nil
}

// LatestReading returns the newest reading for a device.
func (r *DeviceRepository) LatestReading(ctx context.Context, deviceID string) (model.Reading, bool, error) {
	reading, ok, err := r.db.storage.LatestReading(ctx, deviceID)
	if err != nil {
		return model.Reading{}, false, classify("latest reading", err)
	}
	return reading, ok, nil
}

// ListReadings returns recent readings for a device, newest first.
func (r *DeviceRepository) ListReadings(ctx context.Context, deviceID string, limit int) ([]model.Reading, error) {
	items, err := r.db.storage.ListReadings(ctx, deviceID, limit)
	if err != nil {
		return nil, classify("list readings", err)
	}
	return items, nil
}

// InsertReading stores a reading for an existing device.
func (r *DeviceRepository) InsertReading(ctx context.Context, reading model.Reading) error {
	if err := r.db.storage.InsertReading(ctx, reading); err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert reading: %w", devicedomain.ErrDeviceNotFound)
		}
		return classify("insert reading", err)
	}
	r.changed()
	return nil
}

// ListAlerts returns recent alerts for a device, newest first.
func (r *DeviceRepository) ListAlerts(ctx context.Context, deviceID string, limit int) ([]model.Alert, error) {
	items, err := r.db.storage.ListAlerts(ctx, deviceID, limit)
	if err != nil {
		return nil, classify("list alerts", err)
	}
	return items, nil
}

// InsertAlert stores an alert for an existing device.
func (r *DeviceRepository) InsertAlert(ctx context.Context, alert model.Alert) error {
	if err := r.db.storage.InsertAlert(ctx, alert); err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("insert alert: %w", devicedomain.ErrDeviceNotFound)
		}
		return classify("insert alert", err)
	}
	return nil
}

// ResolveAlert marks an alert resolved.
func (r *DeviceRepository) ResolveAlert(ctx context.Context, id string) (model.Alert, error) {
	alert, err := r.db.storage.ResolveAlert(ctx, id, utils.NowUTC())
	if errors.Is(err, storage.ErrNotFound) {
		return model.Alert{}, devicedomain.ErrAlertNotFound
	}
	if err != nil {
		return model.Alert{}, classify("resolve alert", err)
	}
	return alert, nil
}

func (r *DeviceRepository) changed() {
	if r.notifier != nil {
		r.notifier.Notify()
	}
}

// ApplyPatch copies non-nil patch fields onto d and stamps updated_at.
func ApplyPatch(d *model.Device, patch devicedomain.DevicePatch, now time.Time) {
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Type != nil {
		d.Type = *patch.Type
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if patch.Location != nil {
		location := *patch.Location
		if location == "" {
			d.Location = nil
		} else {
			d.Location = &location
		}
	}
	if patch.LastSeen != nil {
		lastSeen := patch.LastSeen.UTC()
		d.LastSeen = &lastSeen
	}
	if patch.Metadata != nil {
		d.Metadata = patch.Metadata
	}
	d.UpdatedAt = now
}
