package device

import (
	"context"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

// DeviceLister returns the full device list ordered by name ascending.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
}

// ReadingQuerier returns the most recent reading for one device.
// A device without readings yields ok=false and a nil error.
type ReadingQuerier interface {
	LatestReading(ctx context.Context, deviceID string) (reading model.Reading, ok bool, err error)
}

// Subscription is a live change-notification registration.
type Subscription interface {
	// Unsubscribe releases the registration. Safe to call more than once.
	Unsubscribe()
}

// Subscriber delivers backend change notifications for devices and readings.
type Subscriber interface {
	Subscribe(onChange func()) (Subscription, error)
}

// Repository is the full backend surface used by the device service.
type Repository interface {
	DeviceLister
	ReadingQuerier

	GetDevice(ctx context.Context, id string) (model.Device, error)
	CreateDevice(ctx context.Context, device model.Device) error
	UpdateDevice(ctx context.Context, id string, patch DevicePatch) (model.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	ListReadings(ctx context.Context, deviceID string, limit int) ([]model.Reading, error)
	InsertReading(ctx context.Context, reading model.Reading) error

	ListAlerts(ctx context.Context, deviceID string, limit int) ([]model.Alert, error)
	InsertAlert(ctx context.Context, alert model.Alert) error
	ResolveAlert(ctx context.Context, id string) (model.Alert, error)
}
