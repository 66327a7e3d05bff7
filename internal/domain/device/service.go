package device

import "context"

// Service exposes device use-cases used by the HTTP layer.
type Service interface {
	GetDeviceDetail(ctx context.Context, id string) (Detail, error)
	CreateDevice(ctx context.Context, in CreateInput) (Device, error)
	UpdateDevice(ctx context.Context, id string, patch DevicePatch) (Device, error)
	DeleteDevice(ctx context.Context, id string) error
	RecordReading(ctx context.Context, deviceID string, in ReadingInput) (Reading, error)
	CreateAlert(ctx context.Context, deviceID string, in AlertInput) (Alert, error)
	ResolveAlert(ctx context.Context, id string) (Alert, error)
}
