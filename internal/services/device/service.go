package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
	"github.com/micro-ha/iot-dashboard/internal/pkg/utils"
	"github.com/micro-ha/iot-dashboard/internal/syncstore"
)

const (
	detailReadingLimit = 50
	detailAlertLimit   = 10
)

// Refresher brings the shared snapshot up to date after a write.
type Refresher interface {
	RefreshNow(ctx context.Context) (*syncstore.Snapshot, error)
}

// Service implements device.Service use-cases.
type Service struct {
	repo      devicedomain.Repository
	refresher Refresher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

var _ devicedomain.Service = (*Service)(nil)

// New creates device service. refresher may be nil when no snapshot is kept.
func New(repo devicedomain.Repository, refresher Refresher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		refresher: refresher,
		logger:    logger,
		now:       utils.NowUTC,
		newID:     uuid.NewString,
	}
}

// GetDeviceDetail returns a device with its recent readings and alerts.
func (s *Service) GetDeviceDetail(ctx context.Context, id string) (devicedomain.Detail, error) {
	device, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return devicedomain.Detail{}, err
	}
	readings, err := s.repo.ListReadings(ctx, id, detailReadingLimit)
	if err != nil {
		return devicedomain.Detail{}, err
	}
	alerts, err := s.repo.ListAlerts(ctx, id, detailAlertLimit)
	if err != nil {
		return devicedomain.Detail{}, err
	}
	if readings == nil {
		readings = []model.Reading{}
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return devicedomain.Detail{Device: device, Readings: readings, Alerts: alerts}, nil
}

// CreateDevice validates input, stores a new device and refreshes the snapshot.
func (s *Service) CreateDevice(ctx context.Context, in devicedomain.CreateInput) (devicedomain.Device, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return devicedomain.Device{}, &devicedomain.ValidationError{Field: "name", Reason: "is required"}
	}
	deviceType := model.DeviceType(strings.TrimSpace(in.Type))
	if !deviceType.Valid() {
		return devicedomain.Device{}, &devicedomain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown device type %q", in.Type)}
	}
	status := model.DeviceStatusOnline
	if raw := strings.TrimSpace(in.Status); raw != "" {
		status = model.DeviceStatus(raw)
		if !status.Valid() {
			return devicedomain.Device{}, &devicedomain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Status)}
		}
	}

	now := s.now()
	device := model.Device{
		ID:        s.newID(),
		Name:      name,
		Type:      deviceType,
		Status:    status,
		Location:  trimOptional(in.Location),
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if device.Metadata == nil {
		device.Metadata = map[string]any{}
	}
	if err := s.repo.CreateDevice(ctx, device); err != nil {
		return devicedomain.Device{}, err
	}
	s.logger.Info("device created", "id", device.ID, "type", device.Type)
	return device, s.confirm(ctx, "create")
}

// UpdateDevice applies a partial patch and refreshes the snapshot.
func (s *Service) UpdateDevice(ctx context.Context, id string, patch devicedomain.DevicePatch) (devicedomain.Device, error) {
	if err := validatePatch(&patch); err != nil {
		return devicedomain.Device{}, err
	}
	device, err := s.repo.UpdateDevice(ctx, id, patch)
	if err != nil {
		return devicedomain.Device{}, err
	}
	s.logger.Info("device updated", "id", id)
	return device, s.confirm(ctx, "update")
}

// DeleteDevice removes a device and refreshes the snapshot.
func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	if err := s.repo.DeleteDevice(ctx, id); err != nil {
		return err
	}
	s.logger.Info("device deleted", "id", id)
	return s.confirm(ctx, "delete")
}

// RecordReading stores one measurement. Timestamp defaults to now.
func (s *Service) RecordReading(ctx context.Context, deviceID string, in devicedomain.ReadingInput) (devicedomain.Reading, error) {
	if in.Value == nil {
		return devicedomain.Reading{}, &devicedomain.ValidationError{Field: "value", Reason: "is required"}
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		return devicedomain.Reading{}, &devicedomain.ValidationError{Field: "unit", Reason: "is required"}
	}
	metric := strings.TrimSpace(in.MetricName)
	if metric == "" {
		metric = "value"
	}

	now := s.now()
	reading := model.Reading{
		ID:         s.newID(),
		DeviceID:   deviceID,
		MetricName: metric,
		Value:      *in.Value,
		Unit:       unit,
		Timestamp:  now,
		CreatedAt:  now,
	}
	if in.Timestamp != nil {
		reading.Timestamp = in.Timestamp.UTC()
	}
	if err := s.repo.InsertReading(ctx, reading); err != nil {
		return devicedomain.Reading{}, err
	}
	return reading, s.confirm(ctx, "record reading")
}

// CreateAlert raises an alert for a device.
func (s *Service) CreateAlert(ctx context.Context, deviceID string, in devicedomain.AlertInput) (devicedomain.Alert, error) {
	severity := model.AlertSeverity(strings.TrimSpace(in.Severity))
	if !severity.Valid() {
		return devicedomain.Alert{}, &devicedomain.ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", in.Severity)}
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return devicedomain.Alert{}, &devicedomain.ValidationError{Field: "message", Reason: "is required"}
	}

	alert := model.Alert{
		ID:        s.newID(),
		DeviceID:  deviceID,
		Severity:  severity,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertAlert(ctx, alert); err != nil {
		return devicedomain.Alert{}, err
	}
	s.logger.Info("alert raised", "device_id", deviceID, "severity", severity)
	return alert, nil
}

// ResolveAlert marks an alert resolved.
func (s *Service) ResolveAlert(ctx context.Context, id string) (devicedomain.Alert, error) {
	return s.repo.ResolveAlert(ctx, id)
}

// confirm runs a synchronous refresh so callers observe their write in the
// next snapshot read.
func (s *Service) confirm(ctx context.Context, op string) error {
	if s.refresher == nil {
		return nil
	}
	if _, err := s.refresher.RefreshNow(ctx); err != nil {
		s.logger.Warn("refresh after write failed", "op", op, "err", err)
		return fmt.Errorf("%s: %w: %w", op, devicedomain.ErrRefreshUnconfirmed, err)
	}
	return nil
}

func validatePatch(patch *devicedomain.DevicePatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return &devicedomain.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		patch.Name = &name
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return &devicedomain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown device type %q", *patch.Type)}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return &devicedomain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *patch.Status)}
	}
	if patch.Location != nil {
		location := strings.TrimSpace(*patch.Location)
		patch.Location = &location
	}
	return nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
