package syncstore

import (
	"time"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

// Snapshot is an immutable view of devices joined to their latest readings.
// A new Snapshot replaces the previous one wholesale on every refresh; callers
// must not modify it.
type Snapshot struct {
	Devices            []model.Device           `json:"devices"`
	ReadingsByDeviceID map[string]model.Reading `json:"readings_by_device_id"`
	Loading            bool                     `json:"loading"`
	Version            uint64                   `json:"version"`
	RefreshedAt        time.Time                `json:"refreshed_at"`
}

func initialSnapshot() *Snapshot {
	return &Snapshot{
		Devices:            []model.Device{},
		ReadingsByDeviceID: map[string]model.Reading{},
		Loading:            true,
	}
}

// LatestReading returns the joined reading for a device, if any.
func (s *Snapshot) LatestReading(deviceID string) (model.Reading, bool) {
	reading, ok := s.ReadingsByDeviceID[deviceID]
	return reading, ok
}

// Aggregates counts devices by status.
func (s *Snapshot) Aggregates() model.Aggregates {
	return model.CountStatuses(s.Devices)
}

// NeedsAttention lists devices in warning or offline state, in snapshot order.
func (s *Snapshot) NeedsAttention() []model.Device {
	out := make([]model.Device, 0)
	for _, device := range s.Devices {
		if device.Status == model.DeviceStatusWarning || device.Status == model.DeviceStatusOffline {
			out = append(out, device)
		}
	}
	return out
}
