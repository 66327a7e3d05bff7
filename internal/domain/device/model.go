package device

import (
	"time"

	"github.com/micro-ha/iot-dashboard/internal/model"
)

// Device is the backend row for one managed endpoint.
type Device = model.Device

// Reading is one stored sensor measurement.
type Reading = model.Reading

// Alert is one stored device alert.
type Alert = model.Alert

// CreateInput is API payload for creating a device.
type CreateInput struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Location *string        `json:"location"`
	Metadata map[string]any `json:"metadata"`
}

// DevicePatch carries optional field updates. Nil fields are left untouched.
type DevicePatch struct {
	Name     *string             `json:"name"`
	Type     *model.DeviceType   `json:"type"`
	Status   *model.DeviceStatus `json:"status"`
	Location *string             `json:"location"`
	LastSeen *time.Time          `json:"last_seen"`
	Metadata map[string]any      `json:"metadata"`
}

// ReadingInput is API payload for recording a measurement.
type ReadingInput struct {
	MetricName string     `json:"metric_name"`
	Value      *float64   `json:"value"`
	Unit       string     `json:"unit"`
	Timestamp  *time.Time `json:"timestamp"`
}

// AlertInput is API payload for raising an alert.
type AlertInput struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Detail is the device detail read model.
type Detail struct {
	Device   Device    `json:"device"`
	Readings []Reading `json:"readings"`
	Alerts   []Alert   `json:"alerts"`
}

// MutationResult reports a write plus whether the follow-up refresh confirmed it.
type MutationResult struct {
	Device    *Device `json:"device,omitempty"`
	Confirmed bool    `json:"confirmed"`
	Warning   string  `json:"warning,omitempty"`
}
