package model

import "time"

type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusWarning DeviceStatus = "warning"
	DeviceStatusOffline DeviceStatus = "offline"
)

// Valid reports whether the status is one of the three known values.
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusWarning, DeviceStatusOffline:
		return true
	}
	return false
}

type DeviceType string

const (
	DeviceTypeTemperatureSensor DeviceType = "temperature_sensor"
	DeviceTypeHumiditySensor    DeviceType = "humidity_sensor"
	DeviceTypePressureSensor    DeviceType = "pressure_sensor"
	DeviceTypeMotionDetector    DeviceType = "motion_detector"
	DeviceTypeSmartMeter        DeviceType = "smart_meter"
	DeviceTypeGateway           DeviceType = "gateway"
	DeviceTypeActuator          DeviceType = "actuator"
	DeviceTypeCamera            DeviceType = "camera"
)

var deviceTypes = []DeviceType{
	DeviceTypeTemperatureSensor,
	DeviceTypeHumiditySensor,
	DeviceTypePressureSensor,
	DeviceTypeMotionDetector,
	DeviceTypeSmartMeter,
	DeviceTypeGateway,
	DeviceTypeActuator,
	DeviceTypeCamera,
}

// DeviceTypes returns the supported device categories in display order.
func DeviceTypes() []DeviceType {
	out := make([]DeviceType, len(deviceTypes))
	copy(out, deviceTypes)
	return out
}

func (t DeviceType) Valid() bool {
	for _, known := range deviceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Device is one managed endpoint as stored by the backend.
type Device struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      DeviceType     `json:"type"`
	Status    DeviceStatus   `json:"status"`
	Location  *string        `json:"location"`
	LastSeen  *time.Time     `json:"last_seen"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Reading is one timestamped scalar measurement.
type Reading struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
	CreatedAt  time.Time `json:"created_at"`
}

type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

func (s AlertSeverity) Valid() bool {
	switch s {
	case AlertSeverityCritical, AlertSeverityWarning, AlertSeverityInfo:
		return true
	}
	return false
}

type Alert struct {
	ID         string        `json:"id"`
	DeviceID   string        `json:"device_id"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	Resolved   bool          `json:"resolved"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

// Aggregates are status counts derived from one device list.
type Aggregates struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Warning int `json:"warning"`
	Offline int `json:"offline"`
}

// CountStatuses classifies devices in a single pass. Unknown statuses only
// contribute to Total.
func CountStatuses(devices []Device) Aggregates {
	out := Aggregates{Total: len(devices)}
	for _, device := range devices {
		switch device.Status {
		case DeviceStatusOnline:
			out.Online++
		case DeviceStatusWarning:
			out.Warning++
		case DeviceStatusOffline:
			out.Offline++
		}
	}
	return out
}
