package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
)

const (
	tableDevices  = "devices"
	tableReadings = "sensor_readings"
	tableAlerts   = "device_alerts"

	returnMinimal        = "return=minimal"
	returnRepresentation = "return=representation"
)

// ListDevices returns all devices ordered by name ascending.
func (c *Client) ListDevices(ctx context.Context) ([]model.Device, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "name.asc")

	var items []model.Device
	if err := c.do(ctx, "list devices", http.MethodGet, tableDevices, query, nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetDevice returns one device by id.
func (c *Client) GetDevice(ctx context.Context, id string) (model.Device, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", eq(id))

	var items []model.Device
	if err := c.do(ctx, "get device", http.MethodGet, tableDevices, query, nil, "", &items); err != nil {
		return model.Device{}, err
	}
	if len(items) == 0 {
		return model.Device{}, devicedomain.ErrDeviceNotFound
	}
	return items[0], nil
}

// CreateDevice inserts a device row.
func (c *Client) CreateDevice(ctx context.Context, device model.Device) error {
	return c.do(ctx, "create device", http.MethodPost, tableDevices, nil, device, returnMinimal, nil)
}

// UpdateDevice sends only the fields set in patch.
func (c *Client) UpdateDevice(ctx context.Context, id string, patch devicedomain.DevicePatch) (model.Device, error) {
	query := url.Values{}
	query.Set("id", eq(id))

	var items []model.Device
	body := patchBody(patch, time.Now().UTC())
	if err := c.do(ctx, "update device", http.MethodPatch, tableDevices, query, body, returnRepresentation, &items); err != nil {
		return model.Device{}, err
	}
	if len(items) == 0 {
		return model.Device{}, devicedomain.ErrDeviceNotFound
	}
	return items[0], nil
}

// DeleteDevice removes a device. The backend cascades readings and alerts.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", eq(id))
	query.Set("select", "id")

	var items []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "delete device", http.MethodDelete, tableDevices, query, nil, returnRepresentation, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		return devicedomain.ErrDeviceNotFound
	}
	return nil
}

// LatestReading returns the newest reading for deviceID. An empty result is not an error.
func (c *Client) LatestReading(ctx context.Context, deviceID string) (model.Reading, bool, error) {
	items, err := c.ListReadings(ctx, deviceID, 1)
	if err != nil {
		return model.Reading{}, false, fmt.Errorf("latest reading: %w", err)
	}
	if len(items) == 0 {
		return model.Reading{}, false, nil
	}
	return items[0], true, nil
}

// ListReadings returns up to limit readings for deviceID, newest first.
func (c *Client) ListReadings(ctx context.Context, deviceID string, limit int) ([]model.Reading, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("device_id", eq(deviceID))
	query.Set("order", "timestamp.desc")
	query.Set("limit", limitParam(limit))

	var items []model.Reading
	if err := c.do(ctx, "list readings", http.MethodGet, tableReadings, query, nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertReading stores a reading.
func (c *Client) InsertReading(ctx context.Context, reading model.Reading) error {
	err := c.do(ctx, "insert reading", http.MethodPost, tableReadings, nil, reading, returnMinimal, nil)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("insert reading: %w", devicedomain.ErrDeviceNotFound)
	}
	return err
}

// ListAlerts returns up to limit alerts for deviceID, newest first.
func (c *Client) ListAlerts(ctx context.Context, deviceID string, limit int) ([]model.Alert, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("device_id", eq(deviceID))
	query.Set("order", "created_at.desc")
	query.Set("limit", limitParam(limit))

	var items []model.Alert
	if err := c.do(ctx, "list alerts", http.MethodGet, tableAlerts, query, nil, "", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertAlert stores an alert.
func (c *Client) InsertAlert(ctx context.Context, alert model.Alert) error {
	err := c.do(ctx, "insert alert", http.MethodPost, tableAlerts, nil, alert, returnMinimal, nil)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("insert alert: %w", devicedomain.ErrDeviceNotFound)
	}
	return err
}

// ResolveAlert marks an unresolved alert resolved. Resolving twice keeps the
// first resolved_at.
func (c *Client) ResolveAlert(ctx context.Context, id string) (model.Alert, error) {
	query := url.Values{}
	query.Set("id", eq(id))
	query.Set("resolved", "eq.false")

	body := map[string]any{
		"resolved":    true,
		"resolved_at": time.Now().UTC(),
	}
	var items []model.Alert
	if err := c.do(ctx, "resolve alert", http.MethodPatch, tableAlerts, query, body, returnRepresentation, &items); err != nil {
		return model.Alert{}, err
	}
	if len(items) > 0 {
		return items[0], nil
	}

	lookup := url.Values{}
	lookup.Set("select", "*")
	lookup.Set("id", eq(id))
	if err := c.do(ctx, "get alert", http.MethodGet, tableAlerts, lookup, nil, "", &items); err != nil {
		return model.Alert{}, err
	}
	if len(items) == 0 {
		return model.Alert{}, devicedomain.ErrAlertNotFound
	}
	return items[0], nil
}

func patchBody(patch devicedomain.DevicePatch, now time.Time) map[string]any {
	body := map[string]any{"updated_at": now}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Type != nil {
		body["type"] = *patch.Type
	}
	if patch.Status != nil {
		body["status"] = *patch.Status
	}
	if patch.Location != nil {
		if *patch.Location == "" {
			body["location"] = nil
		} else {
			body["location"] = *patch.Location
		}
	}
	if patch.LastSeen != nil {
		body["last_seen"] = patch.LastSeen.UTC()
	}
	if patch.Metadata != nil {
		body["metadata"] = patch.Metadata
	}
	return body
}
