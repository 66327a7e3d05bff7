package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/model"
)

func TestListDevicesSendsOrderAndAuth(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/devices" {
			t.Errorf("path = %q, want /rest/v1/devices", r.URL.Path)
		}
		if got := r.URL.Query().Get("order"); got != "name.asc" {
			t.Errorf("order = %q, want name.asc", got)
		}
		if got := r.Header.Get("apikey"); got != "secret" {
			t.Errorf("apikey = %q, want secret", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", got)
		}
		_, _ = io.WriteString(w, `[
			{"id":"1","name":"Attic","type":"humidity_sensor","status":"online","location":null,"last_seen":null,"metadata":{}},
			{"id":"2","name":"Basement","type":"temperature_sensor","status":"offline","location":"B1","last_seen":"2024-05-01T12:00:00Z","metadata":{"fw":"2"}}
		]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	items, err := client.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Name != "Attic" || items[1].Name != "Basement" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if items[1].Location == nil || *items[1].Location != "B1" {
		t.Fatalf("Location = %v, want B1", items[1].Location)
	}
	if items[1].LastSeen == nil {
		t.Fatalf("LastSeen = nil, want timestamp")
	}
}

func TestLatestReadingEmptyIsAbsent(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("device_id") != "eq.dev-1" || query.Get("order") != "timestamp.desc" || query.Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, ok, err := client.LatestReading(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("LatestReading() error: %v", err)
	}
	if ok {
		t.Fatalf("LatestReading() ok = true, want false")
	}
}

func TestLatestReadingDecodesRow(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"r","device_id":"dev-1","metric_name":"temperature","value":21.5,"unit":"C","timestamp":"2024-05-01T12:00:20Z"}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	reading, ok, err := client.LatestReading(context.Background(), "dev-1")
	if err != nil || !ok {
		t.Fatalf("LatestReading() = ok %v err %v", ok, err)
	}
	if reading.Value != 21.5 || reading.Unit != "C" {
		t.Fatalf("unexpected reading: %+v", reading)
	}
}

func TestErrorClassification(t *testing.T) {
	t.Helper()

	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"code":"42703","message":"column does not exist"}`)
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	if _, err := client.ListDevices(context.Background()); !errors.Is(err, devicedomain.ErrBackendUnavailable) {
		t.Fatalf("5xx err = %v, want ErrBackendUnavailable", err)
	}

	status.Store(http.StatusBadRequest)
	_, err := client.ListDevices(context.Background())
	if !errors.Is(err, devicedomain.ErrQuery) {
		t.Fatalf("4xx err = %v, want ErrQuery", err)
	}
	if errors.Is(err, devicedomain.ErrBackendUnavailable) {
		t.Fatalf("4xx err should not be ErrBackendUnavailable")
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	if _, err := client.ListDevices(context.Background()); !errors.Is(err, devicedomain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestMalformedBodyIsQueryError(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"not":"an array"`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.ListDevices(context.Background()); !errors.Is(err, devicedomain.ErrQuery) {
		t.Fatalf("err = %v, want ErrQuery", err)
	}
}

func TestUpdateDeviceSendsPatchFields(t *testing.T) {
	t.Helper()

	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "eq.dev-1" {
			t.Errorf("id filter = %q, want eq.dev-1", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `[{"id":"dev-1","name":"Attic","type":"gateway","status":"warning"}]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	status := model.DeviceStatusWarning
	empty := ""
	device, err := client.UpdateDevice(context.Background(), "dev-1", devicedomain.DevicePatch{Status: &status, Location: &empty})
	if err != nil {
		t.Fatalf("UpdateDevice() error: %v", err)
	}
	if device.Status != model.DeviceStatusWarning {
		t.Fatalf("Status = %q, want warning", device.Status)
	}
	if body["status"] != "warning" {
		t.Fatalf("body status = %v, want warning", body["status"])
	}
	if value, ok := body["location"]; !ok || value != nil {
		t.Fatalf("body location = %v (present %v), want explicit null", value, ok)
	}
	if _, ok := body["name"]; ok {
		t.Fatalf("name should not be sent when unset")
	}
}

func TestUpdateDeviceEmptyResultIsNotFound(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	name := "x"
	if _, err := client.UpdateDevice(context.Background(), "missing", devicedomain.DevicePatch{Name: &name}); !errors.Is(err, devicedomain.ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", err)
	}
	if err := client.DeleteDevice(context.Background(), "missing"); !errors.Is(err, devicedomain.ErrDeviceNotFound) {
		t.Fatalf("delete err = %v, want ErrDeviceNotFound", err)
	}
}

func TestInsertReadingForeignKeyIsDeviceNotFound(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"23503","message":"insert or update violates foreign key constraint"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.InsertReading(context.Background(), model.Reading{ID: "r", DeviceID: "missing"})
	if !errors.Is(err, devicedomain.ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	t.Helper()

	if _, err := NewClient("  ", "", nil); err == nil {
		t.Fatalf("NewClient() error = nil, want error")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(baseURL, "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}
