package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "BACKEND", "POLL_INTERVAL", "PUSH_INVALIDATION", "READING_CONCURRENCY", "MQTT_TOPIC"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8099" {
		t.Fatalf("HTTPAddr = %q, want :8099", cfg.HTTPAddr)
	}
	if cfg.Backend != BackendSQLite {
		t.Fatalf("Backend = %q, want sqlite", cfg.Backend)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.PushInvalidation {
		t.Fatalf("PushInvalidation = true, want false")
	}
	if cfg.ReadingConcurrency != 8 {
		t.Fatalf("ReadingConcurrency = %d, want 8", cfg.ReadingConcurrency)
	}
	if cfg.MQTT.Topic != "iot/changes/#" {
		t.Fatalf("MQTT.Topic = %q, want iot/changes/#", cfg.MQTT.Topic)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "750ms")
	t.Setenv("PUSH_INVALIDATION", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("READING_CONCURRENCY", "-3")
	t.Setenv("BACKEND", "REST")

	cfg := Load()
	if cfg.PollInterval != 750*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 750ms", cfg.PollInterval)
	}
	if !cfg.PushInvalidation {
		t.Fatalf("PushInvalidation = false, want true")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.ReadingConcurrency != 8 {
		t.Fatalf("ReadingConcurrency = %d, want fallback 8", cfg.ReadingConcurrency)
	}
	if cfg.Backend != BackendREST {
		t.Fatalf("Backend = %q, want rest", cfg.Backend)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"sqlite polling", Config{Backend: BackendSQLite}, true},
		{"rest without url", Config{Backend: BackendREST}, false},
		{"unknown backend", Config{Backend: "mongo"}, false},
		{"local feed with rest", Config{Backend: BackendREST, BackendURL: "http://x", PushInvalidation: true, ChangeFeed: ChangeFeedLocal}, false},
		{"websocket from backend url", Config{Backend: BackendREST, BackendURL: "http://x", PushInvalidation: true, ChangeFeed: ChangeFeedWebsocket}, true},
		{"mqtt without broker", Config{Backend: BackendSQLite, PushInvalidation: true, ChangeFeed: ChangeFeedMQTT}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MQTT_CLIENT_ID=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MQTT_CLIENT_ID", "")
	os.Unsetenv("MQTT_CLIENT_ID")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := Load().MQTT.ClientID; got != "from-dotenv" {
		t.Fatalf("MQTT.ClientID = %q, want from-dotenv", got)
	}
}
