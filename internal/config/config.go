package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr           = ":8099"
	defaultDBPath             = "/data/iot_dashboard.db"
	defaultFrontendDist       = "/app/frontend/dist"
	defaultPollInterval       = 5 * time.Second
	defaultRefreshTimeout     = 10 * time.Second
	defaultReadingConcurrency = 8
	defaultMQTTTopic          = "iot/changes/#"
	defaultMQTTClientID       = "iot-dashboard"
)

// Backend selects where devices and readings live.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendREST   Backend = "rest"
)

// ChangeFeed selects the source of push invalidations.
type ChangeFeed string

const (
	ChangeFeedLocal     ChangeFeed = "local"
	ChangeFeedWebsocket ChangeFeed = "websocket"
	ChangeFeedMQTT      ChangeFeed = "mqtt"
)

// MQTT holds broker settings for the mqtt change feed.
type MQTT struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Config stores runtime settings loaded from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           slog.Level
	Backend            Backend
	DBPath             string
	BackendURL         string
	BackendAPIKey      string
	PollInterval       time.Duration
	PushInvalidation   bool
	ChangeFeed         ChangeFeed
	ChangeFeedURL      string
	MQTT               MQTT
	RefreshTimeout     time.Duration
	ReadingConcurrency int
	FrontendDist       string
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds Config from environment variables using stable defaults.
func Load() Config {
	return Config{
		HTTPAddr:           getenv("HTTP_ADDR", defaultHTTPAddr),
		LogLevel:           parseLogLevel(getenv("LOG_LEVEL", "info")),
		Backend:            Backend(strings.ToLower(getenv("BACKEND", string(BackendSQLite)))),
		DBPath:             getenv("DB_PATH", defaultDBPath),
		BackendURL:         getenv("BACKEND_URL", ""),
		BackendAPIKey:      getenv("BACKEND_API_KEY", ""),
		PollInterval:       parseDuration("POLL_INTERVAL", defaultPollInterval),
		PushInvalidation:   parseBool("PUSH_INVALIDATION", false),
		ChangeFeed:         ChangeFeed(strings.ToLower(getenv("CHANGEFEED", string(ChangeFeedLocal)))),
		ChangeFeedURL:      getenv("CHANGEFEED_URL", ""),
		RefreshTimeout:     parseDuration("REFRESH_TIMEOUT", defaultRefreshTimeout),
		ReadingConcurrency: parseInt("READING_CONCURRENCY", defaultReadingConcurrency),
		FrontendDist:       getenv("FRONTEND_DIST", defaultFrontendDist),
		MQTT: MQTT{
			Broker:   getenv("MQTT_BROKER", ""),
			Topic:    getenv("MQTT_TOPIC", defaultMQTTTopic),
			ClientID: getenv("MQTT_CLIENT_ID", defaultMQTTClientID),
			Username: getenv("MQTT_USERNAME", ""),
			Password: getenv("MQTT_PASSWORD", ""),
		},
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendREST:
		if c.BackendURL == "" {
			return errors.New("BACKEND_URL is required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}
	if !c.PushInvalidation {
		return nil
	}
	switch c.ChangeFeed {
	case ChangeFeedLocal:
		if c.Backend != BackendSQLite {
			return errors.New("CHANGEFEED=local only works with the sqlite backend")
		}
	case ChangeFeedWebsocket:
		if c.ChangeFeedURL == "" && c.BackendURL == "" {
			return errors.New("CHANGEFEED_URL or BACKEND_URL is required for the websocket change feed")
		}
	case ChangeFeedMQTT:
		if c.MQTT.Broker == "" {
			return errors.New("MQTT_BROKER is required for the mqtt change feed")
		}
	default:
		return fmt.Errorf("unknown CHANGEFEED %q", c.ChangeFeed)
	}
	return nil
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
