package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/micro-ha/iot-dashboard/internal/backend/rest"
	"github.com/micro-ha/iot-dashboard/internal/changefeed"
	"github.com/micro-ha/iot-dashboard/internal/config"
	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	httpapi "github.com/micro-ha/iot-dashboard/internal/http"
	"github.com/micro-ha/iot-dashboard/internal/http/handlers"
	"github.com/micro-ha/iot-dashboard/internal/logging"
	"github.com/micro-ha/iot-dashboard/internal/repository/sqlite"
	devicesvc "github.com/micro-ha/iot-dashboard/internal/services/device"
	"github.com/micro-ha/iot-dashboard/internal/services/readings"
	"github.com/micro-ha/iot-dashboard/internal/syncstore"
)

const realtimePath = "/realtime/v1/websocket"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Default().Warn("dotenv load failed", "err", err)
	}
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, hub, closeRepo, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	var subscriber devicedomain.Subscriber
	if cfg.PushInvalidation {
		subscriber, err = openChangeFeed(cfg, hub, logger)
		if err != nil {
			return err
		}
	}

	fetcher := readings.New(repo, cfg.ReadingConcurrency, logger)
	store := syncstore.NewWithTimeout(repo, fetcher, subscriber, logger, cfg.RefreshTimeout)
	if err := store.Start(ctx, syncstore.Options{
		PollInterval:        cfg.PollInterval,
		UsePushInvalidation: cfg.PushInvalidation,
	}); err != nil {
		return fmt.Errorf("start sync store: %w", err)
	}
	defer store.Stop()

	svc := devicesvc.New(repo, store, logger)
	api := handlers.New(svc, store, logger, cfg.FrontendDist)
	server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(api))

	logger.Info(
		"server starting",
		"addr", cfg.HTTPAddr,
		"backend", cfg.Backend,
		"push_invalidation", cfg.PushInvalidation,
		"poll_interval", cfg.PollInterval.String(),
	)
	if err := httpapi.RunServer(ctx, server, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openBackend returns the repository plus the in-process hub that observes its
// writes. hub is nil for backends that publish their own change feed.
func openBackend(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
) (devicedomain.Repository, *changefeed.Hub, func(), error) {
	switch cfg.Backend {
	case config.BackendREST:
		client, err := rest.NewClient(cfg.BackendURL, cfg.BackendAPIKey, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return client, nil, func() {}, nil
	default:
		if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create db directory: %w", err)
		}
		db, err := sqlite.Open(ctx, cfg.DBPath, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialize storage: %w", err)
		}
		hub := changefeed.NewHub()
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn("close database failed", "err", err)
			}
		}
		return sqlite.NewDeviceRepository(db, hub), hub, closeDB, nil
	}
}

func openChangeFeed(cfg config.Config, hub *changefeed.Hub, logger *slog.Logger) (devicedomain.Subscriber, error) {
	switch cfg.ChangeFeed {
	case config.ChangeFeedWebsocket:
		feedURL := cfg.ChangeFeedURL
		if feedURL == "" {
			feedURL = strings.TrimSuffix(cfg.BackendURL, "/") + realtimePath
		}
		return changefeed.NewWebsocketSource(feedURL, cfg.BackendAPIKey, logger), nil
	case config.ChangeFeedMQTT:
		return changefeed.NewMQTTSource(changefeed.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger), nil
	default:
		if hub == nil {
			return nil, errors.New("local change feed requires the sqlite backend")
		}
		return hub, nil
	}
}
