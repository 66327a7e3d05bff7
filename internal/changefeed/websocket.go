package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

const (
	websocketReadTimeout = 120 * time.Second
	maxReconnectBackoff  = 20 * time.Second
)

// WatchedTables are the backend tables whose changes invalidate the device snapshot.
var WatchedTables = []string{"devices", "sensor_readings"}

// WebsocketSource listens to a hosted backend realtime endpoint.
type WebsocketSource struct {
	url     string
	token   string
	tables  []string
	logger  *slog.Logger
	dialer  *websocket.Dialer
	backoff time.Duration
}

func NewWebsocketSource(rawURL, token string, logger *slog.Logger) *WebsocketSource {
	return &WebsocketSource{
		url:     strings.TrimSpace(rawURL),
		token:   strings.TrimSpace(token),
		tables:  WatchedTables,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		backoff: time.Second,
	}
}

// Subscribe starts a reconnecting watcher that calls onChange for every change event.
func (w *WebsocketSource) Subscribe(onChange func()) (devicedomain.Subscription, error) {
	wsURL, err := toWebsocketURL(w.url)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run(ctx, wsURL, onChange)
	}()
	return newSubscription(func() {
		cancel()
		<-done
	}), nil
}

func (w *WebsocketSource) run(ctx context.Context, wsURL string, onChange func()) {
	backoff := w.backoff
	for {
		if ctx.Err() != nil {
			return
		}
		subscribed, err := w.runSession(ctx, wsURL, onChange)
		if err != nil && ctx.Err() == nil {
			w.logger.Warn("change feed watcher disconnected", "err", err)
		}
		if subscribed {
			backoff = w.backoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxReconnectBackoff {
			backoff *= 2
		}
	}
}

func (w *WebsocketSource) runSession(ctx context.Context, wsURL string, onChange func()) (bool, error) {
	header := http.Header{}
	if w.token != "" {
		header.Set("Authorization", "Bearer "+w.token)
	}
	conn, _, err := w.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if w.token != "" {
		if err := conn.WriteJSON(map[string]any{"type": "auth", "access_token": w.token}); err != nil {
			return false, err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		if messageType(msg) != "auth_ok" {
			return false, errors.New("change feed authentication rejected")
		}
	}

	subscribe := map[string]any{"id": 1, "type": "subscribe", "tables": w.tables}
	if err := conn.WriteJSON(subscribe); err != nil {
		return false, err
	}
	w.logger.Info("change feed subscribed", "url", wsURL, "tables", w.tables)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(websocketReadTimeout)); err != nil {
			return true, err
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if w.isChangeEvent(msg) {
			onChange()
		}
	}
}

func (w *WebsocketSource) isChangeEvent(body []byte) bool {
	var envelope struct {
		Type  string `json:"type"`
		Table string `json:"table"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Type == "change" && slices.Contains(w.tables, envelope.Table)
}

func messageType(body []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Type
}

func toWebsocketURL(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("change feed url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}
