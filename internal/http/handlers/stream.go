package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/micro-ha/iot-dashboard/internal/syncstore"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamReadTimeout  = 2 * streamPingInterval
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// Stream pushes the current snapshot on connect and each committed snapshot afterwards.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates := make(chan *syncstore.Snapshot, 1)
	cancel := a.store.Listen(func(snapshot *syncstore.Snapshot) {
		offerLatest(updates, snapshot)
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, a.store.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snapshot := <-updates:
			if err := writeSnapshot(conn, snapshot); err != nil {
				a.logger.Debug("stream write failed", "err", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// offerLatest keeps only the newest pending snapshot without blocking the committer.
func offerLatest(ch chan *syncstore.Snapshot, snapshot *syncstore.Snapshot) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot *syncstore.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(map[string]any{"type": "snapshot", "snapshot": snapshot})
}
