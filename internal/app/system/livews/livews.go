// internal/app/system/livews/livews.go
//
// Package livews serves a streams.Subscription over a websocket. Plain
// HTTP requests to the same endpoint get the first snapshot as JSON.
package livews

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	firstSnapshot  = 15 * time.Second
)

// Frame is the envelope written for every snapshot.
type Frame[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// upgrader accepts same-origin connections only (gorilla's default check).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Serve pumps sub to the client until either side goes away. sub is always
// closed when Serve returns.
func Serve[T any](w http.ResponseWriter, r *http.Request, sub *streams.Subscription[T], kind string, logger *zap.Logger) {
	defer sub.Close()

	if !websocket.IsWebSocketUpgrade(r) {
		serveSnapshot(w, r, sub, kind, logger)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Warn("websocket upgrade failed", zap.String("stream", kind), zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Debug("stream opened", zap.String("stream", kind), zap.String("remote", r.RemoteAddr))

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(Frame[T]{Type: kind, Data: v}); err != nil {
				logger.Debug("stream write failed", zap.String("stream", kind), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Debug("stream closed by client", zap.String("stream", kind))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump discards client frames and keeps the read deadline fresh on
// pong. It closes done when the connection fails or the client leaves.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveSnapshot[T any](w http.ResponseWriter, r *http.Request, sub *streams.Subscription[T], kind string, logger *zap.Logger) {
	select {
	case v, ok := <-sub.C():
		if !ok {
			http.Error(w, "stream closed", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(Frame[T]{Type: kind, Data: v}); err != nil {
			logger.Debug("snapshot write failed", zap.String("stream", kind), zap.Error(err))
		}
	case <-time.After(firstSnapshot):
		http.Error(w, "stream timed out", http.StatusGatewayTimeout)
	case <-r.Context().Done():
	}
}
