package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"modulehost/internal/events"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents streams lifecycle events over a websocket. The recent
// history is replayed first (?history=N, default 0).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	history := 0
	if v := r.URL.Query().Get("history"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid history parameter")
			return
		}
		history = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	bus := s.controller.Events()
	queue := make(chan events.Event, streamBuffer)
	sub := bus.Subscribe(func(evt events.Event) {
		select {
		case queue <- evt:
		default:
			s.logger.Warn("Event stream client too slow, dropping event",
				zap.String("kind", string(evt.Kind)),
				zap.String("remote_addr", r.RemoteAddr))
		}
	})
	defer sub.Unsubscribe()

	s.logger.Debug("Event stream client connected", zap.String("remote_addr", r.RemoteAddr))

	// The read loop only handles control frames and notices disconnects.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Events published between Subscribe and Recent show up in both.
	replayed := make(map[uuid.UUID]bool)
	if history > 0 {
		for _, evt := range bus.Recent(history) {
			replayed[evt.ID] = true
			if err := s.writeEvent(conn, evt); err != nil {
				return
			}
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-queue:
			if replayed[evt.ID] {
				continue
			}
			if err := s.writeEvent(conn, evt); err != nil {
				s.logger.Debug("Event stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			s.logger.Debug("Event stream client disconnected", zap.String("remote_addr", r.RemoteAddr))
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, evt events.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(evt)
}
