package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type helloMessage struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// handleEvents upgrades to a WebSocket and streams change events for one
// session. Only records newer than the connection are sent. Client frames
// other than control frames are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	connectedAt := domain.Now()
	events, err := s.subscriber.Subscribe(id, connectedAt)
	if err != nil {
		s.logger.Warn("event subscription refused", "session_id", id, "error", err)
		s.closeWith(conn, websocket.CloseTryAgainLater, "subscription refused")
		return
	}
	defer s.subscriber.Unsubscribe(id)

	s.logger.Info("event stream opened", "session_id", id, "remote", r.RemoteAddr)
	defer s.logger.Info("event stream closed", "session_id", id)

	conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // checked by the write
	if err := conn.WriteJSON(helloMessage{Type: "hello", SessionID: id, ConnectedAt: connectedAt}); err != nil {
		return
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // next read fails instead
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			s.closeWith(conn, websocket.CloseGoingAway, "server shutting down")
			return
		case ev, ok := <-events:
			if !ok {
				s.closeWith(conn, websocket.CloseTryAgainLater, "session dropped")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // checked by the write
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("event write failed", "session_id", id, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:errcheck // best effort
}
