package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thruflo/wordcloud/internal/hub"
	"github.com/thruflo/wordcloud/internal/metrics"
	"github.com/thruflo/wordcloud/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Embeddings are a few
	// thousand floats at most.
	maxMessageSize = 512 * 1024
)

// handleWebSocket handles GET /ws. The handler goroutine becomes the
// session's read pump; a second goroutine drains its outbound queue.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := hub.NewSession(r.RemoteAddr, s.hub.QueueSize())
	ctx := r.Context()
	if err := s.hub.Register(ctx, sess); err != nil {
		s.logger.Warn("Rejecting websocket session", "remote", r.RemoteAddr, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go s.writePump(conn, sess)
	s.readPump(ctx, conn, sess)
}

// readPump pumps frames from the connection into the hub. It returns when the
// connection fails or the hub stops.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sess *hub.Session) {
	defer func() {
		s.hub.Unregister(sess)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read error", "session", sess.ID(), "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			s.logger.Debug("Ignoring binary frame", "session", sess.ID())
			continue
		}

		ev, err := protocol.UnmarshalEvent(message)
		if err != nil {
			s.logger.Warn("Dropping malformed frame", "session", sess.ID(), "error", err)
			s.metrics.Dropped(metrics.ReasonMalformed)
			continue
		}

		if err := s.hub.Dispatch(ctx, sess, ev); err != nil {
			return
		}
	}
}

// writePump pumps encoded events from the session queue to the connection.
// The hub closes the queue when the session leaves, which ends the pump with
// a close frame.
func (s *Server) writePump(conn *websocket.Conn, sess *hub.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	out := sess.Outbound()
	for {
		select {
		case message, ok := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("Failed to write message", "session", sess.ID(), "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("Failed to send ping", "session", sess.ID(), "error", err)
				return
			}
		}
	}
}
