package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/foodboard/api/internal/enum"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is irrelevant: the route requires a token
	},
}

// wsSession binds a hub Client to a websocket connection.
type wsSession struct {
	hub    *Hub
	client *Client
	conn   *websocket.Conn
	logger *slog.Logger
}

// readPump only detects disconnects; dashboards never send data.
func (s *wsSession) readPump() {
	defer func() {
		s.hub.Unsubscribe(s.client)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket read error", "session", s.client.id, "error", err)
			}
			return
		}
	}
}

// writePump writes one event per text frame, in publish order. Every
// pingPeriod it sends a control ping and a ping event, so both protocol
// level and application level liveness checks see traffic.
func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case f, ok := <-s.client.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
				s.logger.Debug("websocket write failed", "session", s.client.id, "error", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			ping, err := encodeEvent(enum.EventPing, nil)
			if err != nil {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, ping.data); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades an authenticated dashboard request to a websocket session.
// Endpoint: WS /ws/orders?token=JWT
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client, err := hub.Subscribe("websocket")
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	s := &wsSession{hub: hub, client: client, conn: conn, logger: hub.logger}
	go s.writePump()
	go s.readPump()
}
