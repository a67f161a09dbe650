package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/messaging"
	"github.com/anticipaterdotcom/ga4-events/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StreamHandlers serves the live tail of the debug log.
type StreamHandlers struct {
	broadcaster *messaging.EventLogBroadcaster
	upgrader    websocket.Upgrader
	sendBuffer  int
	logger      *logging.ChanneledLogger
}

// NewStreamHandlers creates stream handlers. Upgrades are accepted from
// allowedOrigins, or from any origin when the list holds "*".
func NewStreamHandlers(broadcaster *messaging.EventLogBroadcaster, allowedOrigins []string, sendBuffer int, logger *logging.ChanneledLogger) *StreamHandlers {
	anyOrigin := slices.Contains(allowedOrigins, "*")
	return &StreamHandlers{
		broadcaster: broadcaster,
		sendBuffer:  sendBuffer,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || anyOrigin || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// StreamEventLog handles GET /api/v1/tracking/log/stream - websocket live tail
func (h *StreamHandlers) StreamEventLog(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Sink().Warn("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := messaging.NewEventLogClient(conn, c.Query("event"), h.sendBuffer)
	h.broadcaster.Register(client)

	go h.writePump(client)
	h.readPump(client)
}

// readPump drains control frames until the viewer goes away.
func (h *StreamHandlers) readPump(client *messaging.EventLogClient) {
	defer func() {
		h.broadcaster.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Sink().Debug("Log stream read error", "error", err.Error())
			}
			return
		}
	}
}

func (h *StreamHandlers) writePump(client *messaging.EventLogClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
