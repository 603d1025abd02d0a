package system

import (
	"go-approvals/internal/features/notify"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WebSocketController struct {
	Hub    *notify.Hub
	Logger *zap.Logger
}

func NewWebSocketController(hub *notify.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{Hub: hub, Logger: logger}
}

// HandleFlowEvents streams completion events to the client until it
// disconnects. The feed is one-way; inbound messages are drained only to
// detect the close.
func (h *WebSocketController) HandleFlowEvents(c *websocket.Conn) {
	events := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
