package footfallHandler

import (
	"FootfallGolang/internal/api/footfall"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// wsSink serializes writes to the session socket. The session goroutine and
// the read loop both emit messages, so writes go through one mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *wsSink) SendUpdate(msg footfall.LiveUpdateMessage) error {
	return s.send(msg)
}

func (s *wsSink) SendCompleted(msg footfall.LiveCompletedMessage) error {
	return s.send(msg)
}

func (s *wsSink) SendError(msg footfall.LiveErrorMessage) error {
	return s.send(msg)
}

func (s *wsSink) SendStatus(msg footfall.LiveStatusMessage) error {
	return s.send(msg)
}

func (h *FootfallHandler) handleLiveWebSocket(c *websocket.Conn) {
	clientKey := c.Params("clientKey")

	h.log.Infof("Live counting client connected: %s", clientKey)
	defer h.log.Infof("Live counting client disconnected: %s", clientKey)

	// Disconnect tears down whatever session the key still owns.
	defer h.footfallService.StopLiveSession(clientKey)

	sink := &wsSink{conn: c}

	for {
		var req footfall.StartLiveSessionRequest
		if err := c.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Live websocket error for %s: %v", clientKey, err)
			}
			break
		}

		if err := h.validator.Struct(req); err != nil {
			if writeErr := sink.SendError(footfall.LiveErrorMessage{
				Type:    "error",
				Message: "Validation failed: " + err.Error(),
			}); writeErr != nil {
				break
			}
			continue
		}

		if err := h.footfallService.StartLiveSession(clientKey, req, sink); err != nil {
			if writeErr := sink.SendError(footfall.LiveErrorMessage{
				Type:    "error",
				Message: err.Error(),
			}); writeErr != nil {
				break
			}
			continue
		}

		if err := sink.SendStatus(footfall.LiveStatusMessage{
			Type:    "status",
			Status:  "started",
			Message: "Live counting session started",
		}); err != nil {
			break
		}
	}
}
