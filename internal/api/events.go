package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/terra-clan/quiz-console/internal/console"
	"github.com/terra-clan/quiz-console/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const eventsWriteWait = 10 * time.Second

// StreamMessage is one frame of the events stream
type StreamMessage struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	Data  string        `json:"data,omitempty"`
}

// handleEventsWS streams every operation state change to the client. The
// client only reads; anything it sends is ignored.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	stream, unsubscribe := s.hub.Subscribe(64)
	defer unsubscribe()

	slog.Info("events websocket connected", "subscribers", s.hub.Subscribers())

	if err := s.sendStreamMessage(conn, StreamMessage{
		Type: "connected",
		Data: "subscribed to " + joinEntities(console.Entities),
	}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Hub -> WebSocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-stream:
				if !ok {
					return
				}
				if err := s.sendStreamMessage(conn, StreamMessage{Type: "event", Event: &e}); err != nil {
					return
				}
			}
		}
	}()

	// WebSocket reads only detect the close
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	<-ctx.Done()
	// Unblock the reader if the writer ended first
	conn.Close()
	wg.Wait()
	slog.Info("events websocket disconnected")
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}

func joinEntities(entities []console.Entity) string {
	return strings.Join(lo.Map(entities, func(e console.Entity, _ int) string { return string(e) }), ",")
}
