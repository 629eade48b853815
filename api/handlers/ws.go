package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/itda-project/itda-chat-api/chat"
	"github.com/itda-project/itda-chat-api/models"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

type roomClient struct {
	userID string
	conn   *websocket.Conn
}

// RoomHub tracks live websocket connections per room so room events can
// be pushed to everyone currently watching that room.
type RoomHub struct {
	Presence *chat.Presence

	clients map[string]map[*roomClient]struct{}
	mutex   sync.Mutex
}

// NewRoomHub returns an empty hub. Presence may be nil when Redis is not
// configured; the hub then only does in-process fan-out.
func NewRoomHub(presence *chat.Presence) *RoomHub {
	return &RoomHub{
		Presence: presence,
		clients:  make(map[string]map[*roomClient]struct{}),
	}
}

// HandleRoomWebSocket upgrades the request and registers the connection
// under the room named in the roomId query param.
func (h *RoomHub) HandleRoomWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	userID := r.URL.Query().Get("userId")
	if roomID == "" || userID == "" {
		http.Error(w, "roomId and userId query parameters are required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	client := &roomClient{userID: userID, conn: conn}
	h.register(roomID, client)
	if h.Presence != nil {
		if err := h.Presence.Connect(r.Context(), roomID, userID); err != nil {
			zap.S().Warnw("failed to record presence", "roomId", roomID, "userId", userID, "error", err)
		}
	}
	zap.S().Infow("user connected to room socket", "roomId", roomID, "userId", userID)

	// Keep connection alive until the peer goes away
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	conn.Close()
	h.unregister(roomID, client)
	if h.Presence != nil {
		if err := h.Presence.Disconnect(context.Background(), roomID, userID); err != nil {
			zap.S().Warnw("failed to clear presence", "roomId", roomID, "userId", userID, "error", err)
		}
	}
	zap.S().Infow("user disconnected from room socket", "roomId", roomID, "userId", userID)
}

func (h *RoomHub) register(roomID string, c *roomClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[roomID] == nil {
		h.clients[roomID] = make(map[*roomClient]struct{})
	}
	h.clients[roomID][c] = struct{}{}
}

func (h *RoomHub) unregister(roomID string, c *roomClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.clients[roomID], c)
	if len(h.clients[roomID]) == 0 {
		delete(h.clients, roomID)
	}
}

// Publish implements chat.EventSink by pushing the event to every
// connection registered under the event's room. Dead connections are
// dropped as they fail.
func (h *RoomHub) Publish(ctx context.Context, event models.RoomEvent) error {
	h.mutex.Lock()
	conns := make([]*roomClient, 0, len(h.clients[event.RoomID]))
	for c := range h.clients[event.RoomID] {
		conns = append(conns, c)
	}
	h.mutex.Unlock()

	for _, c := range conns {
		err := c.conn.WriteJSON(map[string]interface{}{
			"event": string(event.Type),
			"data":  event,
		})
		if err != nil {
			zap.S().Warnw("failed to push room event", "roomId", event.RoomID, "userId", c.userID, "error", err)
			c.conn.Close()
			h.unregister(event.RoomID, c)
		}
	}
	return nil
}
