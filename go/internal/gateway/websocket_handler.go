package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spinroom/spinroom/go/internal/rooms"
)

// RoomService defines what the gateway needs from the room registry.
type RoomService interface {
	Join(ctx context.Context, code, connID, displayName string) (int, []string, error)
	Leave(ctx context.Context, code, connID string)
	StartLottery(ctx context.Context, code, connID string) error
}

// ClientMessageHandler consumes messages read off a WebSocket connection.
type ClientMessageHandler interface {
	HandleClientMessage(conn *Connection, message []byte)
}

// ClientMessage is the client-to-server event shape.
type ClientMessage struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username,omitempty"`
}

const (
	clientMessageJoinRoom     = "joinRoom"
	clientMessageStartLottery = "startLottery"
)

// clientError is surfaced to the requesting connection only, never broadcast.
type clientError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WebSocketHandler upgrades connections and routes client messages into the
// room registry.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	roomService       RoomService
}

// NewWebSocketHandler creates a WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, roomService RoomService) *WebSocketHandler {
	h := &WebSocketHandler{
		connectionManager: cm,
		roomService:       roomService,
	}
	cm.OnDisconnect(h.handleDisconnect)
	return h
}

// HandleConnection handles a WebSocket upgrade request.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if _, err := h.connectionManager.Upgrade(w, r, h); err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleClientMessage routes one client event.
func (h *WebSocketHandler) HandleClientMessage(conn *Connection, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("discarding malformed client message")
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case clientMessageJoinRoom:
		h.handleJoinRoom(ctx, conn, msg)
	case clientMessageStartLottery:
		if err := h.roomService.StartLottery(ctx, msg.Room, conn.ID); err != nil {
			h.sendError(conn, err)
		}
	default:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("type", msg.Type).
			Msg("unknown client message type ignored")
	}
}

func (h *WebSocketHandler) handleJoinRoom(ctx context.Context, conn *Connection, msg ClientMessage) {
	code, err := rooms.NormalizeCode(msg.Room)
	if err != nil {
		h.sendError(conn, err)
		return
	}

	// A room hop gives up the old slot first, so the old room compacts
	// (or is discarded) instead of keeping a ghost participant.
	if prev := conn.RoomCode(); prev != "" && prev != code {
		h.roomService.Leave(ctx, prev, conn.ID)
	}

	// Subscribe before joining, so the membership broadcast for this very
	// join reaches the joiner as well.
	h.connectionManager.JoinRoomPool(conn, code)

	if _, _, err := h.roomService.Join(ctx, code, conn.ID, msg.Username); err != nil {
		h.sendError(conn, err)
	}
}

// handleDisconnect releases registry membership when a connection goes away,
// so no subscription is ever left dangling.
func (h *WebSocketHandler) handleDisconnect(conn *Connection) {
	if code := conn.RoomCode(); code != "" {
		h.roomService.Leave(context.Background(), code, conn.ID)
	}
}

func (h *WebSocketHandler) sendError(conn *Connection, err error) {
	msg := "internal error"
	switch {
	case errors.Is(err, rooms.ErrInvalidRoomCode):
		msg = "room code must be 6 alphanumeric characters"
	case errors.Is(err, rooms.ErrRoomNotFound):
		msg = "room not found"
	}

	data, marshalErr := json.Marshal(clientError{Type: "error", Message: msg})
	if marshalErr != nil {
		return
	}
	h.connectionManager.SendTo(conn, data)
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
}
