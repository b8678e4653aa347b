package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the WebSocket connections, pooled by room code.
// Fan-out to individual connections is buffered and droppy: a slow or dead
// connection is evicted rather than ever blocking a room's event flow.
type ConnectionManager struct {
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// onDisconnect is told when a connection that had joined a room goes
	// away, so its registry membership is released deterministically.
	onDisconnect func(conn *Connection)
}

// Connection is one WebSocket client. ID doubles as the participant's
// connection identity in the room registry.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	mu       sync.Mutex
	roomCode string // set once the client has joined a room

	ConnectedAt time.Time
}

// RoomCode returns the room this connection joined, or "".
func (c *Connection) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *Connection) setRoomCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one marshaled event destined for a room's pool.
type BroadcastMessage struct {
	RoomCode string
	Data     []byte
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// OnDisconnect registers the disconnect hook. Must be set before Upgrade.
func (cm *ConnectionManager) OnDisconnect(fn func(conn *Connection)) {
	cm.onDisconnect = fn
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Upgrade upgrades an HTTP request to a WebSocket connection and starts its
// pumps. Incoming client messages go to the handler.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request, handler ClientMessageHandler) (*Connection, error) {
	wsConn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	conn := &Connection{
		ID:          uuid.New().String(),
		Conn:        wsConn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	go conn.writePump()
	go conn.readPump(handler)

	log.Info().Str("connection_id", conn.ID).Msg("WebSocket connection established")
	return conn, nil
}

// JoinRoomPool adds a connection to a room's pool. A connection that hops
// rooms leaves its previous pool first.
func (cm *ConnectionManager) JoinRoomPool(conn *Connection, roomCode string) {
	if prev := conn.RoomCode(); prev != "" && prev != roomCode {
		cm.leaveRoomPool(conn, prev)
	}

	cm.mu.Lock()
	if cm.roomConnections[roomCode] == nil {
		cm.roomConnections[roomCode] = make(map[*Connection]bool)
	}
	cm.roomConnections[roomCode][conn] = true
	total := len(cm.roomConnections[roomCode])
	cm.mu.Unlock()

	conn.setRoomCode(roomCode)

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room", roomCode).
		Int("pool_size", total).
		Msg("connection joined room pool")
}

func (cm *ConnectionManager) leaveRoomPool(conn *Connection, roomCode string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if pool, exists := cm.roomConnections[roomCode]; exists {
		delete(pool, conn)
		if len(pool) == 0 {
			delete(cm.roomConnections, roomCode)
		}
	}
}

// dropConnection removes a connection from its pool. Send is never closed;
// the write pump exits on its own once the socket is gone. Safe to call
// twice; only the first call wins.
func (cm *ConnectionManager) dropConnection(conn *Connection) {
	roomCode := conn.RoomCode()

	cm.mu.Lock()
	dropped := false
	if roomCode != "" {
		if pool, exists := cm.roomConnections[roomCode]; exists {
			if pool[conn] {
				delete(pool, conn)
				dropped = true
				if len(pool) == 0 {
					delete(cm.roomConnections, roomCode)
				}
			}
		}
	} else {
		dropped = true
	}
	cm.mu.Unlock()

	if !dropped {
		return
	}

	if cm.onDisconnect != nil && roomCode != "" {
		cm.onDisconnect(conn)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("room", roomCode).
		Msg("connection unregistered")
}

// BroadcastToRoom queues marshaled event data for every connection of a room.
func (cm *ConnectionManager) BroadcastToRoom(roomCode string, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: roomCode, Data: data}:
	default:
		log.Warn().Str("room", roomCode).Msg("broadcast channel full, dropping message")
	}
}

// SendTo queues data for a single connection, e.g. a request-scoped error.
func (cm *ConnectionManager) SendTo(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, closing connection")
		cm.dropConnection(conn)
		conn.Conn.Close()
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	pool, exists := cm.roomConnections[message.RoomCode]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(pool))
	for conn := range pool {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.Data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("room", message.RoomCode).
				Msg("connection send buffer full, closing connection")
			cm.dropConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("room", message.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats reports active connection counts per room.
func (cm *ConnectionManager) Stats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, pool := range cm.roomConnections {
		totalConnections += len(pool)
	}
	return totalConnections, len(cm.roomConnections)
}

// writePump sends queued messages and keepalive pings to the peer.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.dropConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages and routes them through the handler.
func (c *Connection) readPump(handler ClientMessageHandler) {
	defer func() {
		c.Manager.dropConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		handler.HandleClientMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
