package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// MessageType identifies a websocket message.
type MessageType string

// Inbound message types.
const (
	MsgJoin         MessageType = "join"
	MsgLeave        MessageType = "leave"
	MsgToggleReady  MessageType = "toggle_ready"
	MsgStartGame    MessageType = "start_game"
	MsgSubmitNumber MessageType = "submit_number"
	MsgSendMessage  MessageType = "send_message"
)

// Outbound message types sent by the transport itself. Game and presence
// events are produced by the service layer.
const (
	MsgRoomState       MessageType = "room_state"
	MsgError           MessageType = "error"
	MsgSubmissionError MessageType = "submission_error"
)

// Message is the wire envelope for websocket traffic.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection represents a single websocket client in a room.
type Connection struct {
	RoomCode string
	UserID   string
	Host     bool
	Send     chan []byte

	mu     sync.RWMutex
	closed bool
}

// enqueue queues data for the write pump without blocking, reporting
// false when the buffer is full or the connection is closed. The hub
// closes connections from its own goroutine while a read pump may still
// be replying on one; the closed flag turns those late sends into drops.
func (c *Connection) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once; later enqueues are
// no-ops.
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// BroadcastMessage is a message queued for delivery to a room, or to a
// single user when ToUser is set.
type BroadcastMessage struct {
	RoomCode string
	ToUser   string
	Message  *Message
}

// Hub routes messages between the service layer and websocket connections.
// Each user holds at most one live connection per room; registering a new
// connection for the same user supersedes the old one.
type Hub struct {
	conns map[string]map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	onDisconnect func(roomCode, userID string)
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// SetDisconnectHandler sets the callback invoked when a user's current
// connection goes away. Must be called before Run.
func (h *Hub) SetDisconnectHandler(fn func(roomCode, userID string)) {
	h.onDisconnect = fn
}

// Run processes register/unregister/broadcast events. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.addConnection(conn)
		case conn := <-h.unregister:
			h.removeConnection(conn)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) addConnection(conn *Connection) {
	users, ok := h.conns[conn.RoomCode]
	if !ok {
		users = make(map[string]*Connection)
		h.conns[conn.RoomCode] = users
	}
	if prev, ok := users[conn.UserID]; ok && prev != conn {
		// Reconnect: the new connection supersedes the old one. Closing
		// Send makes the old write pump exit; the old read pump then
		// unregisters, which the stale guard below ignores.
		prev.closeSend()
	}
	users[conn.UserID] = conn
	log.Debug().Str("room", conn.RoomCode).Str("user", conn.UserID).Msg("websocket registered")
}

func (h *Hub) removeConnection(conn *Connection) {
	users, ok := h.conns[conn.RoomCode]
	if !ok {
		return
	}
	// Stale guard: only the current connection may unregister. A superseded
	// connection finds its replacement here and must not tear it down.
	existing, ok := users[conn.UserID]
	if !ok || existing != conn {
		return
	}
	delete(users, conn.UserID)
	if len(users) == 0 {
		delete(h.conns, conn.RoomCode)
	}
	conn.closeSend()
	log.Debug().Str("room", conn.RoomCode).Str("user", conn.UserID).Msg("websocket unregistered")
	if h.onDisconnect != nil {
		h.onDisconnect(conn.RoomCode, conn.UserID)
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	data, err := json.Marshal(msg.Message)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Message.Type)).Msg("failed to marshal message")
		return
	}
	users := h.conns[msg.RoomCode]
	if msg.ToUser != "" {
		if conn, ok := users[msg.ToUser]; ok {
			h.send(conn, data, msg.Message.Type)
		}
		return
	}
	for _, conn := range users {
		h.send(conn, data, msg.Message.Type)
	}
}

// send queues data on the connection without blocking the hub loop. Slow
// consumers drop messages rather than stall the room.
func (h *Hub) send(conn *Connection, data []byte, t MessageType) {
	if !conn.enqueue(data) {
		log.Warn().Str("room", conn.RoomCode).Str("user", conn.UserID).Str("type", string(t)).Msg("send buffer full or closed, dropping message")
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Broadcast sends an event to every connection in a room. Implements
// service.Broadcaster.
func (h *Hub) Broadcast(roomCode string, event string, payload interface{}) {
	h.queue(roomCode, "", event, payload)
}

// SendToUser sends an event to a single user in a room. Implements
// service.Broadcaster.
func (h *Hub) SendToUser(roomCode, userID string, event string, payload interface{}) {
	h.queue(roomCode, userID, event, payload)
}

func (h *Hub) queue(roomCode, toUser, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal payload")
		return
	}
	msg := &BroadcastMessage{
		RoomCode: roomCode,
		ToUser:   toUser,
		Message:  &Message{Type: MessageType(event), Payload: data},
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("room", roomCode).Str("event", event).Msg("broadcast queue full, dropping message")
	}
}
