package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades websocket requests and dispatches inbound messages to
// the presence and game services.
type Handler struct {
	hub      *Hub
	tokens   *service.TokenService
	presence *service.PresenceService
	games    *service.GameService
}

// NewHandler creates a websocket handler.
func NewHandler(hub *Hub, tokens *service.TokenService, presence *service.PresenceService, games *service.GameService) *Handler {
	return &Handler{hub: hub, tokens: tokens, presence: presence, games: games}
}

// ServeWS handles GET /v1/ws/rooms/{code}. The session token must match the
// room in the path.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.RoomCode != code {
		http.Error(w, "token not valid for this room", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		RoomCode: code,
		UserID:   claims.UserID,
		Host:     claims.Host,
		Send:     make(chan []byte, 256),
	}
	h.hub.Register(conn)

	log.Debug().Str("room", code).Str("user", claims.UserID).Msg("websocket connected")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

type joinPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type readyPayload struct {
	Ready bool `json:"ready"`
}

type submitPayload struct {
	Number int `json:"number"`
}

type chatPayload struct {
	Text string `json:"text"`
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("room", conn.RoomCode).Str("user", conn.UserID).Msg("websocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.replyError(conn, MsgError, "malformed message")
			continue
		}
		h.dispatch(conn, &msg)
	}
}

func (h *Handler) dispatch(conn *Connection, msg *Message) {
	switch msg.Type {
	case MsgJoin:
		var p joinPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				h.replyError(conn, MsgError, "malformed join payload")
				return
			}
		}
		snapshot, err := h.presence.Join(conn.RoomCode, conn.UserID, p.Name, p.Avatar)
		if err != nil {
			h.replyError(conn, MsgError, err.Error())
			return
		}
		h.reply(conn, MsgRoomState, snapshot)

	case MsgLeave:
		if err := h.presence.Leave(conn.RoomCode, conn.UserID); err != nil {
			h.replyError(conn, MsgError, err.Error())
		}

	case MsgToggleReady:
		var p readyPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.replyError(conn, MsgError, "malformed toggle_ready payload")
			return
		}
		if err := h.presence.ToggleReady(conn.RoomCode, conn.UserID, p.Ready); err != nil {
			h.replyError(conn, MsgError, err.Error())
		}

	case MsgStartGame:
		if err := h.games.StartGame(context.Background(), conn.RoomCode, conn.UserID); err != nil {
			h.replyError(conn, MsgError, err.Error())
		}

	case MsgSubmitNumber:
		var p submitPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.replyError(conn, MsgSubmissionError, "malformed submit_number payload")
			return
		}
		if err := h.games.SubmitChoice(conn.RoomCode, conn.UserID, p.Number); err != nil {
			h.replyError(conn, MsgSubmissionError, err.Error())
		}

	case MsgSendMessage:
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.replyError(conn, MsgError, "malformed send_message payload")
			return
		}
		if err := h.presence.Chat(conn.RoomCode, conn.UserID, p.Text); err != nil {
			h.replyError(conn, MsgError, err.Error())
		}

	default:
		h.replyError(conn, MsgError, "unknown message type: "+string(msg.Type))
	}
}

// reply sends a message directly to this connection, bypassing hub routing
// so that responses cannot race the connection's own registration. The
// hub may have closed the connection meanwhile (a reconnect supersedes
// it); enqueue drops the reply in that case.
func (h *Handler) reply(conn *Connection, t MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to marshal reply")
		return
	}
	raw, err := json.Marshal(&Message{Type: t, Payload: data})
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Msg("failed to marshal reply envelope")
		return
	}
	if !conn.enqueue(raw) {
		log.Warn().Str("room", conn.RoomCode).Str("user", conn.UserID).Msg("send buffer full or closed, dropping reply")
	}
}

func (h *Handler) replyError(conn *Connection, t MessageType, message string) {
	h.reply(conn, t, model.ErrorPayload{Message: message})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
