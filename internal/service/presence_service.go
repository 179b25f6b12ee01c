package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/model"
)

const maxChatLength = 500

// PresenceService tracks who is in a room: joins, departures, ready
// state and chat. During an active game departures only mark the player
// disconnected; their score and standing survive a rejoin.
type PresenceService struct {
	registry    *Registry
	recorder    *Recorder
	broadcaster Broadcaster
}

// NewPresenceService creates a new presence service
func NewPresenceService(registry *Registry, recorder *Recorder) *PresenceService {
	return &PresenceService{
		registry: registry,
		recorder: recorder,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *PresenceService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *PresenceService) broadcast(code, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(code, event, payload)
	}
}

// Join adds a player to a room, or restores the connection of one who
// dropped. New players are admitted only while the room is waiting;
// rejoining works in any phase and touches nothing but the connection
// fields. Returns the snapshot the joiner should see.
func (s *PresenceService) Join(code, userID, name, avatar string) (*model.RoomSnapshot, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	p := room.FindPlayer(userID)
	event := "player_joined"
	var payload interface{}
	if p != nil {
		p.MarkReconnected()
		if room.Phase.Active() {
			event = "player_reconnected"
			payload = model.PresencePayload{UserID: p.UserID, Name: p.Name}
		} else {
			payload = p.Snapshot()
		}
	} else {
		if room.Phase != model.PhaseWaiting {
			room.Mu.Unlock()
			return nil, ErrGameInProgress
		}
		if len(room.Players) >= room.Config.MaxPlayers {
			room.Mu.Unlock()
			return nil, ErrRoomFull
		}
		p = model.NewPlayer(userID, name, avatar)
		room.AddPlayer(p)
		payload = p.Snapshot()
	}
	room.Touch()
	snap := room.Snapshot()
	count := len(room.Players)
	room.Mu.Unlock()

	s.broadcast(code, event, payload)
	s.recorder.LobbyActivity(code, count)
	return &snap, nil
}

// Leave handles an explicit departure.
func (s *PresenceService) Leave(code, userID string) error {
	return s.departure(code, userID)
}

// HandleDisconnect is the hub's callback for a dropped socket. Same
// semantics as an explicit leave.
func (s *PresenceService) HandleDisconnect(code, userID string) {
	if err := s.departure(code, userID); err != nil {
		log.Debug().Err(err).Str("room", code).Str("user", userID).Msg("disconnect for unknown player")
	}
}

// departure marks the player disconnected while a game runs, and removes
// them outright in waiting or finished rooms. The last player out of a
// waiting room takes the room with them.
func (s *PresenceService) departure(code, userID string) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	p := room.FindPlayer(userID)
	if p == nil {
		room.Mu.Unlock()
		return ErrPlayerNotFound
	}

	if room.Phase.Active() {
		if !p.Connected {
			room.Mu.Unlock()
			return nil
		}
		p.MarkDisconnected()
		room.Touch()
		payload := model.PresencePayload{UserID: p.UserID, Name: p.Name}
		count := len(room.Players)
		room.Mu.Unlock()

		s.broadcast(code, "player_disconnected", payload)
		s.recorder.LobbyActivity(code, count)
		return nil
	}

	room.RemovePlayer(userID)
	room.Touch()
	payload := model.PresencePayload{UserID: p.UserID, Name: p.Name}
	count := len(room.Players)
	empty := room.Phase == model.PhaseWaiting && count == 0
	room.Mu.Unlock()

	s.broadcast(code, "player_left", payload)
	if empty {
		log.Info().Str("room", code).Msg("last player left, deleting room")
		s.registry.Delete(code)
		s.recorder.LobbyStatus(code, model.LobbyFinished)
		return nil
	}
	s.recorder.LobbyActivity(code, count)
	return nil
}

// ToggleReady flips a player's ready flag. Waiting phase only.
func (s *PresenceService) ToggleReady(code, userID string, ready bool) error {
	room, ok := s.registry.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Phase != model.PhaseWaiting {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	p := room.FindPlayer(userID)
	if p == nil {
		room.Mu.Unlock()
		return ErrPlayerNotFound
	}
	p.Ready = ready
	room.Touch()
	payload := model.PresencePayload{UserID: p.UserID, Name: p.Name, Ready: &ready}
	count := len(room.Players)
	room.Mu.Unlock()

	s.broadcast(code, "ready_changed", payload)
	s.recorder.LobbyActivity(code, count)
	return nil
}

// Chat relays a message to the room. No game-state effect beyond the
// activity touch.
func (s *PresenceService) Chat(code, userID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty message")
	}
	if len(text) > maxChatLength {
		return fmt.Errorf("message exceeds %d characters", maxChatLength)
	}

	room, ok := s.registry.Get(code)
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	p := room.FindPlayer(userID)
	if p == nil {
		room.Mu.Unlock()
		return ErrPlayerNotFound
	}
	room.Touch()
	payload := model.ChatPayload{UserID: p.UserID, Name: p.Name, Text: text, SentAt: time.Now()}
	count := len(room.Players)
	room.Mu.Unlock()

	s.broadcast(code, "chat_message", payload)
	s.recorder.LobbyActivity(code, count)
	return nil
}
