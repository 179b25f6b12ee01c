package service

import (
	"context"
	"crypto/rand"
	"fmt"

	"kingofdiamonds/internal/cache"
	"kingofdiamonds/internal/model"
)

// RoomService handles room creation and session issuance.
type RoomService struct {
	registry   *Registry
	recorder   *Recorder
	lobbyCache cache.LobbyCache
	tokens     *TokenService
}

// NewRoomService creates a new room service
func NewRoomService(
	registry *Registry,
	recorder *Recorder,
	lobbyCache cache.LobbyCache,
	tokens *TokenService,
) *RoomService {
	return &RoomService{
		registry:   registry,
		recorder:   recorder,
		lobbyCache: lobbyCache,
		tokens:     tokens,
	}
}

// CreateRoom creates a live room and returns it with a host session
// token. An empty HostID gets a generated guest id. The durable lobby
// record and its Redis mirror are written asynchronously.
func (s *RoomService) CreateRoom(ctx context.Context, cfg model.RoomConfig) (*model.Room, string, error) {
	if cfg.Name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = model.MaxPlayersCeiling
	}
	if cfg.MaxPlayers < model.MinPlayersToStart || cfg.MaxPlayers > model.MaxPlayersCeiling {
		return nil, "", fmt.Errorf("%w: maxPlayers must be between %d and %d",
			ErrInvalidConfig, model.MinPlayersToStart, model.MaxPlayersCeiling)
	}
	if cfg.RoundDuration == 0 {
		cfg.RoundDuration = 60
	}
	if cfg.RoundDuration < model.MinRoundDuration || cfg.RoundDuration > model.MaxRoundDuration {
		return nil, "", fmt.Errorf("%w: roundDuration must be between %d and %d seconds",
			ErrInvalidConfig, model.MinRoundDuration, model.MaxRoundDuration)
	}
	if cfg.HostID == "" {
		cfg.HostID = model.NewGuestID()
	}

	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate room code: %w", err)
	}

	room, err := s.registry.Create(code, cfg)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(code, cfg.HostID, true)
	if err != nil {
		s.registry.Delete(code)
		return nil, "", fmt.Errorf("failed to generate host token: %w", err)
	}

	s.recorder.LobbyCreated(&model.Lobby{
		Code:          code,
		Name:          cfg.Name,
		HostID:        cfg.HostID,
		Status:        model.LobbyWaiting,
		MaxPlayers:    cfg.MaxPlayers,
		RoundDuration: cfg.RoundDuration,
		Password:      cfg.Password,
		CreatedAt:     room.CreatedAt,
		LastActivity:  room.CreatedAt,
	})

	return room, token, nil
}

// GetRoom returns the public snapshot of a live room.
func (s *RoomService) GetRoom(code string) (*model.RoomSnapshot, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.Mu.Lock()
	snap := room.Snapshot()
	room.Mu.Unlock()
	return &snap, nil
}

// CreateSession issues a room-scoped session token. An empty userID gets
// a generated guest id; a known userID lets a player reclaim their seat
// after a disconnect. Full and finished rooms are rejected for new users.
func (s *RoomService) CreateSession(code, userID, password string) (string, string, error) {
	room, ok := s.registry.Get(code)
	if !ok {
		return "", "", ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Config.Password != "" && room.Config.Password != password {
		room.Mu.Unlock()
		return "", "", ErrWrongPassword
	}
	rejoin := userID != "" && room.FindPlayer(userID) != nil
	if !rejoin {
		if room.Phase == model.PhaseFinished {
			room.Mu.Unlock()
			return "", "", ErrWrongPhase
		}
		if len(room.Players) >= room.Config.MaxPlayers {
			room.Mu.Unlock()
			return "", "", ErrRoomFull
		}
	}
	hostID := room.Config.HostID
	room.Mu.Unlock()

	if userID == "" {
		userID = model.NewGuestID()
	}

	token, err := s.tokens.Generate(code, userID, userID == hostID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return userID, token, nil
}

// generateRoomCode creates a 6-char alphanumeric code
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		if _, live := s.registry.Get(codeStr); live {
			continue
		}
		exists, err := s.lobbyCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}
