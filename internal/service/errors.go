package service

import "errors"

// Domain sentinels. Transports map these to caller-only error replies;
// none of them is broadcast and none mutates room state.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExists         = errors.New("room code already in use")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrRoomFull           = errors.New("room is full")
	ErrWrongPhase         = errors.New("operation not allowed in current phase")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrPlayersNotReady    = errors.New("not all players are ready")
	ErrAlreadySubmitted   = errors.New("choice already submitted this round")
	ErrPlayerEliminated   = errors.New("player is eliminated")
	ErrPlayerDisconnected = errors.New("player is disconnected")
	ErrGameInProgress     = errors.New("game already in progress")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongPassword      = errors.New("wrong room password")
	ErrInvalidConfig      = errors.New("invalid room configuration")
)
