package model

import "time"

// Durable records: the best-effort MongoDB shadow of gameplay. In-memory
// room state stays authoritative; these exist for the reaper, the stats
// surface and operational visibility.

type LobbyStatus string

const (
	LobbyWaiting  LobbyStatus = "waiting"
	LobbyPlaying  LobbyStatus = "playing"
	LobbyFinished LobbyStatus = "finished"
)

// Lobby is the durable room record.
type Lobby struct {
	Code          string      `json:"code" bson:"code"`
	Name          string      `json:"name" bson:"name"`
	HostID        string      `json:"hostId" bson:"hostId"`
	Status        LobbyStatus `json:"status" bson:"status"`
	GameID        string      `json:"gameId,omitempty" bson:"gameId,omitempty"`
	Players       int         `json:"players" bson:"players"`
	MaxPlayers    int         `json:"maxPlayers" bson:"maxPlayers"`
	RoundDuration int         `json:"roundDuration" bson:"roundDuration"`
	Password      string      `json:"-" bson:"password,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	LastActivity  time.Time   `json:"lastActivity" bson:"lastActivity"`
}

// LobbyActivity is the reaper's read-only listing row.
type LobbyActivity struct {
	Code         string      `json:"code" bson:"code"`
	Status       LobbyStatus `json:"status" bson:"status"`
	Players      int         `json:"players" bson:"players"`
	LastActivity time.Time   `json:"lastActivity" bson:"lastActivity"`
}

// LobbyMeta is the Redis mirror of a lobby's hot metadata.
type LobbyMeta struct {
	Name       string      `json:"name"`
	HostID     string      `json:"hostId"`
	Status     LobbyStatus `json:"status"`
	Players    int         `json:"players"`
	MaxPlayers int         `json:"maxPlayers"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type GameStatus string

const (
	GamePlaying  GameStatus = "playing"
	GameFinished GameStatus = "finished"
)

// GameRecord is one durable game of a lobby.
type GameRecord struct {
	ID         string     `json:"id" bson:"_id,omitempty"`
	RoomCode   string     `json:"roomCode" bson:"roomCode"`
	Status     GameStatus `json:"status" bson:"status"`
	Rounds     int        `json:"rounds" bson:"rounds"`
	WinnerID   string     `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	StartedAt  time.Time  `json:"startedAt" bson:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
}

// RoundRecord is one durable round of a game.
type RoundRecord struct {
	GameID        string     `json:"gameId" bson:"gameId"`
	Round         int        `json:"round" bson:"round"`
	ActiveRules   []int      `json:"activeRules" bson:"activeRules"`
	Average       float64    `json:"average" bson:"average"`
	WinningNumber float64    `json:"winningNumber" bson:"winningNumber"`
	WinnerID      string     `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	Eliminated    []string   `json:"eliminated,omitempty" bson:"eliminated,omitempty"`
	StartedAt     time.Time  `json:"startedAt" bson:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// ChoiceRecord is one durable per-round submission.
type ChoiceRecord struct {
	GameID      string    `json:"gameId" bson:"gameId"`
	Round       int       `json:"round" bson:"round"`
	UserID      string    `json:"userId" bson:"userId"`
	Value       int       `json:"value" bson:"value"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

// GamePlayerRecord is a player's durable per-game result.
type GamePlayerRecord struct {
	GameID          string `json:"gameId" bson:"gameId"`
	UserID          string `json:"userId" bson:"userId"`
	Name            string `json:"name" bson:"name"`
	Score           int    `json:"score" bson:"score"`
	Eliminated      bool   `json:"eliminated" bson:"eliminated"`
	EliminatedRound int    `json:"eliminatedRound,omitempty" bson:"eliminatedRound,omitempty"`
	Won             bool   `json:"won" bson:"won"`
}

// UserStats is a player's lifetime record across games. Kept only for
// identifiable (non-guest) users.
type UserStats struct {
	UserID         string    `json:"userId" bson:"userId"`
	GamesPlayed    int       `json:"gamesPlayed" bson:"gamesPlayed"`
	GamesWon       int       `json:"gamesWon" bson:"gamesWon"`
	RoundsPlayed   int       `json:"roundsPlayed" bson:"roundsPlayed"`
	RoundsSurvived int       `json:"roundsSurvived" bson:"roundsSurvived"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// StatsDelta is one atomic lifetime-stats increment. GamesPlayed is
// always +1 inside the operation; the deltas cover the rest.
type StatsDelta struct {
	GamesWon       int
	RoundsPlayed   int
	RoundsSurvived int
}
