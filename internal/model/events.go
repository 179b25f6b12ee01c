package model

import "time"

// Wire payloads for outbound real-time events. Every struct here is
// built under the room lock and broadcast after it is released.

// PlayerSnapshot is one player's public state.
type PlayerSnapshot struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	Score        int    `json:"score"`
	Eliminated   bool   `json:"eliminated"`
	HasSubmitted bool   `json:"hasSubmitted"`
	Ready        bool   `json:"ready"`
	Connected    bool   `json:"connected"`
}

// RoomSnapshot is the full read-only projection of a room, sent on join
// and with round starts.
type RoomSnapshot struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	HostID        string           `json:"hostId"`
	Phase         Phase            `json:"phase"`
	Round         int              `json:"round"`
	ActiveRules   []int            `json:"activeRules"`
	Remaining     int              `json:"remaining"`
	RoundDuration int              `json:"roundDuration"`
	MaxPlayers    int              `json:"maxPlayers"`
	HasPassword   bool             `json:"hasPassword"`
	Players       []PlayerSnapshot `json:"players"`
}

// PresencePayload identifies a player for join/leave/ready notices.
type PresencePayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Ready  *bool  `json:"ready,omitempty"`
}

// RoundStartPayload opens a submission phase.
type RoundStartPayload struct {
	Round       int              `json:"round"`
	ActiveRules []int            `json:"activeRules"`
	Duration    int              `json:"duration"`
	Players     []PlayerSnapshot `json:"players"`
}

// TimerPayload carries the per-second countdown.
type TimerPayload struct {
	Round     int `json:"round"`
	Remaining int `json:"remaining"`
}

// ChoiceEntry is one revealed submission.
type ChoiceEntry struct {
	UserID string `json:"userId"`
	Choice int    `json:"choice"`
}

// RevealPayload publishes every choice once the round closes. Values are
// never broadcast before this point.
type RevealPayload struct {
	Round         int           `json:"round"`
	Choices       []ChoiceEntry `json:"choices"`
	Average       float64       `json:"average"`
	WinningNumber float64       `json:"winningNumber"`
	WinnerID      string        `json:"winnerId"`
	SpecialWin    bool          `json:"specialWin"`
	ExactMatch    bool          `json:"exactMatch"`
}

// DeltaEntry is one player's score change.
type DeltaEntry struct {
	UserID string `json:"userId"`
	Delta  int    `json:"delta"`
	Score  int    `json:"score"`
}

// ScoredPayload applies a round's outcome: deltas, fresh eliminations and
// any rules those eliminations unlocked.
type ScoredPayload struct {
	Round         int              `json:"round"`
	Deltas        []DeltaEntry     `json:"deltas"`
	Eliminated    []string         `json:"eliminated"`
	UnlockedRules []int            `json:"unlockedRules"`
	ActiveRules   []int            `json:"activeRules"`
	Players       []PlayerSnapshot `json:"players"`
}

// StandingEntry is one row of the final ranking.
type StandingEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Eliminated bool   `json:"eliminated"`
}

// GameOverPayload closes a game with the ranked standings.
type GameOverPayload struct {
	WinnerID  string          `json:"winnerId"`
	Rounds    int             `json:"rounds"`
	Standings []StandingEntry `json:"standings"`
}

// ChatPayload relays a lobby chat line. No game-state effect.
type ChatPayload struct {
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// ErrorPayload is sent only to the offending connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
