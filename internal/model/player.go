package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestPrefix marks ephemeral, session-scoped user identifiers. Guests
// play like anyone else but are skipped for lifetime stats and the wins
// leaderboard.
const GuestPrefix = "guest_"

// NewGuestID mints an ephemeral user identifier.
func NewGuestID() string {
	return GuestPrefix + uuid.New().String()[:8]
}

// IsGuestID reports whether a user identifier is session-scoped.
func IsGuestID(userID string) bool {
	return strings.HasPrefix(userID, GuestPrefix)
}

// Player is a room-scoped participant, owned exclusively by its Room and
// mutated only under the room's state lock. Ready and Connected are
// genuine booleans set at construction; there is no "unset means true"
// state.
type Player struct {
	UserID          string     `json:"userId"`
	Name            string     `json:"name"`
	Avatar          string     `json:"avatar,omitempty"`
	Score           int        `json:"score"`
	Eliminated      bool       `json:"eliminated"`
	EliminatedRound int        `json:"eliminatedRound,omitempty"`
	HasSubmitted    bool       `json:"hasSubmitted"`
	Choice          *int       `json:"-"`
	Ready           bool       `json:"ready"`
	Connected       bool       `json:"connected"`
	DisconnectedAt  *time.Time `json:"-"`
	JoinedAt        time.Time  `json:"joinedAt"`
}

// NewPlayer builds a fresh, connected participant with a zero score.
func NewPlayer(userID, name, avatar string) *Player {
	return &Player{
		UserID:    userID,
		Name:      name,
		Avatar:    avatar,
		Connected: true,
		JoinedAt:  time.Now(),
	}
}

// IsGuest reports whether the player joined with an ephemeral identity.
func (p *Player) IsGuest() bool {
	return IsGuestID(p.UserID)
}

// MarkDisconnected flags the player as gone without removing them, so an
// active game keeps their standing.
func (p *Player) MarkDisconnected() {
	now := time.Now()
	p.Connected = false
	p.DisconnectedAt = &now
}

// MarkReconnected restores the connection fields. Score, elimination and
// submission state are untouched.
func (p *Player) MarkReconnected() {
	p.Connected = true
	p.DisconnectedAt = nil
}

// Snapshot projects the player into its wire form. Both booleans are
// always explicit.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		UserID:       p.UserID,
		Name:         p.Name,
		Avatar:       p.Avatar,
		Score:        p.Score,
		Eliminated:   p.Eliminated,
		HasSubmitted: p.HasSubmitted,
		Ready:        p.Ready,
		Connected:    p.Connected,
	}
}
