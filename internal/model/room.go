package model

import (
	"sync"
	"time"

	"kingofdiamonds/internal/game"
)

// Phase is the round lifecycle state of a room.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseSubmission Phase = "submission"
	PhaseReveal     Phase = "reveal"
	PhaseScoring    Phase = "scoring"
	PhaseFinished   Phase = "finished"
)

// Active reports whether a game is in progress: disconnects mark players
// instead of removing them, and new user ids may no longer join.
func (p Phase) Active() bool {
	return p != PhaseWaiting && p != PhaseFinished
}

// Room configuration bounds, validated at creation.
const (
	MinPlayersToStart = 3
	MaxPlayersCeiling = 8
	MinRoundDuration  = 30
	MaxRoundDuration  = 90
)

// RoomConfig is the immutable per-room setup chosen at creation.
type RoomConfig struct {
	Name          string `json:"name"`
	HostID        string `json:"hostId"`
	MaxPlayers    int    `json:"maxPlayers"`
	RoundDuration int    `json:"roundDuration"` // seconds per submission phase
	Password      string `json:"-"`
}

// Room is one lobby's live in-memory game session: the authoritative
// source of truth while a game runs. All state fields are guarded by Mu;
// handlers mutate under the lock, build payload snapshots, unlock, then
// broadcast. Timers are owned by the room behind their own lock so that
// stopping them never contends with state mutation.
type Room struct {
	Code         string
	GameID       string // durable game record id, set when the host starts
	Config       RoomConfig
	Players      []*Player // join order, stable for display and tie-breaks
	Round        int
	Phase        Phase
	ActiveRules  []int
	Eliminations int
	Rounds       int // completed (scored) rounds this game
	Remaining    int // seconds left in the current submission phase
	Submissions  []game.Entry
	CreatedAt    time.Time
	LastActivity time.Time

	Mu sync.Mutex

	timerMu    sync.Mutex
	countdown  chan struct{}
	transition *time.Timer
}

// NewRoom builds a room in the waiting phase with no players, no active
// rules and round 1 pending.
func NewRoom(code string, cfg RoomConfig) *Room {
	now := time.Now()
	return &Room{
		Code:         code,
		Config:       cfg,
		Players:      []*Player{},
		Round:        1,
		Phase:        PhaseWaiting,
		ActiveRules:  []int{},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch records player activity. Callers hold Mu.
func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// FindPlayer looks a player up by user id. Callers hold Mu.
func (r *Room) FindPlayer(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// AddPlayer appends a player, preserving join order. Callers hold Mu.
func (r *Room) AddPlayer(p *Player) {
	r.Players = append(r.Players, p)
}

// RemovePlayer drops a player from the list. Only valid while the room
// is not actively playing; an active game marks players disconnected
// instead. Callers hold Mu.
func (r *Room) RemovePlayer(userID string) bool {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// ConnectedActive counts players still in the running: connected and not
// eliminated. Callers hold Mu.
func (r *Room) ConnectedActive() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected && !p.Eliminated {
			n++
		}
	}
	return n
}

// AllSubmitted reports whether every connected, non-eliminated player has
// locked in a choice this round. False when nobody is eligible. Callers
// hold Mu.
func (r *Room) AllSubmitted() bool {
	eligible := 0
	for _, p := range r.Players {
		if !p.Connected || p.Eliminated {
			continue
		}
		eligible++
		if !p.HasSubmitted {
			return false
		}
	}
	return eligible > 0
}

// Standings projects the player list into the scoring engine's form, in
// join order. Callers hold Mu.
func (r *Room) Standings() []game.Standing {
	out := make([]game.Standing, len(r.Players))
	for i, p := range r.Players {
		out[i] = game.Standing{UserID: p.UserID, Score: p.Score, Eliminated: p.Eliminated}
	}
	return out
}

// Snapshot is the read-only projection sent to clients. The password
// never leaves the room. Callers hold Mu.
func (r *Room) Snapshot() RoomSnapshot {
	players := make([]PlayerSnapshot, len(r.Players))
	for i, p := range r.Players {
		players[i] = p.Snapshot()
	}
	rules := make([]int, len(r.ActiveRules))
	copy(rules, r.ActiveRules)
	return RoomSnapshot{
		Code:          r.Code,
		Name:          r.Config.Name,
		HostID:        r.Config.HostID,
		Phase:         r.Phase,
		Round:         r.Round,
		ActiveRules:   rules,
		Remaining:     r.Remaining,
		RoundDuration: r.Config.RoundDuration,
		MaxPlayers:    r.Config.MaxPlayers,
		HasPassword:   r.Config.Password != "",
		Players:       players,
	}
}

// StartCountdown replaces any running countdown with a fresh ticker that
// invokes tick once per interval. A tick returning true stops the
// countdown. Never called with Mu held.
func (r *Room) StartCountdown(interval time.Duration, tick func() bool) {
	r.timerMu.Lock()
	if r.countdown != nil {
		close(r.countdown)
	}
	stop := make(chan struct{})
	r.countdown = stop
	r.timerMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if tick() {
					// Clear the handle only if it is still ours; a
					// replacement countdown keeps its own.
					r.timerMu.Lock()
					if r.countdown == stop {
						r.countdown = nil
					}
					r.timerMu.Unlock()
					return
				}
			}
		}
	}()
}

// StopCountdown halts the ticker if one is running. Idempotent.
func (r *Room) StopCountdown() {
	r.timerMu.Lock()
	if r.countdown != nil {
		close(r.countdown)
		r.countdown = nil
	}
	r.timerMu.Unlock()
}

// ScheduleTransition replaces any pending phase-transition timer with one
// firing fn after d. A replaced timer that already fired becomes a no-op.
func (r *Room) ScheduleTransition(d time.Duration, fn func()) {
	r.timerMu.Lock()
	if r.transition != nil {
		r.transition.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.timerMu.Lock()
		if r.transition != t {
			r.timerMu.Unlock()
			return
		}
		r.transition = nil
		r.timerMu.Unlock()
		fn()
	})
	r.transition = t
	r.timerMu.Unlock()
}

// StopTimers cancels the countdown and any pending transition. Deleting
// a room from the registry always goes through here.
func (r *Room) StopTimers() {
	r.StopCountdown()
	r.timerMu.Lock()
	if r.transition != nil {
		r.transition.Stop()
		r.transition = nil
	}
	r.timerMu.Unlock()
}
