package model

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kingofdiamonds/internal/game"
)

func testConfig() RoomConfig {
	return RoomConfig{
		Name:          "table one",
		HostID:        "host1",
		MaxPlayers:    8,
		RoundDuration: 60,
	}
}

func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom("ABC123", testConfig())

	assert.Equal(t, PhaseWaiting, r.Phase)
	assert.Equal(t, 1, r.Round)
	assert.Empty(t, r.Players)
	assert.Empty(t, r.ActiveRules)
	assert.Zero(t, r.Eliminations)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestGuestIDs(t *testing.T) {
	id := NewGuestID()
	assert.True(t, IsGuestID(id))
	assert.False(t, IsGuestID("u_1234"))

	p := NewPlayer(id, "drifter", "")
	assert.True(t, p.IsGuest())
}

func TestPlayerConnectionFields(t *testing.T) {
	p := NewPlayer("u1", "alice", "cat.png")
	require.True(t, p.Connected)
	require.Nil(t, p.DisconnectedAt)
	require.False(t, p.Ready)

	p.Score = -4
	p.MarkDisconnected()
	assert.False(t, p.Connected)
	require.NotNil(t, p.DisconnectedAt)

	p.MarkReconnected()
	assert.True(t, p.Connected)
	assert.Nil(t, p.DisconnectedAt)
	// Only connection fields move on reconnect.
	assert.Equal(t, -4, p.Score)
}

func TestRoomPlayerHelpers(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	r.AddPlayer(NewPlayer("u1", "alice", ""))
	r.AddPlayer(NewPlayer("u2", "bob", ""))
	r.AddPlayer(NewPlayer("u3", "carol", ""))

	require.NotNil(t, r.FindPlayer("u2"))
	assert.Nil(t, r.FindPlayer("nobody"))
	assert.Equal(t, 3, r.ConnectedActive())

	r.FindPlayer("u2").Eliminated = true
	r.FindPlayer("u3").MarkDisconnected()
	assert.Equal(t, 1, r.ConnectedActive())

	assert.True(t, r.RemovePlayer("u1"))
	assert.False(t, r.RemovePlayer("u1"))
	assert.Len(t, r.Players, 2)
}

func TestAllSubmitted(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	// Nobody eligible yet.
	assert.False(t, r.AllSubmitted())

	r.AddPlayer(NewPlayer("u1", "alice", ""))
	r.AddPlayer(NewPlayer("u2", "bob", ""))
	r.AddPlayer(NewPlayer("u3", "carol", ""))
	assert.False(t, r.AllSubmitted())

	r.FindPlayer("u1").HasSubmitted = true
	r.FindPlayer("u2").HasSubmitted = true
	assert.False(t, r.AllSubmitted())

	// Eliminated and disconnected players do not block the round.
	r.FindPlayer("u3").Eliminated = true
	assert.True(t, r.AllSubmitted())

	r.FindPlayer("u2").HasSubmitted = false
	r.FindPlayer("u2").MarkDisconnected()
	assert.True(t, r.AllSubmitted())
}

func TestSnapshotExplicitBooleans(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	r.Config.Password = "hush"
	p := NewPlayer("u1", "alice", "cat.png")
	r.AddPlayer(p)
	r.ActiveRules = []int{game.RuleDuplicate, game.RuleExactPenalty}
	r.Remaining = 42

	snap := r.Snapshot()
	assert.Equal(t, "ABC123", snap.Code)
	assert.True(t, snap.HasPassword)
	assert.Equal(t, []int{1, 2}, snap.ActiveRules)
	assert.Equal(t, 42, snap.Remaining)

	require.Len(t, snap.Players, 1)
	ps := snap.Players[0]
	assert.True(t, ps.Connected)
	assert.False(t, ps.Ready)
	assert.False(t, ps.Eliminated)
	assert.False(t, ps.HasSubmitted)

	// Snapshot rules are a copy, not an alias.
	snap.ActiveRules[0] = 99
	assert.Equal(t, game.RuleDuplicate, r.ActiveRules[0])
}

func TestStandingsProjection(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	a := NewPlayer("u1", "alice", "")
	a.Score = 2
	b := NewPlayer("u2", "bob", "")
	b.Score = -3
	b.Eliminated = true
	r.AddPlayer(a)
	r.AddPlayer(b)

	st := r.Standings()
	require.Len(t, st, 2)
	assert.Equal(t, game.Standing{UserID: "u1", Score: 2}, st[0])
	assert.Equal(t, game.Standing{UserID: "u2", Score: -3, Eliminated: true}, st[1])
}

func TestCountdownTicksAndStops(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	var ticks atomic.Int32

	r.StartCountdown(5*time.Millisecond, func() bool {
		return ticks.Add(1) >= 3
	})

	assert.Eventually(t, func() bool {
		return ticks.Load() == 3
	}, time.Second, 5*time.Millisecond)

	// Stopped after the tick returned true: the count stays put.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestCountdownReplaced(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	var old, fresh atomic.Int32

	r.StartCountdown(5*time.Millisecond, func() bool {
		old.Add(1)
		return false
	})
	r.StartCountdown(5*time.Millisecond, func() bool {
		fresh.Add(1)
		return false
	})

	assert.Eventually(t, func() bool {
		return fresh.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	// The first countdown died at replacement; at most one tick raced in.
	assert.LessOrEqual(t, old.Load(), int32(1))

	r.StopCountdown()
	r.StopCountdown() // idempotent
}

func TestScheduleTransitionReplacesPending(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	var fired atomic.Int32

	r.ScheduleTransition(30*time.Millisecond, func() { fired.Store(1) })
	r.ScheduleTransition(10*time.Millisecond, func() { fired.Store(2) })

	assert.Eventually(t, func() bool {
		return fired.Load() == 2
	}, time.Second, 5*time.Millisecond)

	// The replaced timer never fires.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), fired.Load())
}

func TestStopTimersCancelsEverything(t *testing.T) {
	r := NewRoom("ABC123", testConfig())
	var ran atomic.Int32

	r.StartCountdown(5*time.Millisecond, func() bool {
		ran.Add(1)
		return false
	})
	r.ScheduleTransition(20*time.Millisecond, func() { ran.Add(100) })
	r.StopTimers()

	before := ran.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, ran.Load())
	assert.Less(t, ran.Load(), int32(100))
}
