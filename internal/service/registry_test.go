package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kingofdiamonds/internal/model"
)

func testConfig(host string) model.RoomConfig {
	return model.RoomConfig{Name: "r", HostID: host, MaxPlayers: 8, RoundDuration: 60}
}

func age(room *model.Room, d time.Duration) {
	room.Mu.Lock()
	room.LastActivity = time.Now().Add(-d)
	room.Mu.Unlock()
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := NewRegistry(10, 10*time.Minute)

	room, err := reg.Create("AAAAAA", testConfig("h"))
	require.NoError(t, err)
	assert.Equal(t, model.PhaseWaiting, room.Phase)
	assert.Equal(t, 1, room.Round)
	assert.Empty(t, room.Players)

	_, err = reg.Create("AAAAAA", testConfig("h"))
	assert.ErrorIs(t, err, ErrRoomExists)

	got, ok := reg.Get("AAAAAA")
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, 1, reg.Count())

	reg.Delete("AAAAAA")
	reg.Delete("AAAAAA") // idempotent
	_, ok = reg.Get("AAAAAA")
	assert.False(t, ok)
	assert.Zero(t, reg.Count())
}

func TestRegistryEvictsIdleWaitingRooms(t *testing.T) {
	reg := NewRegistry(5, 10*time.Minute)

	rooms := make(map[string]*model.Room)
	for i := 0; i < 5; i++ {
		code := fmt.Sprintf("ROOM%d", i)
		room, err := reg.Create(code, testConfig("h"))
		require.NoError(t, err)
		rooms[code] = room
	}

	// Three idle rooms with distinct ages, two fresh ones.
	age(rooms["ROOM0"], 30*time.Minute)
	age(rooms["ROOM1"], 20*time.Minute)
	age(rooms["ROOM2"], 15*time.Minute)

	// At the ceiling: creation evicts the oldest idle waiting rooms
	// until the registry is under 80% of capacity.
	_, err := reg.Create("ROOM5", testConfig("h"))
	require.NoError(t, err)

	_, ok := reg.Get("ROOM0")
	assert.False(t, ok, "oldest idle room should be evicted")
	_, ok = reg.Get("ROOM1")
	assert.False(t, ok, "second-oldest idle room should be evicted")
	_, ok = reg.Get("ROOM2")
	assert.True(t, ok, "eviction stops once below the target")
	_, ok = reg.Get("ROOM5")
	assert.True(t, ok)
	assert.Equal(t, 4, reg.Count())
}

func TestRegistryNeverEvictsActiveRooms(t *testing.T) {
	reg := NewRegistry(2, 10*time.Minute)

	playing, err := reg.Create("PLAY", testConfig("h"))
	require.NoError(t, err)
	playing.Mu.Lock()
	playing.Phase = model.PhaseSubmission
	playing.Mu.Unlock()
	age(playing, time.Hour)

	fresh, err := reg.Create("FRESH", testConfig("h"))
	require.NoError(t, err)
	_ = fresh

	// Nothing evictable: the cap is soft and creation still succeeds.
	_, err = reg.Create("MORE", testConfig("h"))
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Count())
	_, ok := reg.Get("PLAY")
	assert.True(t, ok)
}
