package service

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/model"
)

// Registry owns the live rooms: the only cross-room map in the process.
// In-memory state is authoritative while a room is hot; the durable lobby
// record is a shadow written elsewhere.
//
// Lock order is registry then room, never the reverse: services resolve
// the room, release the registry, then lock the room. Nothing calls back
// into the registry while holding a room's state mutex.
type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*model.Room
	maxRooms     int
	idleEviction time.Duration
}

// NewRegistry creates a registry with a soft capacity ceiling. Rooms past
// the ceiling trigger eviction of idle waiting rooms, but creation never
// fails on capacity alone.
func NewRegistry(maxRooms int, idleEviction time.Duration) *Registry {
	return &Registry{
		rooms:        make(map[string]*model.Room),
		maxRooms:     maxRooms,
		idleEviction: idleEviction,
	}
}

// Create registers a new room in the waiting phase under code.
func (r *Registry) Create(code string, cfg model.RoomConfig) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; ok {
		return nil, ErrRoomExists
	}
	if len(r.rooms) >= r.maxRooms {
		r.evictIdle()
	}

	room := model.NewRoom(code, cfg)
	r.rooms[code] = room
	return room, nil
}

// evictIdle removes waiting rooms idle past the eviction threshold,
// oldest first, until the map is below 80% of the ceiling. Rooms with a
// game in progress are never evicted. Caller holds the registry lock.
func (r *Registry) evictIdle() {
	target := r.maxRooms * 8 / 10
	cutoff := time.Now().Add(-r.idleEviction)

	type candidate struct {
		code string
		last time.Time
	}
	var idle []candidate
	for code, room := range r.rooms {
		room.Mu.Lock()
		if room.Phase == model.PhaseWaiting && room.LastActivity.Before(cutoff) {
			idle = append(idle, candidate{code: code, last: room.LastActivity})
		}
		room.Mu.Unlock()
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].last.Before(idle[j].last) })

	for _, c := range idle {
		if len(r.rooms) < target {
			break
		}
		if room, ok := r.rooms[c.code]; ok {
			room.StopTimers()
			delete(r.rooms, c.code)
			log.Info().Str("room", c.code).Time("lastActivity", c.last).Msg("evicted idle room")
		}
	}
}

// Get returns the live room for code.
func (r *Registry) Get(code string) (*model.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Delete removes a room and stops its timers. Idempotent.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	room, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if ok {
		room.StopTimers()
	}
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
