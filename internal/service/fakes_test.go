package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kingofdiamonds/internal/cache"
	"kingofdiamonds/internal/model"
)

// In-memory doubles for the repository and cache interfaces, plus a
// broadcaster that records everything it is handed.

type broadcastEvent struct {
	room    string
	user    string // empty for room-wide broadcasts
	event   string
	payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *fakeBroadcaster) Broadcast(room, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{room: room, event: event, payload: payload})
}

func (b *fakeBroadcaster) SendToUser(room, user, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{room: room, user: user, event: event, payload: payload})
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) last(event string) (broadcastEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].event == event {
			return b.events[i], true
		}
	}
	return broadcastEvent{}, false
}

type memLobbyRepo struct {
	mu      sync.Mutex
	lobbies map[string]*model.Lobby
}

func newMemLobbyRepo() *memLobbyRepo {
	return &memLobbyRepo{lobbies: make(map[string]*model.Lobby)}
}

func (r *memLobbyRepo) Insert(_ context.Context, lobby *model.Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lobby
	r.lobbies[lobby.Code] = &cp
	return nil
}

func (r *memLobbyRepo) GetByCode(_ context.Context, code string) (*model.Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lobby, ok := r.lobbies[code]
	if !ok {
		return nil, nil
	}
	cp := *lobby
	return &cp, nil
}

func (r *memLobbyRepo) UpdateStatus(_ context.Context, code string, status model.LobbyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lobby, ok := r.lobbies[code]; ok {
		lobby.Status = status
		lobby.LastActivity = time.Now()
	}
	return nil
}

func (r *memLobbyRepo) TouchActivity(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lobby, ok := r.lobbies[code]; ok {
		lobby.LastActivity = time.Now()
	}
	return nil
}

func (r *memLobbyRepo) SetPlayerCount(_ context.Context, code string, players int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lobby, ok := r.lobbies[code]; ok {
		lobby.Players = players
	}
	return nil
}

func (r *memLobbyRepo) SetGameID(_ context.Context, code, gameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lobby, ok := r.lobbies[code]; ok {
		lobby.GameID = gameID
	}
	return nil
}

func (r *memLobbyRepo) Reset(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lobby, ok := r.lobbies[code]; ok {
		lobby.Status = model.LobbyWaiting
		lobby.Players = 0
		lobby.GameID = ""
	}
	return nil
}

func (r *memLobbyRepo) CloseStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, lobby := range r.lobbies {
		if lobby.Status == model.LobbyWaiting && lobby.LastActivity.Before(cutoff) {
			lobby.Status = model.LobbyFinished
			lobby.Players = 0
			n++
		}
	}
	return n, nil
}

func (r *memLobbyRepo) ListActivity(_ context.Context, limit int) ([]model.LobbyActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LobbyActivity, 0, len(r.lobbies))
	for _, lobby := range r.lobbies {
		out = append(out, model.LobbyActivity{
			Code:         lobby.Code,
			Status:       lobby.Status,
			Players:      lobby.Players,
			LastActivity: lobby.LastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memGameRepo struct {
	mu         sync.Mutex
	seq        int
	games      map[string]*model.GameRecord
	failCreate bool
}

func newMemGameRepo() *memGameRepo {
	return &memGameRepo{games: make(map[string]*model.GameRecord)}
}

func (r *memGameRepo) Create(_ context.Context, roomCode string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return "", fmt.Errorf("store down")
	}
	r.seq++
	id := fmt.Sprintf("game-%d", r.seq)
	r.games[id] = &model.GameRecord{
		ID:        id,
		RoomCode:  roomCode,
		Status:    model.GamePlaying,
		StartedAt: time.Now(),
	}
	return id, nil
}

func (r *memGameRepo) GetByID(_ context.Context, id string) (*model.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memGameRepo) Finish(_ context.Context, id, winnerID string, rounds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.games[id]; ok {
		now := time.Now()
		rec.Status = model.GameFinished
		rec.WinnerID = winnerID
		rec.Rounds = rounds
		rec.FinishedAt = &now
	}
	return nil
}

type memRoundRepo struct {
	mu     sync.Mutex
	rounds []*model.RoundRecord
}

func (r *memRoundRepo) Create(_ context.Context, round *model.RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *round
	r.rounds = append(r.rounds, &cp)
	return nil
}

func (r *memRoundRepo) Complete(_ context.Context, gameID string, round int, average, winningNumber float64, winnerID string, eliminated []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rounds {
		if rec.GameID == gameID && rec.Round == round {
			now := time.Now()
			rec.Average = average
			rec.WinningNumber = winningNumber
			rec.WinnerID = winnerID
			rec.Eliminated = append([]string(nil), eliminated...)
			rec.CompletedAt = &now
		}
	}
	return nil
}

func (r *memRoundRepo) GetByGame(_ context.Context, gameID string) ([]*model.RoundRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RoundRecord
	for _, rec := range r.rounds {
		if rec.GameID == gameID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memChoiceRepo struct {
	mu      sync.Mutex
	choices []*model.ChoiceRecord
}

func (r *memChoiceRepo) Insert(_ context.Context, choice *model.ChoiceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *choice
	r.choices = append(r.choices, &cp)
	return nil
}

func (r *memChoiceRepo) GetByRound(_ context.Context, gameID string, round int) ([]*model.ChoiceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ChoiceRecord
	for _, rec := range r.choices {
		if rec.GameID == gameID && rec.Round == round {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memGamePlayerRepo struct {
	mu   sync.Mutex
	recs map[string]*model.GamePlayerRecord
}

func newMemGamePlayerRepo() *memGamePlayerRepo {
	return &memGamePlayerRepo{recs: make(map[string]*model.GamePlayerRecord)}
}

func (r *memGamePlayerRepo) Upsert(_ context.Context, rec *model.GamePlayerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.recs[rec.GameID+"/"+rec.UserID] = &cp
	return nil
}

func (r *memGamePlayerRepo) GetByGame(_ context.Context, gameID string) ([]*model.GamePlayerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.GamePlayerRecord
	for _, rec := range r.recs {
		if rec.GameID == gameID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memStatsRepo struct {
	mu    sync.Mutex
	stats map[string]*model.UserStats
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{stats: make(map[string]*model.UserStats)}
}

func (r *memStatsRepo) Increment(_ context.Context, userID string, delta model.StatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[userID]
	if !ok {
		st = &model.UserStats{UserID: userID}
		r.stats[userID] = st
	}
	st.GamesPlayed++
	st.GamesWon += delta.GamesWon
	st.RoundsPlayed += delta.RoundsPlayed
	st.RoundsSurvived += delta.RoundsSurvived
	st.UpdatedAt = time.Now()
	return nil
}

func (r *memStatsRepo) GetByUser(_ context.Context, userID string) (*model.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

type memLobbyCache struct {
	mu    sync.Mutex
	metas map[string]*model.LobbyMeta
}

func newMemLobbyCache() *memLobbyCache {
	return &memLobbyCache{metas: make(map[string]*model.LobbyMeta)}
}

func (c *memLobbyCache) SetMeta(_ context.Context, code string, meta *model.LobbyMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *meta
	c.metas[code] = &cp
	return nil
}

func (c *memLobbyCache) GetMeta(_ context.Context, code string) (*model.LobbyMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return nil, nil
	}
	cp := *meta
	return &cp, nil
}

func (c *memLobbyCache) SetStatus(_ context.Context, code string, status model.LobbyStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return fmt.Errorf("lobby %s not found", code)
	}
	meta.Status = status
	return nil
}

func (c *memLobbyCache) Touch(_ context.Context, _ string) error {
	return nil
}

func (c *memLobbyCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, code)
	return nil
}

func (c *memLobbyCache) Exists(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.metas[code]
	return ok, nil
}

type memWinsCache struct {
	mu   sync.Mutex
	wins map[string]int
}

func newMemWinsCache() *memWinsCache {
	return &memWinsCache{wins: make(map[string]int)}
}

func (c *memWinsCache) AddWin(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wins[userID]++
	return nil
}

func (c *memWinsCache) Top(_ context.Context, limit int) ([]cache.WinEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]cache.WinEntry, 0, len(c.wins))
	for userID, wins := range c.wins {
		entries = append(entries, cache.WinEntry{UserID: userID, Wins: wins})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Wins > entries[j].Wins })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (c *memWinsCache) Rank(_ context.Context, userID string) (int64, error) {
	entries, _ := c.Top(context.Background(), 0)
	for _, e := range entries {
		if e.UserID == userID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

func (c *memWinsCache) total(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wins[userID]
}
