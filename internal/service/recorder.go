package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/cache"
	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/repository"
)

const (
	recorderQueueSize = 256
	recorderWorkers   = 4
	recorderTimeout   = 5 * time.Second
)

// task is one durable write waiting for a worker.
type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Recorder is the async persistence outbox: gameplay enqueues durable
// writes and moves on, a small worker pool drains them in the background.
// Failures are logged and never surfaced; a full queue drops the task.
// Broadcasts and phase transitions never wait on anything here.
type Recorder struct {
	lobbies     repository.LobbyRepo
	games       repository.GameRepo
	rounds      repository.RoundRepo
	choices     repository.ChoiceRepo
	gamePlayers repository.GamePlayerRepo
	stats       repository.StatsRepo
	lobbyCache  cache.LobbyCache
	wins        cache.WinsCache

	tasks     chan task
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewRecorder creates a recorder and starts its workers.
func NewRecorder(
	lobbies repository.LobbyRepo,
	games repository.GameRepo,
	rounds repository.RoundRepo,
	choices repository.ChoiceRepo,
	gamePlayers repository.GamePlayerRepo,
	stats repository.StatsRepo,
	lobbyCache cache.LobbyCache,
	wins cache.WinsCache,
) *Recorder {
	r := &Recorder{
		lobbies:     lobbies,
		games:       games,
		rounds:      rounds,
		choices:     choices,
		gamePlayers: gamePlayers,
		stats:       stats,
		lobbyCache:  lobbyCache,
		wins:        wins,
		tasks:       make(chan task, recorderQueueSize),
	}
	for i := 0; i < recorderWorkers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for t := range r.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), recorderTimeout)
		if err := t.fn(ctx); err != nil {
			log.Error().Err(err).Str("task", t.name).Msg("recorder task failed")
		}
		cancel()
	}
}

func (r *Recorder) enqueue(name string, fn func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.tasks <- task{name: name, fn: fn}:
	default:
		log.Warn().Str("task", name).Msg("recorder queue full, dropping task")
	}
}

// Close stops accepting tasks and drains the queue. Tasks enqueued by
// straggling timer callbacks after this point are silently discarded.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.tasks)
		r.wg.Wait()
	})
}

// LobbyCreated writes the durable lobby record and its Redis mirror.
func (r *Recorder) LobbyCreated(lobby *model.Lobby) {
	rec := *lobby
	r.enqueue("lobby_created", func(ctx context.Context) error {
		if err := r.lobbies.Insert(ctx, &rec); err != nil {
			return err
		}
		return r.lobbyCache.SetMeta(ctx, rec.Code, &model.LobbyMeta{
			Name:       rec.Name,
			HostID:     rec.HostID,
			Status:     rec.Status,
			Players:    rec.Players,
			MaxPlayers: rec.MaxPlayers,
			CreatedAt:  rec.CreatedAt,
		})
	})
}

// LobbyStatus updates the lobby status in Mongo and the Redis mirror.
func (r *Recorder) LobbyStatus(code string, status model.LobbyStatus) {
	r.enqueue("lobby_status", func(ctx context.Context) error {
		if err := r.lobbies.UpdateStatus(ctx, code, status); err != nil {
			return err
		}
		return r.lobbyCache.SetStatus(ctx, code, status)
	})
}

// LobbyGameID ties the lobby to its current durable game.
func (r *Recorder) LobbyGameID(code, gameID string) {
	r.enqueue("lobby_game_id", func(ctx context.Context) error {
		return r.lobbies.SetGameID(ctx, code, gameID)
	})
}

// LobbyActivity refreshes lastActivity and the player count.
func (r *Recorder) LobbyActivity(code string, players int) {
	r.enqueue("lobby_activity", func(ctx context.Context) error {
		if err := r.lobbies.TouchActivity(ctx, code); err != nil {
			return err
		}
		if err := r.lobbies.SetPlayerCount(ctx, code, players); err != nil {
			return err
		}
		return r.lobbyCache.Touch(ctx, code)
	})
}

// LobbyReset returns a finished lobby to waiting so the code's slot is
// clean, and drops the Redis mirror.
func (r *Recorder) LobbyReset(code string) {
	r.enqueue("lobby_reset", func(ctx context.Context) error {
		if err := r.lobbies.Reset(ctx, code); err != nil {
			return err
		}
		return r.lobbyCache.Delete(ctx, code)
	})
}

// RoundStarted writes the durable round record.
func (r *Recorder) RoundStarted(gameID string, round int, rules []int) {
	active := append([]int(nil), rules...)
	r.enqueue("round_started", func(ctx context.Context) error {
		return r.rounds.Create(ctx, &model.RoundRecord{
			GameID:      gameID,
			Round:       round,
			ActiveRules: active,
		})
	})
}

// ChoiceSubmitted writes one durable submission.
func (r *Recorder) ChoiceSubmitted(gameID string, round int, userID string, value int) {
	r.enqueue("choice_submitted", func(ctx context.Context) error {
		return r.choices.Insert(ctx, &model.ChoiceRecord{
			GameID: gameID,
			Round:  round,
			UserID: userID,
			Value:  value,
		})
	})
}

// RoundCompleted closes the round record with its outcome.
func (r *Recorder) RoundCompleted(gameID string, round int, average, winningNumber float64, winnerID string, eliminated []string) {
	elim := append([]string(nil), eliminated...)
	r.enqueue("round_completed", func(ctx context.Context) error {
		return r.rounds.Complete(ctx, gameID, round, average, winningNumber, winnerID, elim)
	})
}

// PlayerEliminated upserts a player's per-game record at elimination.
func (r *Recorder) PlayerEliminated(rec model.GamePlayerRecord) {
	r.enqueue("player_eliminated", func(ctx context.Context) error {
		return r.gamePlayers.Upsert(ctx, &rec)
	})
}

// GameFinished marks the game and its lobby finished.
func (r *Recorder) GameFinished(gameID, code, winnerID string, rounds int) {
	r.enqueue("game_finished", func(ctx context.Context) error {
		if err := r.games.Finish(ctx, gameID, winnerID, rounds); err != nil {
			return err
		}
		if err := r.lobbies.UpdateStatus(ctx, code, model.LobbyFinished); err != nil {
			return err
		}
		return r.lobbyCache.SetStatus(ctx, code, model.LobbyFinished)
	})
}

// PlayerResult upserts a player's final per-game record.
func (r *Recorder) PlayerResult(rec model.GamePlayerRecord) {
	r.enqueue("player_result", func(ctx context.Context) error {
		return r.gamePlayers.Upsert(ctx, &rec)
	})
}

// StatsIncrement bumps a user's lifetime stats.
func (r *Recorder) StatsIncrement(userID string, delta model.StatsDelta) {
	r.enqueue("stats_increment", func(ctx context.Context) error {
		return r.stats.Increment(ctx, userID, delta)
	})
}

// WinRecorded bumps the user on the lifetime-wins leaderboard.
func (r *Recorder) WinRecorded(userID string) {
	r.enqueue("win_recorded", func(ctx context.Context) error {
		return r.wins.AddWin(ctx, userID)
	})
}
