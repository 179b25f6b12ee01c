package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/repository"
)

// ReaperService closes durable lobbies that went quiet while waiting.
// It works purely against the store and never touches the in-memory
// registry; live rooms have their own eviction and cleanup paths, so
// the two can run in the same process or in separate ones.
type ReaperService struct {
	lobbies    repository.LobbyRepo
	interval   time.Duration
	staleAfter time.Duration
}

// NewReaperService creates a new reaper service
func NewReaperService(lobbies repository.LobbyRepo, interval, staleAfter time.Duration) *ReaperService {
	return &ReaperService{
		lobbies:    lobbies,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *ReaperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("reaper sweep failed")
			}
		}
	}
}

// RunOnce closes every waiting lobby whose lastActivity is older than
// the stale threshold. One idempotent batch update; returns the count.
func (s *ReaperService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	closed, err := s.lobbies.CloseStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to close stale lobbies: %w", err)
	}
	if closed > 0 {
		log.Info().Int64("closed", closed).Time("cutoff", cutoff).Msg("reaper closed stale lobbies")
	}
	return closed, nil
}

// Activity lists recent lobbies for operational visibility.
func (s *ReaperService) Activity(ctx context.Context, limit int) ([]model.LobbyActivity, error) {
	return s.lobbies.ListActivity(ctx, limit)
}
