package service

import (
	"context"
	"fmt"

	"kingofdiamonds/internal/cache"
	"kingofdiamonds/internal/model"
	"kingofdiamonds/internal/repository"
)

const defaultLeaderboardSize = 10

// StatsService serves the lifetime-wins leaderboard and per-user stats.
type StatsService struct {
	stats repository.StatsRepo
	wins  cache.WinsCache
}

// NewStatsService creates a new stats service
func NewStatsService(stats repository.StatsRepo, wins cache.WinsCache) *StatsService {
	return &StatsService{
		stats: stats,
		wins:  wins,
	}
}

// Leaderboard returns the top lifetime winners.
func (s *StatsService) Leaderboard(ctx context.Context, top int) ([]cache.WinEntry, error) {
	if top <= 0 || top > 100 {
		top = defaultLeaderboardSize
	}
	entries, err := s.wins.Top(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}

// UserStats returns a user's durable lifetime stats plus their rank on
// the wins leaderboard (-1 when unranked). Nil stats means unknown user.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*model.UserStats, int64, error) {
	stats, err := s.stats.GetByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user stats: %w", err)
	}
	if stats == nil {
		return nil, 0, nil
	}
	rank, err := s.wins.Rank(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get leaderboard rank: %w", err)
	}
	return stats, rank, nil
}
