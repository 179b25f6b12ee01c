package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/model"
)

// StatsRepo handles MongoDB operations for lifetime user statistics.
type StatsRepo interface {
	// Increment applies one game's outcome atomically: gamesPlayed always
	// goes up by one, the delta carries the rest. Upserts on first game.
	Increment(ctx context.Context, userID string, delta model.StatsDelta) error
	GetByUser(ctx context.Context, userID string) (*model.UserStats, error)
}

type statsRepo struct {
	collection *mongo.Collection
}

// NewStatsRepo creates a new stats repository.
func NewStatsRepo(db *mongo.Database) StatsRepo {
	return &statsRepo{
		collection: db.Collection("user_stats"),
	}
}

func (r *statsRepo) Increment(ctx context.Context, userID string, delta model.StatsDelta) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$inc": bson.M{
				"gamesPlayed":    1,
				"gamesWon":       delta.GamesWon,
				"roundsPlayed":   delta.RoundsPlayed,
				"roundsSurvived": delta.RoundsSurvived,
			},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *statsRepo) GetByUser(ctx context.Context, userID string) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}
