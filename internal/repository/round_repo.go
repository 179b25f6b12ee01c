package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"kingofdiamonds/internal/model"
)

// RoundRepo handles MongoDB operations for durable round records.
type RoundRepo interface {
	Create(ctx context.Context, round *model.RoundRecord) error
	Complete(ctx context.Context, gameID string, round int, average, winningNumber float64, winnerID string, eliminated []string) error
	GetByGame(ctx context.Context, gameID string) ([]*model.RoundRecord, error)
}

type roundRepo struct {
	collection *mongo.Collection
}

// NewRoundRepo creates a new round repository.
func NewRoundRepo(db *mongo.Database) RoundRepo {
	return &roundRepo{
		collection: db.Collection("rounds"),
	}
}

func (r *roundRepo) Create(ctx context.Context, round *model.RoundRecord) error {
	if round.StartedAt.IsZero() {
		round.StartedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, round)
	return err
}

func (r *roundRepo) Complete(ctx context.Context, gameID string, round int, average, winningNumber float64, winnerID string, eliminated []string) error {
	now := time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"gameId": gameID, "round": round},
		bson.M{"$set": bson.M{
			"average":       average,
			"winningNumber": winningNumber,
			"winnerId":      winnerID,
			"eliminated":    eliminated,
			"completedAt":   now,
		}},
	)
	return err
}

func (r *roundRepo) GetByGame(ctx context.Context, gameID string) ([]*model.RoundRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"gameId": gameID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rounds []*model.RoundRecord
	if err = cursor.All(ctx, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}
