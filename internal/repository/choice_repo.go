package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"kingofdiamonds/internal/model"
)

// ChoiceRepo handles MongoDB operations for per-round submissions.
type ChoiceRepo interface {
	Insert(ctx context.Context, choice *model.ChoiceRecord) error
	GetByRound(ctx context.Context, gameID string, round int) ([]*model.ChoiceRecord, error)
}

type choiceRepo struct {
	collection *mongo.Collection
}

// NewChoiceRepo creates a new choice repository.
func NewChoiceRepo(db *mongo.Database) ChoiceRepo {
	return &choiceRepo{
		collection: db.Collection("choices"),
	}
}

func (r *choiceRepo) Insert(ctx context.Context, choice *model.ChoiceRecord) error {
	if choice.SubmittedAt.IsZero() {
		choice.SubmittedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, choice)
	return err
}

func (r *choiceRepo) GetByRound(ctx context.Context, gameID string, round int) ([]*model.ChoiceRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"gameId": gameID, "round": round})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var choices []*model.ChoiceRecord
	if err = cursor.All(ctx, &choices); err != nil {
		return nil, err
	}
	return choices, nil
}
