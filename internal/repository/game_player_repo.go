package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/model"
)

// GamePlayerRepo handles MongoDB operations for per-game player results.
type GamePlayerRepo interface {
	// Upsert writes a player's result for one game, keyed by
	// (gameId, userId), so elimination updates and the final result land
	// on the same document.
	Upsert(ctx context.Context, rec *model.GamePlayerRecord) error
	GetByGame(ctx context.Context, gameID string) ([]*model.GamePlayerRecord, error)
}

type gamePlayerRepo struct {
	collection *mongo.Collection
}

// NewGamePlayerRepo creates a new game-player repository.
func NewGamePlayerRepo(db *mongo.Database) GamePlayerRepo {
	return &gamePlayerRepo{
		collection: db.Collection("game_players"),
	}
}

func (r *gamePlayerRepo) Upsert(ctx context.Context, rec *model.GamePlayerRecord) error {
	filter := bson.M{"gameId": rec.GameID, "userId": rec.UserID}
	update := bson.M{"$set": rec}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *gamePlayerRepo) GetByGame(ctx context.Context, gameID string) ([]*model.GamePlayerRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"gameId": gameID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []*model.GamePlayerRecord
	if err = cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
