package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"kingofdiamonds/internal/model"
)

// GameRepo handles MongoDB operations for durable game records.
type GameRepo interface {
	// Create inserts a playing game record and returns its id. This is
	// the one durable write allowed to fail a gameplay operation: a game
	// does not start without its record.
	Create(ctx context.Context, roomCode string) (string, error)
	GetByID(ctx context.Context, id string) (*model.GameRecord, error)
	Finish(ctx context.Context, id, winnerID string, rounds int) error
}

type gameRepo struct {
	collection *mongo.Collection
}

// NewGameRepo creates a new game repository.
func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		collection: db.Collection("games"),
	}
}

func (r *gameRepo) Create(ctx context.Context, roomCode string) (string, error) {
	rec := &model.GameRecord{
		RoomCode:  roomCode,
		Status:    model.GamePlaying,
		StartedAt: time.Now(),
	}
	result, err := r.collection.InsertOne(ctx, rec)
	if err != nil {
		return "", err
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	return oid.Hex(), nil
}

func (r *gameRepo) GetByID(ctx context.Context, id string) (*model.GameRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var rec model.GameRecord
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	rec.ID = id
	return &rec, nil
}

func (r *gameRepo) Finish(ctx context.Context, id, winnerID string, rounds int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"status":     model.GameFinished,
			"winnerId":   winnerID,
			"rounds":     rounds,
			"finishedAt": now,
		},
	})
	return err
}
