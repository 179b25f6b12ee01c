package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/model"
)

// LobbyRepo handles MongoDB operations for durable room records.
type LobbyRepo interface {
	Insert(ctx context.Context, lobby *model.Lobby) error
	GetByCode(ctx context.Context, code string) (*model.Lobby, error)
	UpdateStatus(ctx context.Context, code string, status model.LobbyStatus) error
	TouchActivity(ctx context.Context, code string) error
	SetPlayerCount(ctx context.Context, code string, players int) error
	SetGameID(ctx context.Context, code, gameID string) error
	// Reset returns a finished lobby to the waiting state with its game
	// association cleared, freeing the code for a fresh game.
	Reset(ctx context.Context, code string) error
	// CloseStale finishes every waiting lobby idle since before cutoff in
	// one idempotent batch and reports how many it closed.
	CloseStale(ctx context.Context, cutoff time.Time) (int64, error)
	ListActivity(ctx context.Context, limit int) ([]model.LobbyActivity, error)
}

type lobbyRepo struct {
	collection *mongo.Collection
}

// NewLobbyRepo creates a new lobby repository.
func NewLobbyRepo(db *mongo.Database) LobbyRepo {
	return &lobbyRepo{
		collection: db.Collection("lobbies"),
	}
}

func (r *lobbyRepo) Insert(ctx context.Context, lobby *model.Lobby) error {
	if lobby.CreatedAt.IsZero() {
		lobby.CreatedAt = time.Now()
	}
	if lobby.LastActivity.IsZero() {
		lobby.LastActivity = lobby.CreatedAt
	}
	_, err := r.collection.InsertOne(ctx, lobby)
	return err
}

func (r *lobbyRepo) GetByCode(ctx context.Context, code string) (*model.Lobby, error) {
	var lobby model.Lobby
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&lobby)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &lobby, nil
}

func (r *lobbyRepo) UpdateStatus(ctx context.Context, code string, status model.LobbyStatus) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{
		"$set": bson.M{"status": status, "lastActivity": time.Now()},
	})
	return err
}

func (r *lobbyRepo) TouchActivity(ctx context.Context, code string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{
		"$set": bson.M{"lastActivity": time.Now()},
	})
	return err
}

func (r *lobbyRepo) SetPlayerCount(ctx context.Context, code string, players int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{
		"$set": bson.M{"players": players, "lastActivity": time.Now()},
	})
	return err
}

func (r *lobbyRepo) SetGameID(ctx context.Context, code, gameID string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{
		"$set": bson.M{"gameId": gameID, "lastActivity": time.Now()},
	})
	return err
}

func (r *lobbyRepo) Reset(ctx context.Context, code string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"code": code}, bson.M{
		"$set":   bson.M{"status": model.LobbyWaiting, "players": 0, "lastActivity": time.Now()},
		"$unset": bson.M{"gameId": ""},
	})
	return err
}

func (r *lobbyRepo) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":       model.LobbyWaiting,
			"lastActivity": bson.M{"$lt": cutoff},
		},
		bson.M{
			"$set":   bson.M{"status": model.LobbyFinished, "players": 0},
			"$unset": bson.M{"gameId": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *lobbyRepo) ListActivity(ctx context.Context, limit int) ([]model.LobbyActivity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "lastActivity", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"code": 1, "status": 1, "players": 1, "lastActivity": 1})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []model.LobbyActivity
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
