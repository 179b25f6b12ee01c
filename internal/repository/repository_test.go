// Package repository tests run against a real MongoDB via
// testcontainers-go and skip when Docker is unavailable.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/model"
)

// checkDockerAvailable checks if Docker is available and running.
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB starts a MongoDB container and returns a database handle.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx, nil))

	cleanup := func() {
		_ = client.Disconnect(ctx)
		_ = container.Terminate(ctx)
	}

	return client.Database("kingofdiamonds_test"), cleanup
}

func insertLobby(t *testing.T, repo LobbyRepo, code string, status model.LobbyStatus, lastActivity time.Time) {
	t.Helper()
	err := repo.Insert(context.Background(), &model.Lobby{
		Code:          code,
		Name:          "room " + code,
		HostID:        "host_" + code,
		Status:        status,
		Players:       2,
		MaxPlayers:    8,
		RoundDuration: 60,
		CreatedAt:     lastActivity,
		LastActivity:  lastActivity,
	})
	require.NoError(t, err)
}

func TestLobbyCloseStale(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewLobbyRepo(db)

	now := time.Now()
	insertLobby(t, repo, "OLD1", model.LobbyWaiting, now.Add(-30*time.Minute))
	insertLobby(t, repo, "OLD2", model.LobbyWaiting, now.Add(-20*time.Minute))
	insertLobby(t, repo, "FRESH", model.LobbyWaiting, now.Add(-1*time.Minute))
	// Playing lobbies are never swept, no matter how quiet.
	insertLobby(t, repo, "LIVE", model.LobbyPlaying, now.Add(-45*time.Minute))

	closed, err := repo.CloseStale(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), closed)

	old1, err := repo.GetByCode(ctx, "OLD1")
	require.NoError(t, err)
	require.NotNil(t, old1)
	assert.Equal(t, model.LobbyFinished, old1.Status)
	assert.Zero(t, old1.Players)

	fresh, err := repo.GetByCode(ctx, "FRESH")
	require.NoError(t, err)
	assert.Equal(t, model.LobbyWaiting, fresh.Status)

	live, err := repo.GetByCode(ctx, "LIVE")
	require.NoError(t, err)
	assert.Equal(t, model.LobbyPlaying, live.Status)

	// Idempotent: a second sweep with the same cutoff closes nothing.
	closed, err = repo.CloseStale(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestLobbyResetClearsGame(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewLobbyRepo(db)

	insertLobby(t, repo, "ROOM1", model.LobbyWaiting, time.Now())
	require.NoError(t, repo.SetGameID(ctx, "ROOM1", "g123"))
	require.NoError(t, repo.UpdateStatus(ctx, "ROOM1", model.LobbyFinished))

	require.NoError(t, repo.Reset(ctx, "ROOM1"))

	lobby, err := repo.GetByCode(ctx, "ROOM1")
	require.NoError(t, err)
	assert.Equal(t, model.LobbyWaiting, lobby.Status)
	assert.Empty(t, lobby.GameID)
	assert.Zero(t, lobby.Players)
}

func TestLobbyGetByCodeMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewLobbyRepo(db)
	lobby, err := repo.GetByCode(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, lobby)
}

func TestStatsIncrementAccumulates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewStatsRepo(db)

	// First game upserts the document.
	err := repo.Increment(ctx, "u1", model.StatsDelta{GamesWon: 1, RoundsPlayed: 5, RoundsSurvived: 5})
	require.NoError(t, err)

	// Second game accumulates on top.
	err = repo.Increment(ctx, "u1", model.StatsDelta{GamesWon: 0, RoundsPlayed: 3, RoundsSurvived: 1})
	require.NoError(t, err)

	stats, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.GamesPlayed)
	assert.Equal(t, 1, stats.GamesWon)
	assert.Equal(t, 8, stats.RoundsPlayed)
	assert.Equal(t, 6, stats.RoundsSurvived)

	missing, err := repo.GetByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGameCreateAndFinish(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGameRepo(db)

	id, err := repo.Create(ctx, "ROOM1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, repo.Finish(ctx, id, "u1", 7))

	rec, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.GameFinished, rec.Status)
	assert.Equal(t, "u1", rec.WinnerID)
	assert.Equal(t, 7, rec.Rounds)
	require.NotNil(t, rec.FinishedAt)
}

func TestGamePlayerUpsertOverwrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGamePlayerRepo(db)

	// Mid-game elimination write.
	err := repo.Upsert(ctx, &model.GamePlayerRecord{
		GameID: "g1", UserID: "u1", Name: "alice",
		Score: -10, Eliminated: true, EliminatedRound: 4,
	})
	require.NoError(t, err)

	// Final result lands on the same document.
	err = repo.Upsert(ctx, &model.GamePlayerRecord{
		GameID: "g1", UserID: "u1", Name: "alice",
		Score: -10, Eliminated: true, EliminatedRound: 4, Won: false,
	})
	require.NoError(t, err)

	recs, err := repo.GetByGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Eliminated)
	assert.Equal(t, 4, recs[0].EliminatedRound)
}
