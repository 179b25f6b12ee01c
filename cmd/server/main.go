package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/cache"
	"kingofdiamonds/internal/config"
	"kingofdiamonds/internal/repository"
	"kingofdiamonds/internal/service"
	"kingofdiamonds/internal/transport/rest"
	"kingofdiamonds/internal/transport/ws"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mongoClient.Ping(pingCtx, nil)
	pingCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ping MongoDB")
	}
	log.Info().Msg("Connected to MongoDB")

	db := mongoClient.Database(cfg.Mongo.Database)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping Redis")
	}
	log.Info().Msg("Connected to Redis")

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Repositories
	lobbyRepo := repository.NewLobbyRepo(db)
	gameRepo := repository.NewGameRepo(db)
	roundRepo := repository.NewRoundRepo(db)
	choiceRepo := repository.NewChoiceRepo(db)
	gamePlayerRepo := repository.NewGamePlayerRepo(db)
	statsRepo := repository.NewStatsRepo(db)

	// Caches
	lobbyCache := cache.NewLobbyCache(rdb)
	winsCache := cache.NewWinsCache(rdb)

	// Async persistence behind the live rooms
	recorder := service.NewRecorder(lobbyRepo, gameRepo, roundRepo, choiceRepo, gamePlayerRepo, statsRepo, lobbyCache, winsCache)

	// Services
	registry := service.NewRegistry(cfg.Rooms.MaxRooms, cfg.Rooms.IdleEviction)
	tokens := service.NewTokenService(cfg.Auth.JWTSecret)
	roomSvc := service.NewRoomService(registry, recorder, lobbyCache, tokens)
	presenceSvc := service.NewPresenceService(registry, recorder)
	gameSvc := service.NewGameService(registry, gameRepo, recorder, service.DefaultDelays())
	statsSvc := service.NewStatsService(statsRepo, winsCache)
	reaperSvc := service.NewReaperService(lobbyRepo, cfg.Reaper.Interval, cfg.Reaper.StaleAfter)

	// Inject broadcaster (hub implements service.Broadcaster)
	gameSvc.SetBroadcaster(hub)
	presenceSvc.SetBroadcaster(hub)
	hub.SetDisconnectHandler(presenceSvc.HandleDisconnect)

	// Background sweep of stale lobby records
	reaperCtx, stopReaper := context.WithCancel(ctx)
	go reaperSvc.Run(reaperCtx)

	router := rest.NewRouter(&rest.Container{
		RoomService:     roomSvc,
		PresenceService: presenceSvc,
		GameService:     gameSvc,
		StatsService:    statsSvc,
		ReaperService:   reaperSvc,
		TokenService:    tokens,
		WSHub:           hub,
		CORSOrigins:     cfg.Server.CORSOrigins,
		AdminKey:        cfg.Auth.AdminKey,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopReaper()
	recorder.Close()

	log.Info().Msg("Server exited")
}
