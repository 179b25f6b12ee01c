package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kingofdiamonds/internal/config"
	"kingofdiamonds/internal/repository"
	"kingofdiamonds/internal/service"
)

// Out-of-process lobby sweep. The server runs its own reaper; this binary
// covers deployments that prefer a cron job or need a manual pass.
func main() {
	loop := flag.Bool("loop", false, "sweep on the configured interval instead of exiting after one pass")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

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

	lobbyRepo := repository.NewLobbyRepo(mongoClient.Database(cfg.Mongo.Database))
	reaper := service.NewReaperService(lobbyRepo, cfg.Reaper.Interval, cfg.Reaper.StaleAfter)

	if !*loop {
		closed, err := reaper.RunOnce(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Sweep failed")
		}
		log.Info().Int64("closed", closed).Msg("Sweep complete")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("Stopping reaper")
		cancel()
	}()
	reaper.Run(runCtx)
}
