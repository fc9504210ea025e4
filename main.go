package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/greenfelt/holdem/config"
	"github.com/greenfelt/holdem/domain"
	"github.com/greenfelt/holdem/economy"
	"github.com/greenfelt/holdem/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.Log)

	gateway, err := economy.NewSQLiteGateway(cfg.Server.EconomyDB)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Server.EconomyDB).Msg("failed to open economy ledger")
	}
	defer gateway.Close()

	registry := domain.NewRegistry(domain.RegistryConfig{
		Log:           log,
		Economy:       gateway,
		TurnTimeout:   cfg.Game.TurnTimeout,
		NextHandDelay: cfg.Game.NextHandDelay,
	})
	defer registry.Shutdown()

	srv := server.New(cfg.Server, log, registry)

	// Tables go up after the dispatcher is registered so no event is
	// emitted into the void.
	registry.Bootstrap(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if cfg.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	} else {
		out = zerolog.New(os.Stderr).Level(level)
	}
	return out.With().Timestamp().Logger()
}
