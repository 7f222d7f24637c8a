package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/codebyamos/triviaboard/internal/cache"
	"github.com/codebyamos/triviaboard/internal/config"
	"github.com/codebyamos/triviaboard/internal/database"
	"github.com/codebyamos/triviaboard/internal/media"
	"github.com/codebyamos/triviaboard/internal/migrations"
	"github.com/codebyamos/triviaboard/internal/server"
	"github.com/codebyamos/triviaboard/internal/session"
	"github.com/codebyamos/triviaboard/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Local snapshot cache + media bucket ---
	snapshots, err := cache.New(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening snapshot cache: %w", err)
	}
	bucket, err := media.New(cfg.MediaDir, logger)
	if err != nil {
		return fmt.Errorf("opening media bucket: %w", err)
	}

	// --- Game state and orchestrators ---
	games := store.NewSQLiteStore(db, logger, bucket)
	state := session.NewState(snapshots, logger)
	saver := session.NewSaver(state, games, snapshots, logger, cfg.SaveCheckEvery, cfg.SaveMinInterval)
	loader := session.NewLoader(state, games, snapshots, logger)

	source, err := loader.Hydrate(ctx, "")
	if err != nil {
		return fmt.Errorf("hydrating game state: %w", err)
	}
	logger.Info("game state hydrated", "source", source)

	// --- HTTP Server ---
	app, err := server.NewApp(logger, cfg.Passcode)
	if err != nil {
		return err
	}
	app.DB = db
	app.Store = games
	app.State = state
	app.Saver = saver
	app.Loader = loader
	app.Cache = snapshots
	app.Media = bucket
	app.SPADir = cfg.SPADir
	app.RecentGamesLimit = cfg.RecentGamesLimit

	if cfg.SeedDemo {
		server.SeedDemo(logger, state)
	}

	srv := server.New(cfg.HTTPAddr, app)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return saver.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
