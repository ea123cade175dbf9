package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ksInsandji/pensezy-edition/internal/config"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/logging"
	"github.com/ksInsandji/pensezy-edition/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "pensezy",
		Short:         "Pensezy back-offices: marketplace admin and gestion des mémoires",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), juryCmd(), adminCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is what every subcommand starts from: configuration, logger, Sentry and the database.
type env struct {
	cfg   *config.Config
	log   *logging.Log
	db    *sql.DB
	close func()
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		flush()
		lg.Closer()
		return nil, err
	}
	return &env{
		cfg: cfg,
		log: lg,
		db:  database,
		close: func() {
			_ = database.Close()
			flush()
			lg.Closer()
		},
	}, nil
}
