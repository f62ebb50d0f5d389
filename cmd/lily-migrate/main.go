package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/openclaw/lily/internal/config"
	"github.com/openclaw/lily/internal/obslog"
	"github.com/openclaw/lily/internal/storage"
)

func main() {
	var dbPath string
	flag.StringVar(&dbPath, "db-path", "", "path to the SQLite database (overrides LILY_DB_PATH)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := obslog.Setup(cfg.LogLevel)

	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store")
		os.Exit(1)
	}
	defer storage.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}

	logger.Info().Str("db_path", cfg.DBPath).Msg("migrations applied")
}
