package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/openclaw/lily/internal/config"
	"github.com/openclaw/lily/internal/embeddings"
	"github.com/openclaw/lily/internal/extraction"
	"github.com/openclaw/lily/internal/memory"
	"github.com/openclaw/lily/internal/obslog"
	"github.com/openclaw/lily/internal/pipeline"
	"github.com/openclaw/lily/internal/scheduler"
	"github.com/openclaw/lily/internal/security"
	"github.com/openclaw/lily/internal/storage"
)

// lily-scheduler opens the store, runs exactly one background tick, and
// exits. It is meant to be invoked by the platform's own cron facility
// once a minute; it holds no long-running goroutine of its own.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := obslog.Setup(cfg.LogLevel)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open store")
		os.Exit(1)
	}
	defer storage.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}

	entities, err := store.AllEntities(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load entities")
		os.Exit(1)
	}
	stored := make([]string, 0, len(entities))
	for _, e := range entities {
		stored = append(stored, e.Name)
	}
	registry := extraction.NewRegistry(cfg.ProtectedEntities, stored)
	checker := security.NewChecker(cfg.ProtectedEntities, store)

	var embedSvc *embeddings.Service
	if cfg.VectorSearch {
		client := embeddings.NewClient(cfg.OllamaURL, cfg.EmbeddingModel, http.DefaultClient)
		embedSvc = embeddings.NewService(client, store)
	}

	memEngine := memory.NewEngine(store, registry, checker, embedSvc, memory.CapturePolicy(cfg.CapturePolicy))
	pipeEngine := pipeline.NewEngine(store)

	local := scheduler.NewLocalDispatcher(cfg.OllamaURL, "deepseek", http.DefaultClient)
	router := &scheduler.TierRouter{
		Local:    local,
		Remote:   scheduler.NewRemoteDispatcher("", "gemini-flash", cfg.RemoteAPIKey, http.DefaultClient),
		Fallback: local,
	}
	sched := scheduler.New(store, pipeEngine, memEngine, router, logger)

	if err := sched.Tick(ctx); err != nil {
		logger.Error().Err(err).Msg("tick failed")
		os.Exit(1)
	}
	logger.Info().Msg("tick complete")
}
