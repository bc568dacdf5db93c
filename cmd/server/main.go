package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/amplec/amplec-core/internal/chatter"
	"github.com/amplec/amplec-core/internal/config"
	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/preprocess"
	"github.com/amplec/amplec-core/internal/server"
	"github.com/amplec/amplec-core/internal/store"
	"github.com/amplec/amplec-core/internal/submission"
	"github.com/amplec/amplec-core/internal/triage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	kartonClient, err := karton.NewClient(cfg.Karton.ResultAPIURL, cfg.Karton.Timeout)
	if err != nil {
		log.Fatalf("failed to create karton client: %v", err)
	}

	var triageClient *triage.Client
	if cfg.Triage.APIKey != "" {
		triageClient = triage.NewClient(cfg.Triage.URL, cfg.Triage.APIKey, cfg.Triage.Timeout)
	} else {
		slog.Warn("TRIAGE_API_KEY is not set, triage enrichment disabled")
	}

	enricher, err := preprocess.NewEnricher(cfg.Enrich.TTPContextPath)
	if err != nil {
		slog.Warn("TTP context unavailable, enrichment disabled", "path", cfg.Enrich.TTPContextPath, "error", err)
		enricher = nil
	}

	submissions := submission.New(
		kartonClient,
		store.New(cfg.Store.URL),
		preprocess.NewKartonPreprocessor(triageClient),
		preprocess.NewNaturalizer(),
		enricher,
	)

	chat := chatter.New(cfg, submissions)

	srv := server.New(*cfg, submissions, chat)
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
