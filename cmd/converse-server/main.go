// Package main provides the HTTP server for Converse.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/converse-go/internal/chat"
	"github.com/raphaelgruber/converse-go/internal/config"
	"github.com/raphaelgruber/converse-go/internal/db"
	"github.com/raphaelgruber/converse-go/internal/index"
	"github.com/raphaelgruber/converse-go/internal/llm"
	"github.com/raphaelgruber/converse-go/internal/metrics"
	"github.com/raphaelgruber/converse-go/internal/server"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLogger := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLogger(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("starting converse-server",
		"port", cfg.ServerPort,
		"retrieval", cfg.RetrievalEnabled,
		"summarization", cfg.SummarizationEnabled,
		"model", cfg.ModelEnabled)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		cancel()
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("CONVERSE_WIPE_DB") == "true" {
		if err := store.WipeData(ctx); err != nil {
			cancel()
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		logger.Warn("wiped all turn data")
	}
	cancel()
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Disabled stages stay nil; the orchestrator degrades around them.
	var vectorIndex chat.VectorIndex
	if cfg.RetrievalEnabled {
		embedder, err := llm.NewEmbedder(cfg, logger)
		if err != nil {
			logger.Error("failed to create embedder", "error", err)
			os.Exit(1)
		}
		idx, err := index.New(index.Config{
			Host:   cfg.PineconeHost,
			APIKey: cfg.PineconeAPIKey,
		}, embedder, logger)
		if err != nil {
			logger.Error("failed to create vector index", "error", err)
			os.Exit(1)
		}
		vectorIndex = idx
	}

	var (
		model      chat.Model
		summarizer chat.Summarizer
	)
	if cfg.ModelEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		m, err := llm.NewModel(ctx, cfg, logger)
		cancel()
		if err != nil {
			logger.Error("failed to create model", "error", err)
			os.Exit(1)
		}
		model = m
		if cfg.SummarizationEnabled {
			summarizer = llm.NewSummarizer(m, logger)
		}
	}

	collector := metrics.NewCollector()
	orchestrator := chat.NewOrchestrator(
		vectorIndex, store, summarizer, model,
		chat.OptionsFromConfig(cfg), collector, logger,
	)

	srv := server.New(orchestrator, store, collector, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(runCtx, cfg.ServerPort); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
