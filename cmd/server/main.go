package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tatianab/dungeon-master/internal/config"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/llm"
	"github.com/tatianab/dungeon-master/internal/logger"
	"github.com/tatianab/dungeon-master/internal/server"
	"github.com/tatianab/dungeon-master/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Output: cfg.LogOutput})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gen engine.Generator
	client, err := llm.New(ctx, llm.Config{
		Provider:    cfg.ModelProvider,
		APIKey:      cfg.ModelAPIKey(),
		Model:       modelName(cfg),
		BaseURL:     cfg.OpenAIBaseURL,
		CountTokens: true,
	})
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Warn("No model API key configured; all outcomes will use the fallback", zap.String("provider", cfg.ModelProvider))
	case err != nil:
		log.Fatal("Failed to create model client", zap.Error(err))
	default:
		defer client.Close()
		gen = client
		log.Info("Model client ready", zap.String("provider", cfg.ModelProvider), zap.String("model", modelName(cfg)))
	}

	eng := engine.NewEngine(gen, engine.NewFallback(cfg.FallbackSeed),
		engine.WithLogger(log.Named("engine")),
		engine.WithTimeout(cfg.ModelTimeout),
		engine.WithMaxAttempts(cfg.ModelMaxAttempts),
	)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	repo, err := store.Open(connectCtx, store.Config{
		Driver:   cfg.StoreDriver,
		URI:      cfg.StoreURI(),
		Database: cfg.MongoDatabase,
	}, log)
	cancel()
	if err != nil {
		// Saves answer StoreUnavailable; story and combat keep working.
		log.Error("Failed to connect save store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		repo = nil
	}
	if repo != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Error("Error closing save store", zap.Error(err))
			}
		}()
		log.Info("Save store connected", zap.String("driver", cfg.StoreDriver))
	}

	saves := store.NewSaves(repo, log.Named("store"),
		store.WithListLimit(cfg.SaveListLimit),
		store.WithStoreTimeout(cfg.StoreTimeout),
	)

	gin.SetMode(gin.ReleaseMode)
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	}
	router := server.New(eng, saves, log).Router(server.Config{CORSOrigins: cfg.CORSOrigins})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ModelTimeout*time.Duration(cfg.ModelMaxAttempts) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

func modelName(cfg *config.Config) string {
	if cfg.ModelProvider == config.ProviderOpenAI {
		return cfg.OpenAIModel
	}
	return cfg.GeminiModel
}
