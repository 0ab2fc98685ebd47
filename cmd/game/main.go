package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tatianab/dungeon-master/internal/config"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/llm"
	"github.com/tatianab/dungeon-master/internal/logger"
	"github.com/tatianab/dungeon-master/internal/store"
	"github.com/tatianab/dungeon-master/internal/tui"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the game; logs go to a file unless configured otherwise.
	output := cfg.LogOutput
	if output == "" || output == "stdout" || output == "stderr" {
		output = "game.log"
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Output: output})
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var gen engine.Generator
	model := cfg.GeminiModel
	if cfg.ModelProvider == config.ProviderOpenAI {
		model = cfg.OpenAIModel
	}
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.ModelProvider,
		APIKey:   cfg.ModelAPIKey(),
		Model:    model,
		BaseURL:  cfg.OpenAIBaseURL,
	})
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		fmt.Println("No API key configured: playing with the offline storyteller.")
	case err != nil:
		fmt.Printf("Error creating model client: %v\n", err)
		os.Exit(1)
	default:
		defer client.Close()
		gen = client
	}

	eng := engine.NewEngine(gen, engine.NewFallback(cfg.FallbackSeed),
		engine.WithLogger(log),
		engine.WithTimeout(cfg.ModelTimeout),
		engine.WithMaxAttempts(cfg.ModelMaxAttempts),
	)

	driver := cfg.StoreDriver
	if driver != config.StoreNone && cfg.StoreURI() == "" {
		driver = config.StoreMemory
	}
	repo, err := store.Open(ctx, store.Config{Driver: driver, URI: cfg.StoreURI(), Database: cfg.MongoDatabase}, log)
	if err != nil {
		log.Warn("save store unavailable", zap.Error(err))
		repo = nil
	}
	if repo != nil {
		defer repo.Close(context.Background())
	}
	saves := store.NewSaves(repo, log, store.WithListLimit(cfg.SaveListLimit), store.WithStoreTimeout(cfg.StoreTimeout))

	if err := tui.Run(eng, saves); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
