package main

import (
	"context"
	"errors"
	"flag"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"beautybot/internal/config"
	"beautybot/internal/domain"
	"beautybot/internal/embedding/hashing"
	"beautybot/internal/embedding/openai"
	"beautybot/internal/service"
	"beautybot/internal/tui"
	"beautybot/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var topK int
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.IntVar(&topK, "k", 5, "Number of products per search")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create embedding engine")
	}

	retrieval := service.NewRetrievalService(service.Config{
		CleanedCatalogPath: cfg.Catalog.CleanedPath,
		RawCatalogPath:     cfg.Catalog.RawPath,
	}, embedder, vectorstore.NewCache(cfg.Cache.Dir), nil)

	// The console has no general-knowledge fallback, so retrieval failure
	// is fatal here.
	if err := retrieval.Initialize(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to initialize retrieval")
	}

	m := tui.New(retrieval, topK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logrus.Fatal(err)
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return hashing.NewEncoder(cfg.Embedder.Dimension), nil
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, errors.New("unknown embedder: " + cfg.Embedder.Type)
	}
}
