package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"beautybot/internal/chat"
	"beautybot/internal/completion"
	"beautybot/internal/config"
	"beautybot/internal/domain"
	"beautybot/internal/embedding/hashing"
	"beautybot/internal/embedding/openai"
	"beautybot/internal/server"
	"beautybot/internal/service"
	"beautybot/internal/vectorstore"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, address string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.StringVar(&address, "address", "", "Listen address (overrides config)")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if address != "" {
		cfg.Server.Address = address
	}

	// A failed embedding engine disables retrieval but not the rest of the
	// bot: chat degrades to general-knowledge answers.
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		log.WithError(err).Warn("embedding engine unavailable")
		embedder = nil
	}

	retrieval := service.NewRetrievalService(service.Config{
		CleanedCatalogPath: cfg.Catalog.CleanedPath,
		RawCatalogPath:     cfg.Catalog.RawPath,
	}, embedder, vectorstore.NewCache(cfg.Cache.Dir), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Retrieval failure degrades the bot to general-knowledge answers; the
	// server still comes up.
	if err := retrieval.Initialize(ctx); err != nil {
		log.WithError(err).Warn("starting without product retrieval")
	}

	var completer domain.Completer
	if cfg.Completer.Type == "openai" {
		client, err := completion.NewClient(completion.Config{
			BaseURL:   cfg.Completer.OpenAI.BaseURL,
			APIKeyEnv: cfg.Completer.OpenAI.APIKeyEnv,
			Model:     cfg.Completer.OpenAI.Model,
		})
		if err != nil {
			log.WithError(err).Warn("completer unavailable, chat disabled")
		} else {
			completer = client
		}
	}

	chatService := chat.New(retrieval, completer, chat.Options{
		SystemPrompt: cfg.Chat.SystemPrompt,
		TopK:         cfg.Retrieval.TopK,
		MaxMessages:  cfg.Chat.MaxHistoryMessages,
	}, log)

	srv := server.New(server.Config{
		DefaultTopK:    cfg.Retrieval.TopK,
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, retrieval, chatService, log)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Handler(),
	}

	go func() {
		log.WithField("address", cfg.Server.Address).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
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
