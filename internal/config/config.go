package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogConfig locates the tabular product catalog on disk.
type CatalogConfig struct {
	CleanedPath string `yaml:"cleaned_path"`
	RawPath     string `yaml:"raw_path"`
}

// CacheConfig locates the persisted retrieval artifacts.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the embedding engine.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenAICompleterConfig holds configuration for the chat-completions client.
type OpenAICompleterConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// CompleterConfig selects and configures the language-model completer.
// Type "none" disables chat while leaving retrieval endpoints up.
type CompleterConfig struct {
	Type   string                 `yaml:"type"`
	OpenAI *OpenAICompleterConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig tunes query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ChatConfig tunes prompt assembly and history retention.
type ChatConfig struct {
	SystemPrompt       string `yaml:"system_prompt"`
	MaxHistoryMessages int    `yaml:"max_history_messages"`
}

// ServerConfig configures the HTTP channel.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	RateLimit      int      `yaml:"rate_limit"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Completer CompleterConfig `yaml:"completer"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chat      ChatConfig      `yaml:"chat"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path, expanding ${VAR} references
// from the environment. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Catalog.CleanedPath == "" {
		cfg.Catalog.CleanedPath = filepath.Join("dataset", "clean_product_info.csv")
	}
	if cfg.Catalog.RawPath == "" {
		cfg.Catalog.RawPath = filepath.Join("dataset", "product_info.csv")
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "cache"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Completer.Type == "" {
		cfg.Completer.Type = "none"
	}
	if cfg.Completer.Type == "openai" {
		if cfg.Completer.OpenAI == nil {
			cfg.Completer.OpenAI = &OpenAICompleterConfig{}
		}
		if cfg.Completer.OpenAI.APIKeyEnv == "" {
			cfg.Completer.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Completer.OpenAI.Model == "" {
			cfg.Completer.OpenAI.Model = "gpt-4o-mini"
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Chat.MaxHistoryMessages == 0 {
		cfg.Chat.MaxHistoryMessages = 20
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
}
