// Package file loads and persists fildex configuration as a TOML file.
// Configuration lives at ~/.fildex/config.toml unless overridden; a
// missing file yields the built-in defaults.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Environment overrides for key material, so keys can stay out of the
// config file entirely.
const (
	// EnvAPIKey overrides the configured PageIndex API key.
	EnvAPIKey = "PAGEINDEX_API_KEY"

	// EnvOpenAIKey overrides the configured OpenAI embedding API key.
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// Config is the full fildex configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Embedding EmbeddingConfig `toml:"embedding"`
	PageIndex PageIndexConfig `toml:"pageindex"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retry     RetryConfig     `toml:"retry"`
}

// StorageConfig locates the local corpus.
type StorageConfig struct {
	// DataDir holds the SQLite database and the upload directory.
	// Empty means ~/.fildex/data.
	DataDir string `toml:"data_dir"`
}

// EmbeddingConfig configures the embedding backend. Provider selects
// between "ollama" (default) and "openai".
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"`
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Dimensions        int     `toml:"dimensions"`
	BatchSize         int     `toml:"batch_size"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// PageIndexConfig configures the document structuring service.
type PageIndexConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	Model               string `toml:"model"`
	TOCCheckPages       int    `toml:"toc_check_pages"`
	MaxPagesPerNode     int    `toml:"max_pages_per_node"`
	MaxTokensPerNode    int    `toml:"max_tokens_per_node"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `toml:"poll_timeout_seconds"`
}

// ChunkingConfig configures token-window chunking.
type ChunkingConfig struct {
	MaxTokens int `toml:"max_tokens"`
	Overlap   int `toml:"overlap"`
	MinTokens int `toml:"min_tokens"`
}

// RetryConfig configures retries of transient external failures.
type RetryConfig struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
}

// DefaultConfig returns the built-in defaults. Adapter-level defaults
// (URLs, models, limits) are deliberately left zero here so each
// adapter applies its own; only pipeline-level knobs get values.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxTokens: 512,
			Overlap:   64,
			MinTokens: 32,
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseDelaySeconds: 1,
		},
	}
}

// DefaultPath returns ~/.fildex/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".fildex", "config.toml"), nil
}

// Load reads the config at path, layered over the defaults. A missing
// file is not an error. If path is empty the default location is used.
// PAGEINDEX_API_KEY in the environment overrides the file's API key.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.PageIndex.APIKey = key
	}
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		cfg.Embedding.APIKey = key
	}

	return cfg, nil
}

// Save writes cfg to path with restricted permissions; the file holds
// an API key. If path is empty the default location is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
