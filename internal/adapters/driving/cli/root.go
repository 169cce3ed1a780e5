// Package cli implements the fildex command-line interface.
package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/fildex-labs/fildex-cli/internal/adapters/driven/config/file"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/embedding/ollama"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/embedding/openai"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/filevault"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/pdfinfo"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/storage/sqlite"
	"github.com/fildex-labs/fildex-cli/internal/adapters/driven/treegen/pageindex"
	"github.com/fildex-labs/fildex-cli/internal/chunking"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driven"
	"github.com/fildex-labs/fildex-cli/internal/core/ports/driving"
	"github.com/fildex-labs/fildex-cli/internal/core/services"
	"github.com/fildex-labs/fildex-cli/internal/logger"
	"github.com/fildex-labs/fildex-cli/internal/retry"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Wired by ensureServices; tests inject
// fakes and set wired directly.
var (
	ingestService driving.Ingestor
	corpusService driving.CorpusManager
	remoteService driving.RemoteIngestor
	treeGen       driven.TreeGenerator
	embedder      driven.EmbeddingService

	wired bool
)

// Persistent flags.
var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "fildex",
	Short: "Ingest financial filings into a searchable local corpus",
	Long: `fildex ingests PDF financial filings (annual reports, 20-F, 10-K)
into a local SQLite corpus: each document is structured into a section
tree, chunked, embedded, and stored ready for retrieval.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.fildex/config.toml)")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// ensureServices wires adapters and services from the config file.
// Commands that touch the corpus call this first; version does not.
func ensureServices() error {
	if wired {
		return nil
	}

	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening corpus database: %w", err)
	}

	vault, err := filevault.NewVault(filepath.Join(filepath.Dir(store.Path()), "uploads"))
	if err != nil {
		return err
	}

	chunker, err := chunking.New()
	if err != nil {
		return fmt.Errorf("loading tokenizer: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelaySeconds) * time.Second,
	}

	embedder, err = buildEmbedder(cfg, policy)
	if err != nil {
		return err
	}

	client := pageindex.NewClient(pageindex.Config{
		BaseURL: cfg.PageIndex.BaseURL,
		APIKey:  cfg.PageIndex.APIKey,
		Retry:   policy,
	})
	treeGen = pageindex.NewTreeGenerator(client, pageindex.Options{
		Model:            cfg.PageIndex.Model,
		TOCCheckPages:    cfg.PageIndex.TOCCheckPages,
		MaxPagesPerNode:  cfg.PageIndex.MaxPagesPerNode,
		MaxTokensPerNode: cfg.PageIndex.MaxTokensPerNode,
		PollInterval:     time.Duration(cfg.PageIndex.PollIntervalSeconds) * time.Second,
		PollTimeout:      time.Duration(cfg.PageIndex.PollTimeoutSeconds) * time.Second,
	})

	ingestService = services.NewIngestOrchestrator(
		store, treeGen, embedder, chunker, vault, pdfinfo.NewCounter(),
		services.ChunkingParams{
			MaxTokens: cfg.Chunking.MaxTokens,
			Overlap:   cfg.Chunking.Overlap,
			MinTokens: cfg.Chunking.MinTokens,
		},
	)
	corpusService = services.NewCorpusService(store, vault)
	remoteService = services.NewRemoteService(client, store)

	wired = true
	return nil
}

// buildEmbedder selects the embedding backend from config.
func buildEmbedder(cfg *configfile.Config, policy retry.Policy) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			Timeout:           time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
			BatchSize:         cfg.Embedding.BatchSize,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Retry:             policy,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.Embedding.APIKey,
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			Timeout:           time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
			BatchSize:         cfg.Embedding.BatchSize,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Retry:             policy,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want ollama or openai)", cfg.Embedding.Provider)
	}
}
