// Package cli provides the cobra command surface. Commands talk to the core
// exclusively through driving ports held in package-level variables, which
// tests swap for mocks.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	chatfile "github.com/custodia-labs/recall-cli/internal/adapters/driven/chat/file"
	configfile "github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/keywords/yake"
	promptfile "github.com/custodia-labs/recall-cli/internal/adapters/driven/prompt/file"
	rerankapi "github.com/custodia-labs/recall-cli/internal/adapters/driven/rerank/httpapi"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/storage/sqlite"
	vectorapi "github.com/custodia-labs/recall-cli/internal/adapters/driven/vector/httpapi"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/core/services"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired at startup; nil until initServices runs (tests set them
// directly).
var (
	injector          driving.Injector
	vectorizer        driving.Vectorizer
	settingsService   driving.SettingsService
	collectionService driving.CollectionService
)

// Root flags.
var (
	verbose    bool
	configDir  string
	dataDir    string
	chatPath   string
	promptPath string
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Hybrid retrieval and prompt injection for chat hosts",
	Long: `Recall retrieves relevant content from configured collections and
injects it into the host prompt. It combines semantic and keyword search,
applies activation rules, temporal weighting and group constraints, and
keeps the vector backend in sync with the chat transcript.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.recall)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.recall/data)")
	rootCmd.PersistentFlags().StringVar(&chatPath, "chat", "chat.json", "path to the host chat transcript")
	rootCmd.PersistentFlags().StringVar(&promptPath, "prompt", "prompt_segments.json", "path to the prompt segment file")
}

// Execute wires the adapter stack and runs the root command. Wiring happens
// after flag parsing so the directory flags take effect; tests execute
// rootCmd directly with mock services instead.
func Execute() error {
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices()
	}
	return rootCmd.Execute()
}

// initServices builds the adapter stack and core services from configuration.
// Already-populated service variables are left alone so tests can inject
// mocks before executing commands.
func initServices() error {
	if injector != nil && vectorizer != nil && settingsService != nil && collectionService != nil {
		return nil
	}

	config, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	meta, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}

	backend := vectorapi.NewBackend(vectorapi.Config{
		BaseURL: config.GetString("backend.url"),
	})
	chat := chatfile.NewChatSource(chatPath)
	sink := promptfile.NewSink(promptPath)

	if settingsService == nil {
		settingsService = services.NewSettingsService(config)
	}
	if collectionService == nil {
		collectionService = services.NewCollectionsService(meta, backend)
	}
	if injector == nil {
		var embedder driven.EmbeddingService
		if url := config.GetString("embedding.url"); url != "" {
			embedder = ollama.NewEmbeddingService(ollama.Config{
				BaseURL: url,
				Model:   config.GetString("embedding.model"),
			})
		}
		retrieval := services.NewRetrievalService(backend, meta, embedder)
		var rerank driven.RerankService
		if url := config.GetString("rerank.url"); url != "" {
			rerank = rerankapi.NewRerankService(rerankapi.Config{BaseURL: url})
		}
		injector = services.NewPipelineService(chat, sink, meta, backend, retrieval, rerank, settingsService)
	}
	if vectorizer == nil {
		var extractor driven.KeywordExtractor
		if url := config.GetString("keywords.url"); url != "" {
			extractor = yake.NewExtractor(yake.Config{BaseURL: url})
		}
		vectorizer = services.NewVectorizeService(chat, backend, meta, extractor, settingsService)
	}
	return nil
}
