// Package cli implements the mnemo CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/store"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

var (
	dbPath     string
	configPath string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Local memory and retrieval engine for a conversational assistant",
	Long: "mnemo persists conversation turns and imported documents, embeds them, " +
		"and injects semantically relevant context into future prompts. SQLite-backed, single binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $MNEMO_DB or ~/.mnemo/mnemo.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.mnemo/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg
}

func openStore(cfg config.Config) *store.SQLiteStore {
	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

// newEmbedder builds the tiered embedder: the configured sentence-level
// model (cached) over the hash fallback.
func newEmbedder(cfg config.Config) embedding.Embedder {
	var tier1 embedding.Embedder
	switch cfg.EmbedProvider {
	case "ollama":
		model := cfg.EmbedModel
		if model == "" {
			model = "nomic-embed-text"
		}
		tier1 = embedding.NewOllamaEmbedder(model)
	case "openai":
		tier1 = embedding.NewOpenAIEmbedder(os.Getenv("MNEMO_EMBED_URL"), os.Getenv("OPENAI_API_KEY"), cfg.EmbedModel, 0)
	default:
		tier1 = embedding.ModelFromEnv()
	}
	if tier1 != nil {
		if cached, err := embedding.NewCached(tier1); err == nil {
			tier1 = cached
		}
	}
	return embedding.NewTiered(tier1, nil)
}

// newSummarizer wires the Anthropic client when a key is present; without
// one the summarizer reports a recoverable unavailable condition.
func newSummarizer(cfg config.Config) *summarize.Summarizer {
	llm, err := summarize.NewAnthropicClient(cfg.Model)
	if err != nil {
		slog.Debug("language model not configured", "err", err)
		return summarize.New(nil)
	}
	return summarize.New(llm)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
