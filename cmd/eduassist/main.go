// Command eduassist runs the educational assistant: either the HTTP
// server (serve) or a one-shot document ingestion (ingest), both
// built from the same wired dependency set. Grounded on
// xxxsen-mnote/cmd/mnote/main.go's cobra.Command tree.
package main

import (
	"fmt"
	"os"

	"eduassist/internal/config"
	"eduassist/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "eduassist",
		Short: "educational assistant hybrid-retrieval server",
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(&debug))
	rootCmd.AddCommand(newIngestCmd(&debug))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) (*zap.Logger, error) {
	return logging.New(debug)
}

func loadConfigOrExit(log *zap.Logger) config.Config {
	cfg := config.Load()
	log.Info("config loaded",
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.String("llm_model", cfg.LLMModel),
		zap.Bool("hybrid_agent", cfg.UseHybridAgent),
	)
	return cfg
}
