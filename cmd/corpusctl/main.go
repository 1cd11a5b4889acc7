// Package main provides the corpusctl operator CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rag-governor/internal/di"
	"rag-governor/internal/infra/config"
	"rag-governor/internal/infra/logger"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	corpusDir string
	logLevel  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corpusctl",
	Short: "Inspect and exercise the RAG governor corpus offline",
	Long: `corpusctl builds the same in-memory index the server builds, using the
same environment configuration, and runs operator tasks against it.

Nothing is persisted; every command loads the corpus from scratch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&corpusDir, "dir", "", "Corpus directory (overrides CORPUS_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level for diagnostics on stderr")
	rootCmd.Version = Version
}

// loadConfig reads .env and the environment, applying flag overrides.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg := config.Load()
	if corpusDir != "" {
		cfg.Corpus.Dir = corpusDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildApp wires the components and builds the first snapshot.
func buildApp(ctx context.Context, cfg *config.Config, stderr io.Writer) (*di.ApplicationComponents, error) {
	log := logger.NewWithOptions(logger.Options{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Output:      stderr,
	})
	slog.SetDefault(log)

	app, err := di.NewApplicationComponents(cfg, nil, log)
	if err != nil {
		return nil, err
	}
	if _, err := app.RefreshUsecase.Execute(ctx); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return app, nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
