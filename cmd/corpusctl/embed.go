package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rag-governor/internal/domain"
)

var embedOutput string

func init() {
	embedCmd.Flags().StringVarP(&embedOutput, "output", "o", "-", "Snapshot file, or - for stdout")
	rootCmd.AddCommand(embedCmd)
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Write the corpus embeddings as a JSON snapshot",
	Long: `Embed every document with the configured encoder and write
{"ids": [...], "embeddings": [[...], ...]} for inspection.

The server does not read this file.`,
	RunE: runEmbed,
}

// EmbeddingSnapshot holds one normalized vector per document id.
type EmbeddingSnapshot struct {
	IDs        []string    `json:"ids"`
	Embeddings [][]float32 `json:"embeddings"`
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if embedOutput != "-" && embedOutput != "" {
		f, err := os.Create(embedOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", embedOutput, err)
		}
		defer f.Close()
		out = f
	}
	return outputJSON(out, newEmbeddingSnapshot(app.Holder.Load()))
}

func newEmbeddingSnapshot(idx *domain.CorpusIndex) EmbeddingSnapshot {
	snap := EmbeddingSnapshot{
		IDs:        make([]string, idx.Len()),
		Embeddings: make([][]float32, idx.Len()),
	}
	for i := 0; i < idx.Len(); i++ {
		snap.IDs[i] = idx.DocumentAt(i).ID
		snap.Embeddings[i] = idx.Vector(i)
	}
	return snap
}
