package main

import (
	"time"

	"github.com/spf13/cobra"

	"rag-governor/internal/domain"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the index and print its statistics",
	RunE:  runInspect,
}

// InspectResult is the response for the inspect command.
type InspectResult struct {
	Source                string    `json:"source"`
	Documents             int       `json:"documents"`
	AverageDocumentLength float64   `json:"average_document_length"`
	VocabularySize        int       `json:"vocabulary_size"`
	Dimension             int       `json:"dimension"`
	Embedder              string    `json:"embedder"`
	Fingerprint           string    `json:"fingerprint"`
	BuiltAt               time.Time `json:"built_at"`
	DocumentIDs           []string  `json:"document_ids"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return outputJSON(cmd.OutOrStdout(), newInspectResult(app.Source.Describe(), app.Holder.Load()))
}

func newInspectResult(source string, idx *domain.CorpusIndex) InspectResult {
	ids := make([]string, 0, idx.Len())
	for _, doc := range idx.Documents() {
		ids = append(ids, doc.ID)
	}
	return InspectResult{
		Source:                source,
		Documents:             idx.Len(),
		AverageDocumentLength: idx.AverageDocumentLength(),
		VocabularySize:        idx.VocabularySize(),
		Dimension:             idx.Dimension(),
		Embedder:              idx.EmbedderVersion(),
		Fingerprint:           idx.Fingerprint(),
		BuiltAt:               idx.BuiltAt(),
		DocumentIDs:           ids,
	}
}
