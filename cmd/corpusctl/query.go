package main

import (
	"strings"

	"github.com/spf13/cobra"

	rag_http "rag-governor/internal/adapter/rag_http"
	"rag-governor/internal/usecase"
)

var (
	queryVariant string
	queryK       int
)

func init() {
	queryCmd.Flags().StringVar(&queryVariant, "variant", "A", "Retrieval variant: A (lexical) or B (vector)")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "Number of hits (defaults to RAG_DEFAULT_K)")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Run one question through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	k := queryK
	if k == 0 {
		k = cfg.Retrieval.DefaultK
	}
	out, err := app.AnswerUsecase.Execute(cmd.Context(), usecase.QueryInput{
		Question: strings.Join(args, " "),
		Variant:  queryVariant,
		K:        k,
	})
	if err != nil {
		return err
	}
	return outputJSON(cmd.OutOrStdout(), rag_http.NewQueryResponse(out))
}
