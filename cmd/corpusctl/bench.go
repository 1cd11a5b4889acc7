package main

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rag-governor/internal/usecase"
)

var (
	benchVariants  []string
	benchK         int
	benchRepeat    int
	benchQuestions string
)

var defaultBenchQuestions = []string{
	"What does the governor do?",
	"How are the retrieval variants different?",
	"How is personal data protected?",
}

func init() {
	benchCmd.Flags().StringSliceVar(&benchVariants, "variants", []string{"A", "B"}, "Variants to compare")
	benchCmd.Flags().IntVarP(&benchK, "k", "k", 6, "Number of hits per query")
	benchCmd.Flags().IntVar(&benchRepeat, "repeat", 3, "Runs per question and variant")
	benchCmd.Flags().StringVar(&benchQuestions, "questions", "", "File with one question per line")
	rootCmd.AddCommand(benchCmd)
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare pipeline latency across retrieval variants",
	Long: `Run every question through the full pipeline for each variant and
report per-variant success count and latency percentiles.

Latency is the pipeline-reported latency_ms. This measures speed only and
does not score answer quality.`,
	RunE: runBench,
}

// VariantSummary aggregates one variant's runs.
type VariantSummary struct {
	Variant  string  `json:"variant"`
	Requests int     `json:"requests"`
	OK       int     `json:"ok"`
	MeanMs   float64 `json:"mean_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
}

// BenchResult is the response for the bench command.
type BenchResult struct {
	Questions int              `json:"questions"`
	Repeat    int              `json:"repeat"`
	K         int              `json:"k"`
	Variants  []VariantSummary `json:"variants"`
	Elapsed   string           `json:"elapsed"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRepeat <= 0 {
		return errors.New("--repeat must be positive")
	}
	questions, err := loadQuestions(benchQuestions)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := buildApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	start := time.Now()
	result := BenchResult{Questions: len(questions), Repeat: benchRepeat, K: benchK}
	for _, variant := range benchVariants {
		var latencies []float64
		requests := 0
		for _, q := range questions {
			for i := 0; i < benchRepeat; i++ {
				requests++
				out, err := app.AnswerUsecase.Execute(cmd.Context(), usecase.QueryInput{Question: q, Variant: variant, K: benchK})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "variant %s: %v\n", variant, err)
					continue
				}
				latencies = append(latencies, out.LatencyMs)
			}
		}
		result.Variants = append(result.Variants, summarize(variant, requests, latencies))
	}
	result.Elapsed = time.Since(start).Round(time.Millisecond).String()
	return outputJSON(cmd.OutOrStdout(), result)
}

func loadQuestions(path string) ([]string, error) {
	if path == "" {
		return defaultBenchQuestions, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening questions: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no questions in %s", path)
	}
	return out, nil
}

func summarize(variant string, requests int, latencies []float64) VariantSummary {
	s := VariantSummary{Variant: variant, Requests: requests, OK: len(latencies)}
	if len(latencies) == 0 {
		return s
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	s.MeanMs = round2(sum / float64(len(sorted)))
	s.P50Ms = round2(percentile(sorted, 50))
	s.P95Ms = round2(percentile(sorted, 95))
	return s
}

// percentile interpolates linearly between closest ranks of sorted values.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
