package di

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"rag-governor/internal/domain"
	"rag-governor/internal/infra/config"
	"rag-governor/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.LogLevel = "info"
	cfg.Corpus.Dir = dir
	cfg.Corpus.Require = false
	cfg.Retrieval.Tokenizer = "simple"
	cfg.Retrieval.DefaultK = 6
	cfg.Retrieval.MaxK = 100
	cfg.Embedder.Kind = config.EmbedderHashing
	cfg.Embedder.Dimension = 64
	cfg.Embedder.BatchSize = 16
	cfg.Embedder.Concurrency = 2
	cfg.Generator.Kind = config.GeneratorTemplate
	cfg.Guardrail.RulesFile = ""
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApplicationComponents_RefreshThenQuery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("Retention policy keeps logs for thirty days."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Contact privacy@example.com about data requests."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	app, err := NewApplicationComponents(testConfig(t, dir), nil, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, app.Holder.Load(), "index is not built during wiring")

	res, err := app.RefreshUsecase.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, 2, res.DocumentCount)

	out, err := app.AnswerUsecase.Execute(context.Background(), usecase.QueryInput{
		Question: "how long is log retention?",
		Variant:  "A",
		K:        6,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VariantLexical, out.Variant)
	assert.Equal(t, 2, out.K)
	require.NotEmpty(t, out.Hits)
	assert.Equal(t, "doc_0", out.Hits[0].DocID)

	out, err = app.AnswerUsecase.Execute(context.Background(), usecase.QueryInput{
		Question: "who handles privacy requests?",
		Variant:  "B",
		K:        1,
	})
	require.NoError(t, err)
	assert.Len(t, out.Hits, 1)
	assert.NotContains(t, out.Answer, "privacy@example.com")

	again, err := app.RefreshUsecase.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Swapped, "unchanged corpus keeps the current snapshot")
}

func TestNewApplicationComponents_PlaceholderCorpus(t *testing.T) {
	app, err := NewApplicationComponents(testConfig(t, filepath.Join(t.TempDir(), "missing")), nil, discardLogger())
	require.NoError(t, err)

	res, err := app.RefreshUsecase.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.DocumentCount)
}

func TestNewApplicationComponents_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"tokenizer", func(c *config.Config) { c.Retrieval.Tokenizer = "mecab" }},
		{"embedder", func(c *config.Config) { c.Embedder.Kind = "openai" }},
		{"generator", func(c *config.Config) { c.Generator.Kind = "gpt" }},
		{"rules file", func(c *config.Config) { c.Guardrail.RulesFile = "/nonexistent/rules.yaml" }},
		{"pipeline limits", func(c *config.Config) { c.Retrieval.DefaultK = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, t.TempDir())
			tt.mutate(cfg)
			_, err := NewApplicationComponents(cfg, nil, discardLogger())
			assert.Error(t, err)
		})
	}
}

func TestNewSynthesizer_Ollama(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Generator.Kind = config.GeneratorOllama
	cfg.Generator.Model = "llama3.1"

	synth, err := NewSynthesizer(cfg, discardLogger())
	require.NoError(t, err)
	assert.NotEqual(t, "template", synth.Name())
}
