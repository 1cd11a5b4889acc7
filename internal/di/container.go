package di

import (
	"fmt"
	"log/slog"
	"time"

	"rag-governor/internal/adapter/corpusfs"
	"rag-governor/internal/adapter/localembed"
	"rag-governor/internal/adapter/rag_augur"
	rag_http "rag-governor/internal/adapter/rag_http"
	"rag-governor/internal/domain"
	"rag-governor/internal/infra/config"
	"rag-governor/internal/infra/tokenize"
	"rag-governor/internal/usecase"
	"rag-governor/internal/usecase/retrieval"
	"rag-governor/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Holder *usecase.IndexHolder
	Source *corpusfs.Loader

	// Encoders: the index encoder embeds the corpus, the query encoder adds
	// a per-text cache in front of the same model.
	IndexEncoder domain.VectorEncoder
	QueryEncoder domain.VectorEncoder
	Tokenizer    domain.Tokenizer
	Masker       *domain.Masker
	Synthesizer  domain.Synthesizer

	// Usecases
	BuildUsecase   usecase.BuildIndexUsecase
	RefreshUsecase usecase.RefreshIndexUsecase
	AnswerUsecase  usecase.AnswerQueryUsecase

	Handler *rag_http.Handler
	Worker  *worker.ReindexWorker
}

// PipelineConfigFrom maps retrieval settings onto the query pipeline limits.
func PipelineConfigFrom(cfg *config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		DefaultK:           cfg.Retrieval.DefaultK,
		MaxK:               cfg.Retrieval.MaxK,
		MaxQuestionChars:   cfg.Retrieval.MaxQuestionChars,
		ContextBudgetChars: cfg.Retrieval.ContextBudgetChars,
		GenerateTimeout:    cfg.Retrieval.GenerateTimeout,
	}
}

// IndexBuildConfigFrom maps embedder settings onto the index builder.
func IndexBuildConfigFrom(cfg *config.Config) usecase.IndexBuildConfig {
	return usecase.IndexBuildConfig{
		BatchSize:         cfg.Embedder.BatchSize,
		Concurrency:       cfg.Embedder.Concurrency,
		RequestsPerSecond: cfg.Embedder.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second,
		RequireNonEmpty:   cfg.Corpus.Require,
	}
}

// NewEncoder builds the configured embedding provider.
func NewEncoder(cfg *config.Config, tok domain.Tokenizer, log *slog.Logger) (domain.VectorEncoder, error) {
	switch cfg.Embedder.Kind {
	case config.EmbedderOllama:
		return rag_augur.NewOllamaEmbedder(cfg.Embedder.OllamaURL, cfg.Embedder.Model, cfg.Embedder.TimeoutSeconds, log).
			WithAPIKey(cfg.Embedder.APIKey), nil
	case config.EmbedderHashing, "":
		enc, err := localembed.NewHashingEncoder(cfg.Embedder.Dimension, tok)
		if err != nil {
			return nil, err
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder.Kind)
	}
}

// NewSynthesizer builds the configured answer generator.
func NewSynthesizer(cfg *config.Config, log *slog.Logger) (domain.Synthesizer, error) {
	switch cfg.Generator.Kind {
	case config.GeneratorOllama:
		generator := rag_augur.NewOllamaGenerator(cfg.Generator.APIBase, cfg.Generator.Model, cfg.Generator.TimeoutSeconds, log).
			WithAPIKey(cfg.Generator.APIKey)
		return usecase.NewLLMSynthesizer(
			usecase.NewXMLPromptBuilder(),
			generator,
			usecase.NewOutputValidator(),
			cfg.Generator.PromptVersion,
			cfg.Generator.MaxTokens,
			log,
		), nil
	case config.GeneratorTemplate, "":
		return usecase.NewTemplateSynthesizer(), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", cfg.Generator.Kind)
	}
}

// NewApplicationComponents wires all dependencies from config. The index is
// not built here; callers run RefreshUsecase once before serving.
func NewApplicationComponents(cfg *config.Config, telemetry usecase.Instrumentation, log *slog.Logger) (*ApplicationComponents, error) {
	if telemetry == nil {
		telemetry = usecase.NoopInstrumentation{}
	}

	tok, err := tokenize.New(cfg.Retrieval.Tokenizer)
	if err != nil {
		return nil, err
	}

	rules, err := config.LoadMaskingRules(cfg.Guardrail.RulesFile)
	if err != nil {
		return nil, err
	}
	masker, err := domain.NewMasker(rules...)
	if err != nil {
		return nil, fmt.Errorf("failed to build masker: %w", err)
	}

	indexEncoder, err := NewEncoder(cfg, tok, log)
	if err != nil {
		return nil, err
	}
	queryEncoder := rag_augur.NewCachedEncoder(indexEncoder, cfg.Cache.QueryEmbeddingSize, cfg.Cache.QueryEmbeddingTTL)

	synthesizer, err := NewSynthesizer(cfg, log)
	if err != nil {
		return nil, err
	}

	pipelineCfg := PipelineConfigFrom(cfg)
	if err := pipelineCfg.Validate(); err != nil {
		return nil, err
	}
	buildCfg := IndexBuildConfigFrom(cfg)
	if err := buildCfg.Validate(); err != nil {
		return nil, err
	}

	holder := usecase.NewIndexHolder(nil)
	source := corpusfs.NewLoader(cfg.Corpus.Dir, cfg.Corpus.Require, log)

	buildUsecase := usecase.NewBuildIndexUsecase(indexEncoder, tok, buildCfg, log)
	refreshUsecase := usecase.NewRefreshIndexUsecase(source, buildUsecase, holder, log)

	router := retrieval.NewRouter(
		retrieval.NewLexicalRanker(),
		retrieval.NewVectorRanker(queryEncoder, cfg.Retrieval.EmbedTimeout, log),
	)
	answerUsecase := usecase.NewAnswerQueryUsecase(holder, router, masker, synthesizer, telemetry, pipelineCfg, log)

	reindexWorker := worker.NewReindexWorker(refreshUsecase, cfg.Corpus.Dir, cfg.Corpus.WatchDebounce, log).
		WithFilter(corpusfs.IsCorpusFile)

	log.Info("components_wired",
		slog.String("embedder", indexEncoder.Version()),
		slog.String("synthesizer", synthesizer.Name()),
		slog.String("tokenizer", tok.Name()),
		slog.Int("masking_rules", len(rules)),
		slog.String("corpus", source.Describe()))

	return &ApplicationComponents{
		Holder:         holder,
		Source:         source,
		IndexEncoder:   indexEncoder,
		QueryEncoder:   queryEncoder,
		Tokenizer:      tok,
		Masker:         masker,
		Synthesizer:    synthesizer,
		BuildUsecase:   buildUsecase,
		RefreshUsecase: refreshUsecase,
		AnswerUsecase:  answerUsecase,
		Handler:        rag_http.NewHandler(answerUsecase, holder, log),
		Worker:         reindexWorker,
	}, nil
}
