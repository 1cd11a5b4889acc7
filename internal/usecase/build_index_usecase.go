package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rag-governor/internal/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BuildIndexUsecase embeds a document set and builds a fresh CorpusIndex.
type BuildIndexUsecase interface {
	Execute(ctx context.Context, docs []domain.Document) (*domain.CorpusIndex, error)
}

type buildIndexUsecase struct {
	encoder   domain.VectorEncoder
	tokenizer domain.Tokenizer
	cfg       IndexBuildConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewBuildIndexUsecase creates the index builder.
func NewBuildIndexUsecase(
	encoder domain.VectorEncoder,
	tokenizer domain.Tokenizer,
	cfg IndexBuildConfig,
	logger *slog.Logger,
) BuildIndexUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIndexBuildConfig().BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &buildIndexUsecase{
		encoder:   encoder,
		tokenizer: tokenizer,
		cfg:       cfg,
		limiter:   limiter,
		logger:    logger,
	}
}

func (u *buildIndexUsecase) Execute(ctx context.Context, docs []domain.Document) (*domain.CorpusIndex, error) {
	if len(docs) == 0 && u.cfg.RequireNonEmpty {
		return nil, domain.ErrEmptyCorpus
	}

	start := time.Now()
	u.logger.Info("index_build_started",
		slog.Int("document_count", len(docs)),
		slog.String("encoder", u.encoder.Version()),
		slog.Int("batch_size", u.cfg.BatchSize))

	embeddings, err := u.embedAll(ctx, docs)
	if err != nil {
		u.logger.Error("index_build_failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil, err
	}

	idx, err := domain.BuildCorpusIndex(docs, embeddings, u.tokenizer, domain.BuildOptions{
		RequireNonEmpty: u.cfg.RequireNonEmpty,
		EmbedderVersion: u.encoder.Version(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus index: %w", err)
	}

	u.logger.Info("index_build_completed",
		slog.Int("document_count", idx.Len()),
		slog.Int("vocabulary_size", idx.VocabularySize()),
		slog.Int("dimension", idx.Dimension()),
		slog.String("fingerprint", idx.Fingerprint()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return idx, nil
}

// embedAll encodes docs in batches. Batches run concurrently up to the
// configured limit; results land at their document positions.
func (u *buildIndexUsecase) embedAll(ctx context.Context, docs []domain.Document) ([][]float32, error) {
	embeddings := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)

	for start := 0; start < len(docs); start += u.cfg.BatchSize {
		end := min(start+u.cfg.BatchSize, len(docs))
		g.Go(func() error {
			if err := u.limiter.Wait(gctx); err != nil {
				return &domain.EmbeddingUnavailableError{Provider: u.encoder.Version(), Err: err}
			}

			texts := make([]string, 0, end-start)
			for _, d := range docs[start:end] {
				texts = append(texts, d.Text)
			}

			callCtx := gctx
			if u.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, u.cfg.Timeout)
				defer cancel()
			}
			vectors, err := u.encoder.Encode(callCtx, texts)
			if err != nil {
				return &domain.EmbeddingUnavailableError{Provider: u.encoder.Version(), Err: err}
			}
			if len(vectors) != len(texts) {
				return &domain.EmbeddingUnavailableError{
					Provider: u.encoder.Version(),
					Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)),
				}
			}
			copy(embeddings[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}
