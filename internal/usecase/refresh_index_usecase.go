package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"rag-governor/internal/domain"
)

// RefreshResult describes one refresh attempt.
type RefreshResult struct {
	Swapped       bool
	DocumentCount int
	Fingerprint   string
}

// RefreshIndexUsecase reloads the corpus and publishes a new index when its content changed.
type RefreshIndexUsecase interface {
	Execute(ctx context.Context) (*RefreshResult, error)
}

type refreshIndexUsecase struct {
	source      domain.DocumentSource
	builder     BuildIndexUsecase
	holder      *IndexHolder
	fingerprint domain.FingerprintPolicy
	logger      *slog.Logger
}

// NewRefreshIndexUsecase wires a document source to the index holder.
func NewRefreshIndexUsecase(
	source domain.DocumentSource,
	builder BuildIndexUsecase,
	holder *IndexHolder,
	logger *slog.Logger,
) RefreshIndexUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &refreshIndexUsecase{
		source:      source,
		builder:     builder,
		holder:      holder,
		fingerprint: domain.NewFingerprintPolicy(),
		logger:      logger,
	}
}

// Execute leaves the current snapshot in place on any failure.
func (u *refreshIndexUsecase) Execute(ctx context.Context) (*RefreshResult, error) {
	docs, err := u.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus from %s: %w", u.source.Describe(), err)
	}

	fp := u.fingerprint.Compute(docs)
	if current := u.holder.Load(); current != nil && current.Fingerprint() == fp {
		u.logger.Debug("index_refresh_skipped",
			slog.String("fingerprint", fp),
			slog.Int("document_count", len(docs)))
		return &RefreshResult{Swapped: false, DocumentCount: current.Len(), Fingerprint: fp}, nil
	}

	idx, err := u.builder.Execute(ctx, docs)
	if err != nil {
		return nil, err
	}

	previous := u.holder.Swap(idx)
	previousCount := 0
	if previous != nil {
		previousCount = previous.Len()
	}
	u.logger.Info("index_swapped",
		slog.String("source", u.source.Describe()),
		slog.Int("document_count", idx.Len()),
		slog.Int("previous_document_count", previousCount),
		slog.String("fingerprint", idx.Fingerprint()))

	return &RefreshResult{Swapped: true, DocumentCount: idx.Len(), Fingerprint: idx.Fingerprint()}, nil
}
