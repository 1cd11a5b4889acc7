package usecase

import (
	"fmt"
	"time"
)

// PipelineConfig holds the limits of the query pipeline.
type PipelineConfig struct {
	// DefaultK is used by transports when the caller omits k.
	DefaultK int
	// MaxK is the largest accepted k.
	MaxK int
	// MaxQuestionChars bounds the question length in characters.
	MaxQuestionChars int
	// ContextBudgetChars caps the total passage text handed to the synthesizer.
	// Zero or negative means unlimited.
	ContextBudgetChars int
	// GenerateTimeout bounds the synthesizer call. Zero disables it.
	GenerateTimeout time.Duration
}

// DefaultPipelineConfig returns the shipped limits.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DefaultK:           6,
		MaxK:               100,
		MaxQuestionChars:   4000,
		ContextBudgetChars: 6000,
		GenerateTimeout:    60 * time.Second,
	}
}

// Validate checks if the pipeline configuration is valid.
func (c PipelineConfig) Validate() error {
	if c.MaxK <= 0 {
		return fmt.Errorf("pipeline maxK must be positive, got %d", c.MaxK)
	}
	if c.DefaultK <= 0 || c.DefaultK > c.MaxK {
		return fmt.Errorf("pipeline defaultK must be in [1, %d], got %d", c.MaxK, c.DefaultK)
	}
	if c.MaxQuestionChars <= 0 {
		return fmt.Errorf("pipeline maxQuestionChars must be positive, got %d", c.MaxQuestionChars)
	}
	if c.GenerateTimeout < 0 {
		return fmt.Errorf("pipeline generateTimeout must not be negative, got %v", c.GenerateTimeout)
	}
	return nil
}

// IndexBuildConfig holds settings for embedding the corpus at build time.
type IndexBuildConfig struct {
	// BatchSize is the number of documents per embedding call.
	BatchSize int
	// Concurrency is the number of embedding calls in flight.
	Concurrency int
	// RequestsPerSecond paces embedding calls. Zero disables pacing.
	RequestsPerSecond float64
	// Timeout bounds each embedding call.
	Timeout time.Duration
	// RequireNonEmpty rejects an empty corpus.
	RequireNonEmpty bool
}

// DefaultIndexBuildConfig returns defaults sized for a small corpus.
func DefaultIndexBuildConfig() IndexBuildConfig {
	return IndexBuildConfig{
		BatchSize:         16,
		Concurrency:       2,
		RequestsPerSecond: 0,
		Timeout:           30 * time.Second,
	}
}

// Validate checks if the build configuration is valid.
func (c IndexBuildConfig) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("index batch size must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("index concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("index requests per second must not be negative, got %f", c.RequestsPerSecond)
	}
	return nil
}
