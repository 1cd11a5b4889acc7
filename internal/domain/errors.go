package domain

import (
	"errors"
	"fmt"
)

// Index construction errors.
var (
	ErrEmptyCorpus        = errors.New("corpus is empty")
	ErrDuplicateDocument  = errors.New("duplicate document id")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrNonFiniteEmbedding = errors.New("embedding contains non-finite value")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidVariantError reports a variant tag outside the closed set.
type InvalidVariantError struct {
	Tag string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("variant must be one of A, B (got %q)", e.Tag)
}

// EmbeddingUnavailableError wraps a failure of the embedding provider.
type EmbeddingUnavailableError struct {
	Provider string
	Err      error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

// UnknownDocumentError is raised when a hit references an id missing from the index.
type UnknownDocumentError struct {
	DocID string
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("unknown document %q", e.DocID)
}

// GenerationError wraps a failure of the answer synthesizer.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation via %s failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TelemetryError is logged and swallowed. It never reaches a caller.
type TelemetryError struct {
	Op  string
	Err error
}

func (e *TelemetryError) Error() string {
	return fmt.Sprintf("telemetry %s: %v", e.Op, e.Err)
}

func (e *TelemetryError) Unwrap() error { return e.Err }

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	var ve *ValidationError
	var ive *InvalidVariantError
	return errors.As(err, &ve) || errors.As(err, &ive)
}
