package domain

import "context"

// DocumentSource loads the full corpus. Each call returns a fresh snapshot.
type DocumentSource interface {
	Load(ctx context.Context) ([]Document, error)
	Describe() string
}
