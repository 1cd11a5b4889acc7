// Package corpusfs loads the corpus from markdown files on disk.
package corpusfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rag-governor/internal/domain"
)

// ErrNoDocuments is returned when no documents were found and placeholders are disabled.
var ErrNoDocuments = errors.New("no corpus documents found")

var placeholderTexts = []string{
	"Welcome to the RAG governor demo.",
	"Architecture placeholder.",
	"Privacy placeholder.",
}

// Loader reads *.md files from one directory (non-recursive) in name order.
// Documents get ids doc_0, doc_1, ... in that order.
type Loader struct {
	dir     string
	require bool
	logger  *slog.Logger
}

// NewLoader creates a loader for dir. When require is false a missing or
// empty directory yields the placeholder corpus.
func NewLoader(dir string, require bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dir: dir, require: require, logger: logger}
}

func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	paths, err := l.list()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list corpus dir %s: %w", l.dir, err)
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, domain.Document{
			ID:   fmt.Sprintf("doc_%d", len(docs)),
			Text: string(body),
		})
	}

	if len(docs) > 0 {
		return docs, nil
	}
	if l.require {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, l.dir)
	}

	l.logger.Warn("corpus_docs_not_found",
		slog.String("dir", l.dir),
		slog.Int("placeholder_count", len(placeholderTexts)))
	return Placeholders(), nil
}

func (l *Loader) Describe() string {
	return "dir:" + l.dir
}

// Dir returns the watched directory.
func (l *Loader) Dir() string {
	return l.dir
}

func (l *Loader) list() ([]string, error) {
	if l.dir == "" {
		return nil, fs.ErrNotExist
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsCorpusFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(l.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsCorpusFile reports whether name is picked up by the loader.
func IsCorpusFile(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".md")
}

// Placeholders returns the built-in fallback corpus.
func Placeholders() []domain.Document {
	docs := make([]domain.Document, len(placeholderTexts))
	for i, text := range placeholderTexts {
		docs[i] = domain.Document{ID: fmt.Sprintf("doc_%d", i), Text: text}
	}
	return docs
}

var _ domain.DocumentSource = (*Loader)(nil)
