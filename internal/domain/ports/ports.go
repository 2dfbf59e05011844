// Package ports defines interfaces for external capabilities.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"errors"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

var (
	// ErrEngineNotInstalled is returned by an OCREngine whose backend is missing.
	ErrEngineNotInstalled = errors.New("ocr engine not installed")

	// ErrPageUnreadable marks a PDF page whose text layer could not be read.
	ErrPageUnreadable = errors.New("pdf page unreadable")
)

// EmbeddingService generates fixed-dimension vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMService produces a completion for a prompt.
type LLMService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelInfo is implemented by providers that can describe themselves.
type ModelInfo interface {
	Provider() string
	Model() string
}

// VectorStore holds embedded chunks and answers similarity queries.
// Search results are ordered by descending score; equal scores keep
// insertion order (Chunk.Index ascending).
type VectorStore interface {
	Store(ctx context.Context, chunks []entities.Chunk) error
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)
	Delete(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// SearchIndex is a session's retrieval structure. It embeds queries with
// the same embedder its chunks were embedded with.
type SearchIndex interface {
	Add(ctx context.Context, source string, chunks []string) error
	Remove(ctx context.Context, source string) error
	Retrieve(ctx context.Context, query string, k int) ([]entities.QueryResult, error)
	Len() int
	Close() error
}

// PDFDocument is an opened PDF. Pages are numbered from 1.
type PDFDocument interface {
	NumPages() int
	PageText(page int) (string, error)
	Close() error
}

// PDFReader opens PDFs for per-page text-layer extraction.
// A missing file yields an error matching fs.ErrNotExist.
type PDFReader interface {
	Open(ctx context.Context, path string) (PDFDocument, error)
}

// OCREngine recognizes text in an image file using one language pack.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath, language string) (string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
