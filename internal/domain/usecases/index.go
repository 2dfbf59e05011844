package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// ErrEmptyInput is returned when building an index from no chunks.
var ErrEmptyInput = errors.New("empty input: no chunks to index")

// Index embeds chunks into a vector store and retrieves them by similarity.
// The embedder is fixed at build time and used for every query.
type Index struct {
	mu       sync.Mutex
	embedder ports.EmbeddingService
	store    ports.VectorStore
	next     int
	size     int
}

// BuildIndex embeds chunks from source into store and returns the index.
func BuildIndex(ctx context.Context, embedder ports.EmbeddingService, store ports.VectorStore, source string, chunks []string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}
	ix := &Index{embedder: embedder, store: store}
	if err := ix.Add(ctx, source, chunks); err != nil {
		return nil, err
	}
	return ix, nil
}

// Add appends chunks from source. Existing chunks are kept.
func (ix *Index) Add(ctx context.Context, source string, chunks []string) error {
	if len(chunks) == 0 {
		return ErrEmptyInput
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := make([]entities.Chunk, len(chunks))
	for i, content := range chunks {
		ord := ix.next + i
		batch[i] = entities.Chunk{
			ID:         chunkID(source, ord),
			DocumentID: source,
			Content:    content,
			Index:      ord,
			Embedding:  embeddings[i],
		}
	}
	if err := ix.store.Store(ctx, batch); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}
	ix.next += len(batch)
	ix.size += len(batch)
	return nil
}

// Remove deletes every chunk that came from source.
func (ix *Index) Remove(ctx context.Context, source string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.Delete(ctx, source); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := ix.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}
	ix.size = n
	return nil
}

// Retrieve returns up to k chunks ordered by descending similarity to query.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]entities.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	embedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := ix.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.size
}

// Close releases the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}

// chunkID creates a deterministic ID for a chunk.
func chunkID(source string, ord int) string {
	hash := sha256.Sum256([]byte(source + "#" + strconv.Itoa(ord)))
	return hex.EncodeToString(hash[:8])
}

var _ ports.SearchIndex = (*Index)(nil)
