// Package vectordb provides vector store adapters implementing ports.VectorStore.
// Both stores live only as long as the session index that owns them.
package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// InMemoryStore keeps chunks in a slice in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Store appends chunks with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunks...)
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]scored, len(s.chunks))
	for i, chunk := range s.chunks {
		candidates[i] = scored{chunk: chunk, score: cosineSimilarity(embedding, chunk.Embedding)}
	}
	return rank(candidates, topK), nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	clear(s.chunks[len(kept):])
	s.chunks = kept
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }

var _ ports.VectorStore = (*InMemoryStore)(nil)
