package vectordb

import (
	"fmt"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Store kinds accepted by NewFactory.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// Factory opens a fresh, empty store for one session index.
type Factory func() (ports.VectorStore, error)

// NewFactory returns the Factory for kind.
func NewFactory(kind string) (Factory, error) {
	switch kind {
	case "", KindMemory:
		return func() (ports.VectorStore, error) { return NewInMemoryStore(), nil }, nil
	case KindSQLite:
		return func() (ports.VectorStore, error) { return NewSQLiteStore() }, nil
	}
	return nil, fmt.Errorf("unknown vector store %q", kind)
}
