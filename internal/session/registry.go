// Package session holds per-session state: documents, the search index and
// chat history. The session is selected by an ID carried in the context.
// Without an ID every operation is a no-op returning an empty result.
//
// Operations on one session are not synchronized against each other;
// callers that may run concurrently on a session hold Lock around them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

type ctxKey struct{}

// WithID returns a context selecting session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session ID carried by ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

type state struct {
	mu        sync.Mutex
	documents []entities.Document
	nextDocID int
	messages  []entities.ChatMessage

	// indexMu guards index against the expiry janitor, which runs
	// without mu so that a request outliving the TTL cannot block it.
	indexMu sync.Mutex
	index   ports.SearchIndex
	ended   bool
}

// takeIndex detaches the index, leaving the caller to close it. When end
// is set the state no longer accepts an index.
func (st *state) takeIndex(end bool) ports.SearchIndex {
	st.indexMu.Lock()
	defer st.indexMu.Unlock()
	ix := st.index
	st.index = nil
	st.ended = st.ended || end
	return ix
}

// Registry maps session IDs to isolated state. Sessions are created on
// first use and expire after ttl without access; expiry closes the index.
// A request still running when its session expires sees the index closed.
type Registry struct {
	cache  *cache.Cache
	create sync.Mutex
	logger *zap.Logger
}

// NewRegistry creates a Registry. cleanup is the expiry sweep interval.
func NewRegistry(ttl, cleanup time.Duration, logger *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		cache:  cache.New(ttl, cleanup),
		logger: logger.Named("session"),
	}
	r.cache.OnEvicted(r.evicted)
	return r
}

func (r *Registry) evicted(id string, v interface{}) {
	st, ok := v.(*state)
	if !ok {
		return
	}
	if ix := st.takeIndex(true); ix != nil {
		if err := ix.Close(); err != nil {
			r.logger.Warn("closing index", zap.String("session", id), zap.Error(err))
		}
	}
	r.logger.Info("session ended", zap.String("session", id))
}

// state returns the session selected by ctx, creating it on first use
// and refreshing its expiry. It returns nil without a session ID.
func (r *Registry) state(ctx context.Context) *state {
	id, ok := IDFromContext(ctx)
	if !ok {
		return nil
	}

	r.create.Lock()
	defer r.create.Unlock()

	if v, found := r.cache.Get(id); found {
		st := v.(*state)
		r.cache.SetDefault(id, st)
		return st
	}
	// an expired entry may still hold an open index
	r.cache.DeleteExpired()
	st := &state{}
	r.cache.SetDefault(id, st)
	r.logger.Debug("session started", zap.String("session", id))
	return st
}

// HasSession reports whether ctx selects a session.
func (r *Registry) HasSession(ctx context.Context) bool {
	_, ok := IDFromContext(ctx)
	return ok
}

// Lock serializes callers on the session selected by ctx.
func (r *Registry) Lock(ctx context.Context) (unlock func()) {
	st := r.state(ctx)
	if st == nil {
		return func() {}
	}
	st.mu.Lock()
	return st.mu.Unlock
}

// End drops the session selected by ctx and closes its index.
func (r *Registry) End(ctx context.Context) {
	if id, ok := IDFromContext(ctx); ok {
		r.cache.Delete(id)
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

// AddDocument appends doc, assigning its session-local ID.
func (r *Registry) AddDocument(ctx context.Context, doc entities.Document) entities.Document {
	st := r.state(ctx)
	if st == nil {
		return entities.Document{}
	}
	st.nextDocID++
	doc.ID = st.nextDocID
	st.documents = append(st.documents, doc)
	return doc
}

// RemoveDocument removes the i-th document. Out of range is a no-op.
func (r *Registry) RemoveDocument(ctx context.Context, i int) (entities.Document, bool) {
	st := r.state(ctx)
	if st == nil || i < 0 || i >= len(st.documents) {
		return entities.Document{}, false
	}
	doc := st.documents[i]
	st.documents = append(st.documents[:i:i], st.documents[i+1:]...)
	return doc, true
}

// ClearDocuments removes every document. The index is left alone.
func (r *Registry) ClearDocuments(ctx context.Context) {
	if st := r.state(ctx); st != nil {
		st.documents = nil
	}
}

// Documents returns a copy of the document list.
func (r *Registry) Documents(ctx context.Context) []entities.Document {
	st := r.state(ctx)
	if st == nil {
		return nil
	}
	return append([]entities.Document(nil), st.documents...)
}

// DocumentExists reports whether a document has exactly this name.
func (r *Registry) DocumentExists(ctx context.Context, name string) bool {
	st := r.state(ctx)
	if st == nil {
		return false
	}
	for _, d := range st.documents {
		if d.Name == name {
			return true
		}
	}
	return false
}

// SetIndex installs index, closing a different previous one.
func (r *Registry) SetIndex(ctx context.Context, index ports.SearchIndex) {
	st := r.state(ctx)
	if st == nil {
		return
	}
	st.indexMu.Lock()
	if st.ended {
		// expired while the caller held it; nothing would close index later
		st.indexMu.Unlock()
		if index != nil {
			index.Close()
		}
		return
	}
	prev := st.index
	st.index = index
	st.indexMu.Unlock()
	if prev != nil && prev != index {
		prev.Close()
	}
}

// GetIndex returns the session index, or nil.
func (r *Registry) GetIndex(ctx context.Context) ports.SearchIndex {
	st := r.state(ctx)
	if st == nil {
		return nil
	}
	st.indexMu.Lock()
	defer st.indexMu.Unlock()
	return st.index
}

// ClearIndex closes and drops the session index.
func (r *Registry) ClearIndex(ctx context.Context) {
	st := r.state(ctx)
	if st == nil {
		return
	}
	if ix := st.takeIndex(false); ix != nil {
		if err := ix.Close(); err != nil {
			r.logger.Warn("closing index", zap.Error(err))
		}
	}
}

// AddMessage appends a chat message.
func (r *Registry) AddMessage(ctx context.Context, role, content, timestamp string) {
	if st := r.state(ctx); st != nil {
		st.messages = append(st.messages, entities.ChatMessage{Role: role, Content: content, Timestamp: timestamp})
	}
}

// ClearMessages empties the chat history.
func (r *Registry) ClearMessages(ctx context.Context) {
	if st := r.state(ctx); st != nil {
		st.messages = nil
	}
}

// Messages returns a copy of the chat history.
func (r *Registry) Messages(ctx context.Context) []entities.ChatMessage {
	st := r.state(ctx)
	if st == nil {
		return nil
	}
	return append([]entities.ChatMessage(nil), st.messages...)
}
