// Package entities contains core business entities.
// These are pure domain objects with no knowledge of transport, storage or providers.
package entities

import (
	"strings"
	"time"
)

// Upload is a file handed to the pipeline by a caller.
type Upload struct {
	Name        string
	ContentType string
	Path        string
	Size        int64
}

// Document is a successfully ingested file, owned by a session.
type Document struct {
	ID         int // session-local ordinal
	Name       string
	Text       string
	Size       int64
	UploadedAt time.Time
}

// Chunk is a piece of a document's text as stored in an index.
type Chunk struct {
	ID         string
	DocumentID string // name of the source document
	Content    string
	Index      int       // insertion ordinal within the index
	Embedding  []float32 // populated by the index
}

// QueryResult is a retrieved chunk with its similarity score.
type QueryResult struct {
	Chunk     Chunk
	Score     float64
	SourceDoc string
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ExtractionResult is the outcome of extracting text from one upload.
// Text is set only for 200 and 206 results with non-blank text.
type ExtractionResult struct {
	Status   Status
	Text     string
	Message  string
	Metadata map[string]any
}

// HasText reports whether the result carries usable text.
func (r ExtractionResult) HasText() bool {
	return r.Status.IsSuccess() && strings.TrimSpace(r.Text) != ""
}

// AnswerResult is the outcome of answering one question.
type AnswerResult struct {
	Status   Status
	Answer   string
	Message  string
	Metadata map[string]any
}

// RetrievedCount returns the retrieved_docs_count metadata value, or 0.
func (r AnswerResult) RetrievedCount() int {
	n, _ := r.Metadata["retrieved_docs_count"].(int)
	return n
}
