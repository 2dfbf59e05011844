package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// DefaultMaxQuestionLength bounds questions, in runes.
const DefaultMaxQuestionLength = 500

// SessionStore is the per-session state the chat workflow drives. Every
// method selects the session from ctx.
type SessionStore interface {
	IndexSource
	HasSession(ctx context.Context) bool
	Lock(ctx context.Context) (unlock func())

	AddDocument(ctx context.Context, doc entities.Document) entities.Document
	RemoveDocument(ctx context.Context, i int) (entities.Document, bool)
	ClearDocuments(ctx context.Context)
	Documents(ctx context.Context) []entities.Document
	DocumentExists(ctx context.Context, name string) bool

	SetIndex(ctx context.Context, index ports.SearchIndex)
	ClearIndex(ctx context.Context)

	AddMessage(ctx context.Context, role, content, timestamp string)
	ClearMessages(ctx context.Context)
	Messages(ctx context.Context) []entities.ChatMessage
}

// RequestError is a workflow failure carrying the status to report.
type RequestError struct {
	Status   entities.Status
	Message  string
	Metadata map[string]any
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status.Code(), e.Message)
}

func requestError(status entities.Status, format string, args ...any) *RequestError {
	return &RequestError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// FileInfo describes the file of a file+question request.
type FileInfo struct {
	FileName        string `json:"file_name"`
	FileType        string `json:"file_type"`
	TextLength      int    `json:"text_length"`
	AlreadyIngested bool   `json:"already_ingested"`
}

// ChatResponse is the successful outcome of a question.
type ChatResponse struct {
	Answer             string         `json:"answer"`
	Status             string         `json:"status"`
	Question           string         `json:"question"`
	FileInfo           *FileInfo      `json:"file_info,omitempty"`
	ExtractionMetadata map[string]any `json:"extraction_metadata,omitempty"`
	RAGMetadata        map[string]any `json:"rag_metadata"`
}

// ChatConfig configures the ChatService.
type ChatConfig struct {
	MaxQuestionLength int
}

// ChatService runs extraction, ingestion and answering for a session,
// keeping its document list and index consistent.
type ChatService struct {
	extractor   *Extractor
	splitter    *Splitter
	answerer    *Answerer
	embedder    ports.EmbeddingService
	newStore    func() (ports.VectorStore, error)
	sessions    SessionStore
	validate    *validator.Validate
	maxQuestion int
	logger      *zap.Logger
	now         func() time.Time
}

// NewChatService wires the workflow. newStore opens the vector store
// backing a session's first index.
func NewChatService(
	extractor *Extractor,
	splitter *Splitter,
	answerer *Answerer,
	embedder ports.EmbeddingService,
	newStore func() (ports.VectorStore, error),
	sessions SessionStore,
	cfg ChatConfig,
	logger *zap.Logger,
) *ChatService {
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = DefaultMaxQuestionLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		extractor:   extractor,
		splitter:    splitter,
		answerer:    answerer,
		embedder:    embedder,
		newStore:    newStore,
		sessions:    sessions,
		validate:    validator.New(),
		maxQuestion: cfg.MaxQuestionLength,
		logger:      logger.Named("chat"),
		now:         time.Now,
	}
}

// AskWithFile extracts and ingests up, then answers question.
// A file whose name is already in the session is not ingested again.
func (s *ChatService) AskWithFile(ctx context.Context, up entities.Upload, question string) (*ChatResponse, error) {
	if !s.sessions.HasSession(ctx) {
		return nil, requestError(entities.StatusBadRequest, "No active session")
	}
	unlock := s.sessions.Lock(ctx)
	defer unlock()

	q, err := s.checkQuestion(question)
	if err != nil {
		return nil, err
	}

	ext := s.extractor.Extract(ctx, up)
	if !ext.HasText() {
		return nil, extractionFailure(ext)
	}

	info := &FileInfo{
		FileName:   up.Name,
		FileType:   NormalizeContentType(up.ContentType),
		TextLength: len([]rune(ext.Text)),
	}
	if s.sessions.DocumentExists(ctx, up.Name) {
		info.AlreadyIngested = true
		s.logger.Info("document already ingested", zap.String("file", up.Name))
	} else if err := s.ingest(ctx, up, ext.Text); err != nil {
		return nil, err
	}

	resp, err := s.answer(ctx, q)
	if err != nil {
		return nil, err
	}
	resp.FileInfo = info
	resp.ExtractionMetadata = ext.Metadata
	return resp, nil
}

// Ask answers question against the documents already in the session.
func (s *ChatService) Ask(ctx context.Context, question string) (*ChatResponse, error) {
	unlock := s.sessions.Lock(ctx)
	defer unlock()

	q, err := s.checkQuestion(question)
	if err != nil {
		return nil, err
	}
	return s.answer(ctx, q)
}

// IngestFile extracts and ingests up without asking anything. A document
// with the same name is replaced.
func (s *ChatService) IngestFile(ctx context.Context, up entities.Upload) (entities.ExtractionResult, error) {
	if !s.sessions.HasSession(ctx) {
		return entities.ExtractionResult{}, requestError(entities.StatusBadRequest, "No active session")
	}
	unlock := s.sessions.Lock(ctx)
	defer unlock()

	ext := s.extractor.Extract(ctx, up)
	if !ext.HasText() {
		return ext, extractionFailure(ext)
	}

	for i, doc := range s.sessions.Documents(ctx) {
		if doc.Name == up.Name {
			if _, err := s.removeDocument(ctx, i); err != nil {
				return ext, err
			}
			break
		}
	}
	return ext, s.ingest(ctx, up, ext.Text)
}

// Documents lists the session's documents in upload order.
func (s *ChatService) Documents(ctx context.Context) []entities.Document {
	unlock := s.sessions.Lock(ctx)
	defer unlock()
	return s.sessions.Documents(ctx)
}

// RemoveDocument removes the i-th document and its chunks, reporting
// whether i was in range.
func (s *ChatService) RemoveDocument(ctx context.Context, i int) (bool, error) {
	unlock := s.sessions.Lock(ctx)
	defer unlock()
	return s.removeDocument(ctx, i)
}

// RemoveDocumentByName removes the document called name, reporting
// whether it was present.
func (s *ChatService) RemoveDocumentByName(ctx context.Context, name string) (bool, error) {
	unlock := s.sessions.Lock(ctx)
	defer unlock()

	for i, doc := range s.sessions.Documents(ctx) {
		if doc.Name == name {
			return s.removeDocument(ctx, i)
		}
	}
	return false, nil
}

// ClearDocuments removes every document and the index.
func (s *ChatService) ClearDocuments(ctx context.Context) {
	unlock := s.sessions.Lock(ctx)
	defer unlock()

	s.sessions.ClearDocuments(ctx)
	s.sessions.ClearIndex(ctx)
}

// History returns the session's chat messages.
func (s *ChatService) History(ctx context.Context) []entities.ChatMessage {
	unlock := s.sessions.Lock(ctx)
	defer unlock()
	return s.sessions.Messages(ctx)
}

// NewChat clears the chat history and keeps the documents.
func (s *ChatService) NewChat(ctx context.Context) {
	unlock := s.sessions.Lock(ctx)
	defer unlock()
	s.sessions.ClearMessages(ctx)
}

func (s *ChatService) checkQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if err := s.validate.Var(q, "required"); err != nil {
		return "", requestError(entities.StatusBadRequest, "Question is empty")
	}
	if err := s.validate.Var(q, fmt.Sprintf("max=%d", s.maxQuestion)); err != nil {
		return "", requestError(entities.StatusBadRequest, "Question too long (max %d characters)", s.maxQuestion)
	}
	return q, nil
}

func (s *ChatService) ingest(ctx context.Context, up entities.Upload, text string) error {
	chunks, err := s.splitter.Split(text)
	if errors.Is(err, ErrInvalidInput) {
		return requestError(entities.StatusBadRequest, "Document contains no text")
	}
	if err != nil {
		return requestError(entities.StatusInternal, "Failed to split document: %v", err)
	}

	if index := s.sessions.GetIndex(ctx); index != nil {
		if err := index.Add(ctx, up.Name, chunks); err != nil {
			return requestError(entities.StatusInternal, "Failed to ingest document: %v", err)
		}
	} else {
		store, err := s.newStore()
		if err != nil {
			return requestError(entities.StatusInternal, "Failed to open vector store: %v", err)
		}
		index, err := BuildIndex(ctx, s.embedder, store, up.Name, chunks)
		if err != nil {
			store.Close()
			return requestError(entities.StatusInternal, "Failed to ingest document: %v", err)
		}
		s.sessions.SetIndex(ctx, index)
	}

	doc := s.sessions.AddDocument(ctx, entities.Document{
		Name:       up.Name,
		Text:       text,
		Size:       up.Size,
		UploadedAt: s.now(),
	})
	s.logger.Info("document ingested",
		zap.String("file", doc.Name),
		zap.Int("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return nil
}

func (s *ChatService) removeDocument(ctx context.Context, i int) (bool, error) {
	doc, ok := s.sessions.RemoveDocument(ctx, i)
	if !ok {
		return false, nil
	}
	s.logger.Info("document removed", zap.String("file", doc.Name))
	if len(s.sessions.Documents(ctx)) == 0 {
		s.sessions.ClearIndex(ctx)
		return true, nil
	}
	if index := s.sessions.GetIndex(ctx); index != nil {
		if err := index.Remove(ctx, doc.Name); err != nil {
			return true, requestError(entities.StatusInternal, "Failed to remove document: %v", err)
		}
	}
	return true, nil
}

func (s *ChatService) answer(ctx context.Context, question string) (*ChatResponse, error) {
	res := s.answerer.Answer(ctx, question)
	if res.Status != entities.StatusOK {
		return nil, &RequestError{Status: res.Status, Message: res.Message, Metadata: res.Metadata}
	}

	ts := s.now().Format(time.RFC3339)
	s.sessions.AddMessage(ctx, entities.RoleUser, question, ts)
	s.sessions.AddMessage(ctx, entities.RoleAssistant, res.Answer, ts)

	return &ChatResponse{
		Answer:      res.Answer,
		Status:      "success",
		Question:    question,
		RAGMetadata: res.Metadata,
	}, nil
}

// extractionFailure converts an extraction result without text into the
// error reported to the caller. Degraded results become 400.
func extractionFailure(ext entities.ExtractionResult) *RequestError {
	status := ext.Status
	if status.IsSuccess() {
		status = entities.StatusBadRequest
	}
	return &RequestError{Status: status, Message: ext.Message, Metadata: ext.Metadata}
}
