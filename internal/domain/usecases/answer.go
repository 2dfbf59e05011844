package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// NotFoundAnswer is the exact reply the model is told to give when the
// context holds nothing relevant.
const NotFoundAnswer = "Tôi không tìm thấy thông tin này trong tài liệu."

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 10

// IndexSource yields the search index of the session carried by ctx.
type IndexSource interface {
	GetIndex(ctx context.Context) ports.SearchIndex
}

// Answerer answers questions from the chunks retrieved out of the
// session index, calling the language model once per question.
type Answerer struct {
	indexes IndexSource
	llm     ports.LLMService
	topK    int
	logger  *zap.Logger
}

// NewAnswerer creates an Answerer with injected dependencies.
func NewAnswerer(indexes IndexSource, llm ports.LLMService, topK int, logger *zap.Logger) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{
		indexes: indexes,
		llm:     llm,
		topK:    topK,
		logger:  logger.Named("answerer"),
	}
}

// Answer retrieves context for query and generates a grounded answer.
// Failures are reported through the result status, never as panics.
func (a *Answerer) Answer(ctx context.Context, query string) (result entities.AnswerResult) {
	defer func() {
		if r := recover(); r != nil {
			result = answerError(entities.StatusInternal, fmt.Sprint(r))
		}
		a.log(result)
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return answerError(entities.StatusBadRequest, "Query is empty")
	}

	index := a.indexes.GetIndex(ctx)
	if index == nil {
		return answerError(entities.StatusBadRequest, "No documents uploaded yet")
	}

	docs, err := index.Retrieve(ctx, query, a.topK)
	if err != nil {
		return answerError(entities.StatusInternal, err.Error())
	}
	if len(docs) == 0 {
		return answerError(entities.StatusNotFound, "No relevant documents found")
	}

	prompt := buildPrompt(query, docs)
	answer, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return answerError(entities.StatusInternal, fmt.Sprintf("generating response: %v", err))
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return answerError(entities.StatusInternal, "Model returned empty answer")
	}

	meta := map[string]any{
		"retrieved_docs_count": len(docs),
		"top_k":                a.topK,
		"sources":              sources(docs),
	}
	if info, ok := a.llm.(ports.ModelInfo); ok {
		meta["provider"] = info.Provider()
		meta["model"] = info.Model()
	}
	return entities.AnswerResult{
		Status:   entities.StatusOK,
		Answer:   answer,
		Message:  "Answer generated successfully",
		Metadata: meta,
	}
}

func (a *Answerer) log(r entities.AnswerResult) {
	fields := []zap.Field{
		zap.Int("status", r.Status.Code()),
		zap.Int("retrieved", r.RetrievedCount()),
	}
	switch {
	case r.Status.IsSuccess():
		a.logger.Info("answered question", fields...)
	case r.Status == entities.StatusInternal:
		a.logger.Error(r.Message, fields...)
	default:
		a.logger.Warn(r.Message, fields...)
	}
}

func answerError(status entities.Status, message string) entities.AnswerResult {
	return entities.AnswerResult{
		Status:   status,
		Message:  message,
		Metadata: map[string]any{"retrieved_docs_count": 0},
	}
}

// sources lists the distinct source documents in retrieval order.
func sources(docs []entities.QueryResult) []string {
	seen := make(map[string]bool, len(docs))
	var out []string
	for _, d := range docs {
		if d.SourceDoc == "" || seen[d.SourceDoc] {
			continue
		}
		seen[d.SourceDoc] = true
		out = append(out, d.SourceDoc)
	}
	return out
}

// buildPrompt creates the grounded prompt. Context keeps retrieval order.
func buildPrompt(query string, docs []entities.QueryResult) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Chunk.Content
	}

	var sb strings.Builder
	sb.WriteString("Bạn là một trợ lý AI hữu ích.\n\n")
	sb.WriteString("Chỉ sử dụng thông tin trong ngữ cảnh dưới đây để trả lời câu hỏi. ")
	sb.WriteString("Bạn có thể suy luận hợp lý từ tài liệu, nhưng không được đưa ra thông tin không có trong ngữ cảnh.\n\n")
	sb.WriteString("Nếu câu trả lời không được nêu trực tiếp nhưng có thể suy ra một cách hợp lý, ")
	sb.WriteString("hãy nói rõ: \"Dựa trên thông tin trong tài liệu, có thể suy ra rằng ...\".\n\n")
	sb.WriteString("Nếu hoàn toàn không có thông tin liên quan trong ngữ cảnh, chỉ trả lời đúng câu:\n\"")
	sb.WriteString(NotFoundAnswer)
	sb.WriteString("\"\n\nNgữ cảnh:\n")
	sb.WriteString(strings.Join(parts, "\n\n"))
	sb.WriteString("\n\nCâu hỏi:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nTrả lời:")
	return sb.String()
}
