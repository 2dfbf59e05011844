// Package llm provides language model adapters implementing ports.LLMService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultHTTPTimeout = 120 * time.Second

// Options are the sampling settings sent with every request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// OllamaLLMAdapter implements ports.LLMService using the Ollama generate API.
type OllamaLLMAdapter struct {
	baseURL string
	model   string
	opts    Options
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaLLMAdapter creates a new Ollama LLM adapter.
func NewOllamaLLMAdapter(baseURL, model string, opts Options, timeout time.Duration, logger *zap.Logger) *OllamaLLMAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaLLMAdapter{
		baseURL: baseURL,
		model:   model,
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("llm.ollama"),
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Provider returns "ollama".
func (a *OllamaLLMAdapter) Provider() string { return "ollama" }

// Model returns the model name.
func (a *OllamaLLMAdapter) Model() string { return a.model }

// Generate produces a single non-streamed completion for prompt.
func (a *OllamaLLMAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
	}
	if a.opts.Temperature > 0 || a.opts.MaxTokens > 0 {
		reqBody.Options = map[string]any{}
		if a.opts.Temperature > 0 {
			reqBody.Options["temperature"] = a.opts.Temperature
		}
		if a.opts.MaxTokens > 0 {
			reqBody.Options["num_predict"] = a.opts.MaxTokens
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	a.logger.Debug("generated completion",
		zap.String("model", a.model),
		zap.Duration("took", time.Since(start)),
		zap.Int("chars", len(genResp.Response)))
	return genResp.Response, nil
}
