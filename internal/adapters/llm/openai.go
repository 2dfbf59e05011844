package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// OpenAI implements ports.LLMService for OpenAI-compatible chat completion
// APIs. Groq is served by the same client with a different base URL.
type OpenAI struct {
	name    string
	apiKey  string
	apiBase string
	model   string
	opts    Options
	client  *http.Client
	logger  *zap.Logger
}

// OpenAIConfig configures an OpenAI client.
type OpenAIConfig struct {
	Name    string // provider name reported in metadata, default "openai"
	APIKey  string
	APIBase string
	Model   string
	Options Options
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewOpenAI creates an OpenAI-compatible client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: missing API key", cfg.Name)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &OpenAI{
		name:    cfg.Name,
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		opts:    cfg.Options,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.Named("llm." + cfg.Name),
	}, nil
}

// Provider returns the configured provider name.
func (o *OpenAI) Provider() string { return o.name }

// Model returns the model name.
func (o *OpenAI) Model() string { return o.model }

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Stream      bool         `json:"stream"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []struct {
		Message      oaiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as a single user message and returns the reply.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	body := oaiRequest{
		Model:    o.model,
		Messages: []oaiMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	if o.opts.MaxTokens > 0 {
		body.MaxTokens = o.opts.MaxTokens
	}
	if o.opts.Temperature > 0 {
		t := o.opts.Temperature
		body.Temperature = &t
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s %d: %s", o.name, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var out oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New(o.name + ": response has no choices")
	}

	o.logger.Debug("generated completion",
		zap.String("model", o.model),
		zap.String("finish_reason", out.Choices[0].FinishReason),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens))
	return out.Choices[0].Message.Content, nil
}
