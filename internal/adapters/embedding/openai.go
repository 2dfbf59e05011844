package embedding

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

const maxAttempts = 3

// OpenAIAdapter implements ports.EmbeddingService against an
// OpenAI-compatible /embeddings endpoint.
type OpenAIAdapter struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// OpenAIConfig configures an OpenAIAdapter.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewOpenAIAdapter creates a new OpenAI embedding adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &OpenAIAdapter{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger.Named("embedding.openai"),
		sleep:     sleepCtx,
	}, nil
}

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := a.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		vecs, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch at %d: %w", start, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (a *OpenAIAdapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Input: texts, Model: a.model})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := a.sleep(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		vecs, retry, err := a.post(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retry {
			break
		}
		a.logger.Warn("embedding request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}

// post sends one request. retry reports whether the failure is transient.
func (a *OpenAIAdapter) post(ctx context.Context, body []byte, n int) (vecs [][]float32, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, fmt.Errorf("embeddings API %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Data) != n {
		return nil, false, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(out.Data), n)
	}

	vecs = make([][]float32, n)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= n || len(d.Embedding) == 0 {
			return nil, false, fmt.Errorf("embeddings API returned an invalid item at index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, false, nil
}

// retryDelay is exponential backoff from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
