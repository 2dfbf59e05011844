package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Server.MaxUploadMB)
	assert.Equal(t, 500, cfg.Server.MaxQuestionLength)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.Retrieval.Store)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 800, cfg.LLM.MaxTokens)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, "vie", cfg.OCR.PrimaryLanguage)
	assert.Equal(t, "eng", cfg.OCR.FallbackLanguage)
	assert.Equal(t, 6, cfg.OCR.PageSegmentationMode)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
session:
  ttl: 30m
chunker:
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 4
  store: sqlite
llm:
  provider: groq
embedder:
  provider: hashing
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "sqlite", cfg.Retrieval.Store)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 512, cfg.Embedder.Dimensions)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCQA_LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("DOCQA_TOP_K", "3")
	t.Setenv("DOCQA_ADDR", ":7000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown llm", func(c *AppConfig) { c.LLM.Provider = "bard" }},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Provider = "word2vec" }},
		{"unknown store", func(c *AppConfig) { c.Retrieval.Store = "faiss" }},
		{"unknown pdf reader", func(c *AppConfig) { c.PDF.Reader = "ocr" }},
		{"overlap too large", func(c *AppConfig) { c.Chunker.ChunkOverlap = c.Chunker.ChunkSize }},
		{"non-positive top k", func(c *AppConfig) { c.Retrieval.TopK = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docqa.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 7
	cfg.Session.TTL = 15 * time.Minute

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
	assert.Equal(t, 15*time.Minute, loaded.Session.TTL)
}
