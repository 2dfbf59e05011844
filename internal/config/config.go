// Package config loads the application configuration from a YAML file,
// an optional .env file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	MaxUploadMB       int    `yaml:"max_upload_mb"`
	MaxQuestionLength int    `yaml:"max_question_length"`
	UploadDir         string `yaml:"upload_dir"`
}

// SessionConfig configures session expiry.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ChunkerConfig configures document splitting, in characters.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig configures the session index.
type RetrievalConfig struct {
	TopK  int    `yaml:"top_k"`
	Store string `yaml:"store"` // memory | sqlite
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider   string        `yaml:"provider"` // ollama | openai | hashing
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai | groq | ollama
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OCRConfig configures the tesseract engine.
type OCRConfig struct {
	Binary               string `yaml:"binary"`
	PrimaryLanguage      string `yaml:"primary_language"`
	FallbackLanguage     string `yaml:"fallback_language"`
	PageSegmentationMode int    `yaml:"page_segmentation_mode"`
	MinWidth             int    `yaml:"min_width"`
	MinHeight            int    `yaml:"min_height"`
}

// PDFConfig selects the PDF text-layer reader.
type PDFConfig struct {
	Reader     string `yaml:"reader"` // native | service
	ServiceURL string `yaml:"service_url"`
}

// WatcherConfig configures inbox auto-ingestion.
type WatcherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Session string `yaml:"session"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	OCR       OCRConfig       `yaml:"ocr"`
	PDF       PDFConfig       `yaml:"pdf"`
	Watcher   WatcherConfig   `yaml:"watcher"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads path, applies defaults, loads .env if present and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects unknown providers and inconsistent sizes.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Provider {
	case "ollama", "openai", "hashing":
	default:
		return fmt.Errorf("unsupported embedder provider %q", c.Embedder.Provider)
	}
	switch c.LLM.Provider {
	case "openai", "groq", "ollama":
	default:
		return fmt.Errorf("unsupported LLM provider %q", c.LLM.Provider)
	}
	switch c.Retrieval.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported vector store %q", c.Retrieval.Store)
	}
	switch c.PDF.Reader {
	case "native", "service":
	default:
		return fmt.Errorf("unsupported pdf reader %q", c.PDF.Reader)
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Server.Addr, "DOCQA_ADDR")
	setString(&cfg.Log.Level, "DOCQA_LOG_LEVEL")
	setString(&cfg.LLM.Provider, "DOCQA_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "DOCQA_LLM_MODEL")
	setString(&cfg.Embedder.Provider, "DOCQA_EMBEDDER_PROVIDER")
	setString(&cfg.Embedder.Model, "DOCQA_EMBEDDER_MODEL")
	setString(&cfg.Retrieval.Store, "DOCQA_VECTOR_STORE")
	setInt(&cfg.Retrieval.TopK, "DOCQA_TOP_K")
	setInt(&cfg.Chunker.ChunkSize, "DOCQA_CHUNK_SIZE")
	setInt(&cfg.Chunker.ChunkOverlap, "DOCQA_CHUNK_OVERLAP")

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "groq":
			cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
		case "openai", "":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Embedder.APIKey == "" && cfg.Embedder.Provider == "openai" {
		cfg.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 10
	}
	if cfg.Server.MaxQuestionLength == 0 {
		cfg.Server.MaxQuestionLength = 500
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = os.TempDir()
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = time.Hour
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.Store == "" {
		cfg.Retrieval.Store = "memory"
	}

	applyEmbedderDefaults(&cfg.Embedder)
	applyLLMDefaults(&cfg.LLM)

	if cfg.OCR.Binary == "" {
		cfg.OCR.Binary = "tesseract"
	}
	if cfg.OCR.PrimaryLanguage == "" {
		cfg.OCR.PrimaryLanguage = "vie"
	}
	if cfg.OCR.FallbackLanguage == "" {
		cfg.OCR.FallbackLanguage = "eng"
	}
	if cfg.OCR.PageSegmentationMode == 0 {
		cfg.OCR.PageSegmentationMode = 6
	}
	if cfg.OCR.MinWidth == 0 {
		cfg.OCR.MinWidth = 100
	}
	if cfg.OCR.MinHeight == 0 {
		cfg.OCR.MinHeight = 100
	}

	if cfg.PDF.Reader == "" {
		cfg.PDF.Reader = "native"
	}
	if cfg.PDF.ServiceURL == "" {
		cfg.PDF.ServiceURL = "http://localhost:8081"
	}

	if cfg.Watcher.Dir == "" {
		cfg.Watcher.Dir = "./inbox"
	}
	if cfg.Watcher.Session == "" {
		cfg.Watcher.Session = "inbox"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
}

func applyEmbedderDefaults(c *EmbedderConfig) {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	switch c.Provider {
	case "ollama":
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:11434"
		}
		if c.Model == "" {
			c.Model = "nomic-embed-text"
		}
	case "openai":
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
		if c.BatchSize == 0 {
			c.BatchSize = 32
		}
	case "hashing":
		if c.Dimensions == 0 {
			c.Dimensions = 512
		}
	}
}

func applyLLMDefaults(c *LLMConfig) {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 800
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	switch c.Provider {
	case "openai":
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.Model == "" {
			c.Model = "gpt-4o"
		}
	case "groq":
		if c.BaseURL == "" {
			c.BaseURL = "https://api.groq.com/openai/v1"
		}
		if c.Model == "" {
			c.Model = "llama-3.1-8b-instant"
		}
	case "ollama":
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:11434"
		}
		if c.Model == "" {
			c.Model = "llama3.2"
		}
	}
}
