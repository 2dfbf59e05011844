package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/embedding"
	"github.com/0xcro3dile/docqa-go/internal/adapters/llm"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/ocr"
	"github.com/0xcro3dile/docqa-go/internal/adapters/pdf"
	"github.com/0xcro3dile/docqa-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	"github.com/0xcro3dile/docqa-go/internal/session"
)

// app holds the wired pipeline shared by every command.
type app struct {
	cfg       *config.AppConfig
	logger    *zap.Logger
	sessions  *session.Registry
	extractor *usecases.Extractor
	chat      *usecases.ChatService
	loader    *loader.FileLoader
}

func newExtractor(cfg *config.AppConfig, logger *zap.Logger) (*usecases.Extractor, error) {
	reader, err := pdf.New(cfg.PDF)
	if err != nil {
		return nil, err
	}
	engine := ocr.NewTesseract(cfg.OCR, logger)
	return usecases.NewExtractor(reader, engine, usecases.ExtractorConfig{
		PrimaryLanguage:  cfg.OCR.PrimaryLanguage,
		FallbackLanguage: cfg.OCR.FallbackLanguage,
		MinWidth:         cfg.OCR.MinWidth,
		MinHeight:        cfg.OCR.MinHeight,
	}, logger), nil
}

func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(cfg.Embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	model, err := llm.New(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	newStore, err := vectordb.NewFactory(cfg.Retrieval.Store)
	if err != nil {
		return nil, err
	}

	sessions := session.NewRegistry(cfg.Session.TTL, cfg.Session.CleanupInterval, logger)
	answerer := usecases.NewAnswerer(sessions, model, cfg.Retrieval.TopK, logger)
	chat := usecases.NewChatService(
		extractor,
		usecases.NewSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		answerer,
		embedder,
		newStore,
		sessions,
		usecases.ChatConfig{MaxQuestionLength: cfg.Server.MaxQuestionLength},
		logger,
	)

	logger.Info("pipeline ready",
		zap.String("embedder", cfg.Embedder.Provider),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("store", cfg.Retrieval.Store),
		zap.String("pdf_reader", cfg.PDF.Reader))

	return &app{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		extractor: extractor,
		chat:      chat,
		loader:    loader.NewFileLoader(),
	}, nil
}
