package usecases

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Supported upload content types.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// ExtractorConfig tunes image OCR.
type ExtractorConfig struct {
	PrimaryLanguage  string // tried first, default "vie"
	FallbackLanguage string // tried once if the primary fails, default "eng"
	MinWidth         int    // default 100
	MinHeight        int    // default 100
}

// Extractor turns an uploaded PDF or image into text, classifying every
// failure into a status.
type Extractor struct {
	pdf    ports.PDFReader
	ocr    ports.OCREngine
	cfg    ExtractorConfig
	logger *zap.Logger
}

// NewExtractor creates an Extractor with injected readers.
func NewExtractor(pdf ports.PDFReader, ocr ports.OCREngine, cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if cfg.PrimaryLanguage == "" {
		cfg.PrimaryLanguage = "vie"
	}
	if cfg.FallbackLanguage == "" {
		cfg.FallbackLanguage = "eng"
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = 100
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{pdf: pdf, ocr: ocr, cfg: cfg, logger: logger.Named("extractor")}
}

// NormalizeContentType lowercases ct, drops parameters and maps aliases.
func NormalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" || ct == "image/pjpeg" {
		return ContentTypeJPEG
	}
	return ct
}

// Supported reports whether ct is an accepted upload type.
func Supported(ct string) bool {
	switch NormalizeContentType(ct) {
	case ContentTypePDF, ContentTypeJPEG, ContentTypePNG:
		return true
	}
	return false
}

// Extract extracts text from up.
func (e *Extractor) Extract(ctx context.Context, up entities.Upload) (result entities.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = extractionError(entities.StatusInternal, fmt.Sprintf("Extraction failed: %v", r), nil)
		}
		e.log(up, result)
	}()

	ct := NormalizeContentType(up.ContentType)
	if !Supported(ct) {
		return extractionError(entities.StatusBadRequest,
			fmt.Sprintf("Unsupported file type: %s. Supported types: PDF, JPEG, PNG", up.ContentType), nil)
	}

	if _, err := os.Stat(up.Path); errors.Is(err, fs.ErrNotExist) {
		return fileNotFound(up)
	}

	if ct == ContentTypePDF {
		return e.extractPDF(ctx, up)
	}
	return e.extractImage(ctx, up)
}

func (e *Extractor) extractPDF(ctx context.Context, up entities.Upload) entities.ExtractionResult {
	doc, err := e.pdf.Open(ctx, up.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileNotFound(up)
	}
	if err != nil {
		return extractionError(entities.StatusInternal, fmt.Sprintf("PDF extraction failed: %v", err), nil)
	}
	defer doc.Close()

	total := doc.NumPages()
	if total == 0 {
		return extractionError(entities.StatusBadRequest, "PDF file is empty (0 pages)", nil)
	}

	var pages []string
	empty := []int{}
	for p := 1; p <= total; p++ {
		text, err := doc.PageText(p)
		if err != nil {
			e.logger.Debug("page unreadable", zap.String("file", up.Name), zap.Int("page", p), zap.Error(err))
			empty = append(empty, p)
			continue
		}
		if strings.TrimSpace(text) == "" {
			empty = append(empty, p)
			continue
		}
		pages = append(pages, text)
	}

	full := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if full == "" {
		if len(empty) == total {
			return extractionError(entities.StatusUnprocessable,
				"No text extracted from PDF. This may be a scanned document.",
				map[string]any{"total_pages": total, "empty_pages": empty})
		}
		return extractionError(entities.StatusInternal, "Failed to extract text from PDF",
			map[string]any{"total_pages": total, "empty_pages": empty})
	}

	return entities.ExtractionResult{
		Status:  entities.StatusOK,
		Text:    full,
		Message: fmt.Sprintf("Extracted text from %d/%d pages", len(pages), total),
		Metadata: map[string]any{
			"total_pages":     total,
			"extracted_pages": len(pages),
			"empty_pages":     empty,
			"character_count": utf8.RuneCountInString(full),
		},
	}
}

func (e *Extractor) extractImage(ctx context.Context, up entities.Upload) entities.ExtractionResult {
	f, err := os.Open(up.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileNotFound(up)
	}
	if err != nil {
		return extractionError(entities.StatusInternal, fmt.Sprintf("Image OCR failed: %v", err), nil)
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return extractionError(entities.StatusInternal, fmt.Sprintf("Image OCR failed: decoding image: %v", err), nil)
	}

	if cfg.Width < e.cfg.MinWidth || cfg.Height < e.cfg.MinHeight {
		return entities.ExtractionResult{
			Status:   entities.StatusPartial,
			Message:  "Image resolution too low for OCR",
			Metadata: map[string]any{"width": cfg.Width, "height": cfg.Height},
		}
	}

	text, lang, err := e.recognize(ctx, up.Path)
	if errors.Is(err, ports.ErrEngineNotInstalled) {
		return extractionError(entities.StatusInternal, "Tesseract OCR not installed",
			map[string]any{"error_type": "tesseract_not_found"})
	}
	if err != nil {
		return extractionError(entities.StatusInternal, fmt.Sprintf("Image OCR failed: %v", err), nil)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return entities.ExtractionResult{
			Status:  entities.StatusPartial,
			Message: "No text detected in image",
			Metadata: map[string]any{
				"width":    cfg.Width,
				"height":   cfg.Height,
				"language": lang,
			},
		}
	}

	return entities.ExtractionResult{
		Status:  entities.StatusOK,
		Text:    text,
		Message: fmt.Sprintf("OCR successful (%s)", languageName(lang)),
		Metadata: map[string]any{
			"width":           cfg.Width,
			"height":          cfg.Height,
			"language_used":   lang,
			"character_count": utf8.RuneCountInString(text),
			"word_count":      len(strings.Fields(text)),
		},
	}
}

// recognize runs OCR in the primary language and retries once in the
// fallback language. A missing engine is never retried.
func (e *Extractor) recognize(ctx context.Context, path string) (string, string, error) {
	lang := e.cfg.PrimaryLanguage
	text, err := e.ocr.Recognize(ctx, path, lang)
	if err == nil || errors.Is(err, ports.ErrEngineNotInstalled) {
		return text, lang, err
	}

	e.logger.Warn("primary OCR language failed, falling back",
		zap.String("language", lang),
		zap.String("fallback", e.cfg.FallbackLanguage),
		zap.Error(err))

	lang = e.cfg.FallbackLanguage
	text, err = e.ocr.Recognize(ctx, path, lang)
	return text, lang, err
}

func (e *Extractor) log(up entities.Upload, r entities.ExtractionResult) {
	fields := []zap.Field{
		zap.String("file", up.Name),
		zap.String("content_type", up.ContentType),
		zap.Int("status", r.Status.Code()),
	}
	switch {
	case r.Status.IsSuccess():
		e.logger.Info(r.Message, fields...)
	case r.Status == entities.StatusInternal:
		e.logger.Error(r.Message, fields...)
	default:
		e.logger.Warn(r.Message, fields...)
	}
}

func fileNotFound(up entities.Upload) entities.ExtractionResult {
	return extractionError(entities.StatusNotFound, fmt.Sprintf("File not found: %s", up.Name), nil)
}

func extractionError(status entities.Status, message string, meta map[string]any) entities.ExtractionResult {
	if meta == nil {
		meta = map[string]any{}
	}
	return entities.ExtractionResult{Status: status, Message: message, Metadata: meta}
}

func languageName(code string) string {
	switch code {
	case "vie":
		return "Vietnamese"
	case "eng":
		return "English"
	}
	return code
}
