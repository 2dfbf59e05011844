package usecases

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// letterEmbedder maps text to its a-z letter histogram.
type letterEmbedder struct {
	err      error
	short    bool // return one vector too few from EmbedBatch
	embedded int
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return letters(text), nil
}

func (e *letterEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, letters(t))
	}
	e.embedded += len(texts)
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func letters(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

type fakeLLM struct {
	answer  string
	err     error
	panics  bool
	prompts []string
}

func (l *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	l.prompts = append(l.prompts, prompt)
	if l.panics {
		panic("model exploded")
	}
	return l.answer, l.err
}

type namedLLM struct{ fakeLLM }

func (namedLLM) Provider() string { return "groq" }
func (namedLLM) Model() string    { return "llama-3.3-70b-versatile" }

type fakePDF struct {
	pages    []string
	byName   map[string][]string // pages per file base name, overrides pages
	pageErrs map[int]error
	openErr  error
	panics   bool
}

func (p *fakePDF) Open(_ context.Context, path string) (ports.PDFDocument, error) {
	if p.panics {
		panic("corrupt xref")
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	pages := p.pages
	if p.byName != nil {
		pages = p.byName[filepath.Base(path)]
	}
	return &fakePDFDoc{p: p, pages: pages}, nil
}

type fakePDFDoc struct {
	p      *fakePDF
	pages  []string
	closed bool
}

func (d *fakePDFDoc) NumPages() int { return len(d.pages) }

func (d *fakePDFDoc) PageText(page int) (string, error) {
	if err := d.p.pageErrs[page]; err != nil {
		return "", err
	}
	return d.pages[page-1], nil
}

func (d *fakePDFDoc) Close() error {
	d.closed = true
	return nil
}

type ocrReply struct {
	text string
	err  error
}

type fakeOCR struct {
	mu      sync.Mutex
	replies map[string]ocrReply
	calls   []string
}

func (o *fakeOCR) Recognize(_ context.Context, _ string, language string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, language)
	r, ok := o.replies[language]
	if !ok {
		return "", errors.New("Failed loading language '" + language + "'")
	}
	return r.text, r.err
}

type stubIndex struct {
	results []entities.QueryResult
	err     error
	queries []string
}

func (s *stubIndex) Add(context.Context, string, []string) error { return nil }
func (s *stubIndex) Remove(context.Context, string) error        { return nil }
func (s *stubIndex) Len() int                                    { return len(s.results) }
func (s *stubIndex) Close() error                                { return nil }

func (s *stubIndex) Retrieve(_ context.Context, query string, k int) ([]entities.QueryResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results[:min(k, len(s.results))], nil
}

type stubIndexSource struct{ index ports.SearchIndex }

func (s stubIndexSource) GetIndex(context.Context) ports.SearchIndex { return s.index }

func result(source, content string, score float64) entities.QueryResult {
	return entities.QueryResult{
		Chunk:     entities.Chunk{DocumentID: source, Content: content},
		Score:     score,
		SourceDoc: source,
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func pngFile(t *testing.T, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return writeFile(t, name, buf.Bytes())
}
