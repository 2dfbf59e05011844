// Package pdf provides PDF text-layer readers implementing ports.PDFReader.
package pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// NativeReader reads the embedded text layer in-process.
type NativeReader struct{}

// NewNativeReader creates a NativeReader.
func NewNativeReader() *NativeReader { return &NativeReader{} }

// Open parses the cross-reference table of the file at path.
func (NativeReader) Open(ctx context.Context, path string) (ports.PDFDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, r, err := openPDF(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	return &nativeDocument{file: f, reader: r}, nil
}

// openPDF guards against the parser panicking on malformed input.
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.Open(path)
}

type nativeDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *nativeDocument) NumPages() int { return d.reader.NumPage() }

func (d *nativeDocument) PageText(page int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page %d: %v: %w", page, rec, ports.ErrPageUnreadable)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: %w", page, ports.ErrPageUnreadable)
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %v: %w", page, err, ports.ErrPageUnreadable)
	}
	return text, nil
}

func (d *nativeDocument) Close() error { return d.file.Close() }

// New selects the reader named by cfg.Reader.
func New(cfg config.PDFConfig) (ports.PDFReader, error) {
	switch cfg.Reader {
	case "", "native":
		return NewNativeReader(), nil
	case "service":
		return NewServiceReader(cfg.ServiceURL), nil
	}
	return nil, fmt.Errorf("unsupported pdf reader %q", cfg.Reader)
}
