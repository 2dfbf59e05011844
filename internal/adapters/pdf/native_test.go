package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// buildPDF writes a minimal PDF with one line of Helvetica text per page.
// An empty string produces a page with an empty content stream.
func buildPDF(t *testing.T, name string, pages ...string) string {
	t.Helper()

	// 1 catalog, 2 page tree, 3 font, then a page and its content per page
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i, text := range pages {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		var stream string
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	return writeTemp(t, name, buf.Bytes())
}

const policyLine = "Muc phat vi pham an toan la 500.000 VND."

func TestNativeReader_SinglePage(t *testing.T) {
	doc, err := NewNativeReader().Open(context.Background(), buildPDF(t, "policy.pdf", policyLine))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 1, doc.NumPages())
	text, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, text, "500.000 VND")
}

func TestNativeReader_BlankFirstPage(t *testing.T) {
	doc, err := NewNativeReader().Open(context.Background(), buildPDF(t, "two.pdf", "", "Page two text"))
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())

	first, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(first))

	second, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Contains(t, second, "Page two text")
}

func TestNativeReader_Extractor(t *testing.T) {
	e := usecases.NewExtractor(NewNativeReader(), nil, usecases.ExtractorConfig{}, nil)

	res := e.Extract(context.Background(), entities.Upload{
		Name:        "policy.pdf",
		ContentType: "application/pdf",
		Path:        buildPDF(t, "policy.pdf", policyLine),
	})
	require.Equal(t, entities.StatusOK, res.Status, res.Message)
	assert.Contains(t, res.Text, "500.000")
	assert.Equal(t, 1, res.Metadata["total_pages"])
	assert.Equal(t, 1, res.Metadata["extracted_pages"])
	assert.Equal(t, "Extracted text from 1/1 pages", res.Message)

	res = e.Extract(context.Background(), entities.Upload{
		Name:        "two.pdf",
		ContentType: "application/pdf",
		Path:        buildPDF(t, "two.pdf", "", "Page two text"),
	})
	require.Equal(t, entities.StatusOK, res.Status, res.Message)
	assert.Equal(t, 1, res.Metadata["extracted_pages"])
	assert.Equal(t, []int{1}, res.Metadata["empty_pages"])
}
