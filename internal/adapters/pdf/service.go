package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// ServiceReader implements ports.PDFReader by posting the file to an
// external text-extraction service. The service answers per page so the
// extractor can still report empty pages.
type ServiceReader struct {
	serviceURL string
	client     *http.Client
}

// NewServiceReader creates a reader that calls the service at serviceURL.
func NewServiceReader(serviceURL string) *ServiceReader {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &ServiceReader{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// parseResponse is the service response format.
type parseResponse struct {
	Pages   []string `json:"pages"`
	Library string   `json:"library,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Open reads path and asks the service for its page texts.
func (s *ServiceReader) Open(ctx context.Context, path string) (ports.PDFDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("PDF parse error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	return &pagesDocument{pages: result.Pages}, nil
}

// IsServiceHealthy checks if the service is running.
func (s *ServiceReader) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// pagesDocument serves page texts that were extracted up front.
type pagesDocument struct {
	pages []string
}

func (d *pagesDocument) NumPages() int { return len(d.pages) }

func (d *pagesDocument) PageText(page int) (string, error) {
	if page < 1 || page > len(d.pages) {
		return "", fmt.Errorf("page %d out of range: %w", page, ports.ErrPageUnreadable)
	}
	return d.pages[page-1], nil
}

func (d *pagesDocument) Close() error { return nil }
