// Package loader turns files on disk into uploads for the extraction pipeline.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
)

// genericTypes are declared content types that say nothing about the file.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// FileLoader describes local files as entities.Upload.
type FileLoader struct{}

// NewFileLoader creates a new file loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load stats path and sniffs its content type.
func (l *FileLoader) Load(ctx context.Context, path string) (entities.Upload, error) {
	return l.LoadAs(ctx, path, filepath.Base(path), "")
}

// LoadAs builds an upload for path under the display name name. A
// specific declared content type is kept; a generic or missing one is
// replaced by sniffing the file header.
func (l *FileLoader) LoadAs(ctx context.Context, path, name, declared string) (entities.Upload, error) {
	if err := ctx.Err(); err != nil {
		return entities.Upload{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return entities.Upload{}, err
	}
	if info.IsDir() {
		return entities.Upload{}, fmt.Errorf("%s is a directory", path)
	}

	ct := usecases.NormalizeContentType(declared)
	if genericTypes[ct] {
		ct, err = DetectContentType(path)
		if err != nil {
			return entities.Upload{}, err
		}
	}

	return entities.Upload{
		Name:        name,
		ContentType: ct,
		Path:        path,
		Size:        info.Size(),
	}, nil
}

// DetectContentType sniffs the MIME type of the file at path.
func DetectContentType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting content type: %w", err)
	}
	return usecases.NormalizeContentType(mtype.String()), nil
}

// SupportedExtensions returns the file extensions the pipeline accepts.
func SupportedExtensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png"}
}

// IsSupportedExtension reports whether path has a supported extension.
func IsSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}
