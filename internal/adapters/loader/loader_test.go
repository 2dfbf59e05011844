package loader

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestFileLoader_SniffsContentType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"doc.pdf", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"), "application/pdf"},
		{"scan.png", pngBytes(t), "image/png"},
		{"notes.txt", []byte("plain words"), "text/plain"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.name, tc.data)
			up, err := NewFileLoader().Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, up.ContentType)
			assert.Equal(t, tc.name, up.Name)
			assert.Equal(t, path, up.Path)
			assert.Equal(t, int64(len(tc.data)), up.Size)
		})
	}
}

func TestFileLoader_KeepsSpecificDeclaredType(t *testing.T) {
	path := writeFile(t, "upload-123", pngBytes(t))

	up, err := NewFileLoader().LoadAs(context.Background(), path, "photo.jpg", "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", up.ContentType)
	assert.Equal(t, "photo.jpg", up.Name)

	up, err = NewFileLoader().LoadAs(context.Background(), path, "photo.png", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.ContentType)
}

func TestFileLoader_MissingFile(t *testing.T) {
	_, err := NewFileLoader().Load(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsSupportedExtension(t *testing.T) {
	assert.True(t, IsSupportedExtension("/in/a.PDF"))
	assert.True(t, IsSupportedExtension("b.jpeg"))
	assert.True(t, IsSupportedExtension("c.png"))
	assert.False(t, IsSupportedExtension("d.txt"))
	assert.False(t, IsSupportedExtension("noext"))
}
