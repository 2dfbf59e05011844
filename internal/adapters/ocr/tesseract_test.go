package ocr

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

func TestTesseract_BuildsCommand(t *testing.T) {
	tess := NewTesseract(config.OCRConfig{PageSegmentationMode: 6}, nil)
	tess.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	var gotName string
	var gotArgs []string
	tess.run = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("Xin chào\n"), nil, nil
	}

	text, err := tess.Recognize(context.Background(), "/tmp/scan.png", "vie")
	require.NoError(t, err)
	assert.Equal(t, "Xin chào\n", text)
	assert.Equal(t, "/usr/bin/tesseract", gotName)
	assert.Equal(t, []string{"/tmp/scan.png", "stdout", "-l", "vie", "--psm", "6"}, gotArgs)
}

func TestTesseract_NotInstalled(t *testing.T) {
	tess := NewTesseract(config.OCRConfig{}, nil)
	tess.lookPath = func(name string) (string, error) {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}

	_, err := tess.Recognize(context.Background(), "a.png", "eng")
	assert.ErrorIs(t, err, ports.ErrEngineNotInstalled)
}

func TestTesseract_RunFailureIncludesStderr(t *testing.T) {
	tess := NewTesseract(config.OCRConfig{}, nil)
	tess.lookPath = func(name string) (string, error) { return name, nil }
	tess.run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, []byte("Failed loading language 'vie'\n"), errors.New("exit status 1")
	}

	_, err := tess.Recognize(context.Background(), "a.png", "vie")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrEngineNotInstalled)
	assert.Contains(t, err.Error(), "Failed loading language 'vie'")
}
