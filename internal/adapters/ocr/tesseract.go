// Package ocr runs the tesseract command-line engine.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// runFunc executes name with args and returns stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Tesseract implements ports.OCREngine by shelling out to tesseract.
type Tesseract struct {
	binary   string
	psm      int
	lookPath func(string) (string, error)
	run      runFunc
	logger   *zap.Logger
}

// NewTesseract creates an engine from cfg.
func NewTesseract(cfg config.OCRConfig, logger *zap.Logger) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tesseract{
		binary:   cfg.Binary,
		psm:      cfg.PageSegmentationMode,
		lookPath: exec.LookPath,
		run:      runCommand,
		logger:   logger.Named("ocr"),
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Recognize returns the text tesseract finds in imagePath using language.
func (t *Tesseract) Recognize(ctx context.Context, imagePath, language string) (string, error) {
	bin, err := t.lookPath(t.binary)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", t.binary, ports.ErrEngineNotInstalled)
		}
		return "", fmt.Errorf("locating %s: %w", t.binary, err)
	}

	args := []string{imagePath, "stdout", "-l", language}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}

	stdout, stderr, err := t.run(ctx, bin, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		t.logger.Debug("tesseract failed",
			zap.String("language", language),
			zap.String("stderr", msg),
			zap.Error(err))
		if msg != "" {
			return "", fmt.Errorf("tesseract (%s): %s: %w", language, msg, err)
		}
		return "", fmt.Errorf("tesseract (%s): %w", language, err)
	}
	return string(stdout), nil
}
