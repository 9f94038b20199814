// Package ocr provides the optical text recognition seam used by the
// coordinate extraction chain. Recognition runs out of process through the
// tesseract CLI so the server carries no cgo dependency; deployments without
// the binary simply skip the OCR tier.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Recognizer extracts visible text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// TesseractRecognizer shells out to the tesseract binary, feeding it a PNG on
// stdin and reading plain text from stdout.
type TesseractRecognizer struct {
	Path string
	Log  *zap.Logger
}

// NewTesseractRecognizer resolves the binary and returns nil when tesseract
// is not installed, which disables the OCR tier.
func NewTesseractRecognizer(path string, log *zap.Logger) *TesseractRecognizer {
	if path == "" {
		path = "tesseract"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		log.Info("tesseract not found, OCR extraction disabled", zap.String("path", path))
		return nil
	}
	return &TesseractRecognizer{Path: resolved, Log: log}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, preprocess(img)); err != nil {
		return "", fmt.Errorf("encoding image for OCR: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.Path, "stdin", "stdout", "-l", "eng", "--psm", "6")
	cmd.Stdin = &buf
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("tesseract failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := out.String()
	t.Log.Debug("OCR recognized text", zap.Int("bytes", len(text)))
	return text, nil
}

// preprocess improves recognition of coordinate overlays: grayscale, and
// upscale small images so overlay text clears tesseract's minimum glyph size.
func preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	if w := gray.Bounds().Dx(); w > 0 && w < 1200 {
		gray = imaging.Resize(gray, w*2, 0, imaging.Lanczos)
	}
	return gray
}
