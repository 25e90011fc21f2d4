// Package ocr recognizes text in page images.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes the text in one encoded image (PNG, JPEG, TIFF).
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config selects Tesseract language packs.
type Config struct {
	Languages []string
}

// Tesseract wraps a gosseract client. The client is not safe for concurrent
// use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a Tesseract engine for the configured languages.
func NewTesseract(cfg Config) (*Tesseract, error) {
	client := gosseract.NewClient()
	langs := make([]string, 0, len(cfg.Languages))
	for _, l := range cfg.Languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			closeErr := client.Close()
			return nil, errors.Join(fmt.Errorf("set ocr languages: %w", err), closeErr)
		}
	}
	return &Tesseract{client: client}, nil
}

// Recognize runs OCR over a single image.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("ocr canceled: %w", err)
	}
	if len(image) == 0 {
		return "", errors.New("empty image")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract handle.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.Close(); err != nil {
		return fmt.Errorf("close tesseract: %w", err)
	}
	return nil
}
