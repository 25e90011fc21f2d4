// Package raster turns PDF pages into bitmaps for OCR.
package raster

import (
	"context"
	"fmt"
	"strings"
)

// Page holds the encoded images for one PDF page, in drawing order.
type Page struct {
	Number int
	Images [][]byte
}

// Rasterizer converts every page of a PDF into images.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]Page, error)
}

// Kinds accepted by New.
const (
	KindMuPDF    = "mupdf"
	KindEmbedded = "embedded"
)

// New returns the rasterizer registered under kind.
func New(kind string, dpi float64) (Rasterizer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindMuPDF, "":
		return NewMuPDF(dpi), nil
	case KindEmbedded:
		return NewEmbedded(), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", kind)
	}
}
