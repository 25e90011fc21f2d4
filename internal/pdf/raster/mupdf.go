package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

const defaultDPI = 200

// MuPDF renders each page with MuPDF, so text drawn with fonts ends up in
// the bitmap as well as embedded scans.
type MuPDF struct {
	dpi float64
}

// NewMuPDF returns a renderer producing PNG pages at dpi.
func NewMuPDF(dpi float64) *MuPDF {
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &MuPDF{dpi: dpi}
}

// Rasterize renders every page to PNG.
func (m *MuPDF) Rasterize(ctx context.Context, data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rendering: %w", err)
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rasterize canceled: %w", err)
		}
		img, err := doc.ImageDPI(i, m.dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Number: i + 1, Images: [][]byte{buf.Bytes()}})
	}
	return pages, nil
}
