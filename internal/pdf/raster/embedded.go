package raster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Embedded pulls the images already embedded in each page with pdfcpu. A
// scanner writes one bitmap per page, so this needs no renderer, but text
// drawn with fonts is not captured.
type Embedded struct {
	conf *model.Configuration
}

// NewEmbedded returns an Embedded rasterizer running pdfcpu in relaxed mode.
func NewEmbedded() *Embedded {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Embedded{conf: conf}
}

// Rasterize extracts embedded images page by page.
func (e *Embedded) Rasterize(ctx context.Context, data []byte) ([]Page, error) {
	perPage, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, e.conf)
	if err != nil {
		return nil, fmt.Errorf("extract page images: %w", err)
	}

	pages := make([]Page, 0, len(perPage))
	for i, images := range perPage {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rasterize canceled: %w", err)
		}
		objNrs := make([]int, 0, len(images))
		for objNr := range images {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		page := Page{Number: i + 1}
		for _, objNr := range objNrs {
			img := images[objNr]
			if img.PageNr > 0 {
				page.Number = img.PageNr
			}
			b, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image %d on page %d: %w", objNr, page.Number, err)
			}
			page.Images = append(page.Images, b)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
