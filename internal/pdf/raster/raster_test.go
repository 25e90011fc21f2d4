package raster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bde-document-crawler/internal/pdf/pdftest"
)

func TestNewSelectsRasterizer(t *testing.T) {
	t.Parallel()

	r, err := New("mupdf", 0)
	require.NoError(t, err)
	assert.IsType(t, &MuPDF{}, r)
	assert.InDelta(t, defaultDPI, r.(*MuPDF).dpi, 0.001)

	r, err = New("Embedded", 0)
	require.NoError(t, err)
	assert.IsType(t, &Embedded{}, r)

	_, err = New("ghostscript", 0)
	require.Error(t, err)
}

func TestMuPDFRendersEveryPage(t *testing.T) {
	t.Parallel()

	data := pdftest.TextPDF(t, []string{"page one"}, []string{"page two"})
	pages, err := NewMuPDF(72).Rasterize(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		require.Len(t, p.Images, 1)
		assert.Equal(t, []byte("\x89PNG"), p.Images[0][:4])
	}
}

func TestMuPDFRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewMuPDF(72).Rasterize(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
}

func TestEmbeddedExtractsScannedPage(t *testing.T) {
	t.Parallel()

	pages, err := NewEmbedded().Rasterize(context.Background(), pdftest.ImagePDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.NotEmpty(t, pages[0].Images)
	assert.NotEmpty(t, pages[0].Images[0])
}
