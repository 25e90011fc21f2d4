// Package pdftest builds small real PDF documents for tests.
package pdftest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// TextPDF renders one page per element of pages; each string is drawn on
// its own baseline.
func TextPDF(tb testing.TB, pages ...[]string) []byte {
	tb.Helper()
	doc := newDoc()
	for _, lines := range pages {
		doc.AddPage()
		for i, line := range lines {
			doc.Text(20, 30+float64(i)*10, line)
		}
	}
	return output(tb, doc)
}

// TablePDF renders an intro line followed by a grid whose cells sit at fixed
// column offsets, the way financial tables are typeset.
func TablePDF(tb testing.TB, intro string, rows [][]string) []byte {
	tb.Helper()
	doc := newDoc()
	doc.AddPage()
	doc.Text(20, 20, intro)
	for r, row := range rows {
		for c, cell := range row {
			doc.Text(20+float64(c)*60, 40+float64(r)*10, cell)
		}
	}
	return output(tb, doc)
}

// ImagePDF renders a single page holding only a bitmap, like a scanned page.
func ImagePDF(tb testing.TB) []byte {
	tb.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		img.SetGray(x, x, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}

	doc := newDoc()
	doc.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("scan", opts, &buf)
	doc.ImageOptions("scan", 10, 10, 100, 100, false, opts, 0, "")
	return output(tb, doc)
}

func newDoc() *gofpdf.Fpdf {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 11)
	return doc
}

func output(tb testing.TB, doc *gofpdf.Fpdf) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		tb.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}
