// Package tables detects tabular regions in a PDF text layer and serializes
// each one as tab-separated text.
//
// A table is a run of at least two consecutive lines that split into the
// same number (two or more) of cells. Cells are separated by horizontal
// gaps wider than the column gutter, measured relative to the font size.
package tables

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/bde-document-crawler/internal/pdf"
)

// ErrExtractionFailed signals that the PDF could not be scanned for tables,
// as opposed to a scan that found none.
var ErrExtractionFailed = errors.New("table extraction failed")

const (
	defaultFontSize = 10.0
	// gutterFactor times the font size separates two columns.
	gutterFactor = 2.0
	// spaceFactor times the font size separates two words in a cell.
	spaceFactor = 0.25
	minRows     = 2
	minColumns  = 2
)

// Table is a grid of cells; the first row is the header.
type Table [][]string

// Extractor finds tables in every page of a PDF.
type Extractor struct {
	rows func(data []byte) ([][]pdf.Row, error)
}

// NewExtractor returns an Extractor reading rows from the PDF text layer.
func NewExtractor() *Extractor {
	return &Extractor{rows: pdf.PageRows}
}

// Extract returns one TSV string per table, in page order. A nil slice with a
// nil error means no tables were found.
func (e *Extractor) Extract(data []byte) ([]string, error) {
	pages, err := e.rows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	var out []string
	for _, rows := range pages {
		for _, table := range Detect(rows) {
			tsv, err := EncodeTSV(table)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
			}
			out = append(out, tsv)
		}
	}
	return out, nil
}

// Detect groups the rows of one page into tables.
func Detect(rows []pdf.Row) []Table {
	var (
		tables  []Table
		current Table
	)
	flush := func() {
		if len(current) >= minRows {
			tables = append(tables, current)
		}
		current = nil
	}
	for _, row := range rows {
		cells := SplitCells(row)
		if len(cells) < minColumns {
			flush()
			continue
		}
		if len(current) > 0 && len(current[0]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

// SplitCells merges the glyphs of a row into cell strings.
func SplitCells(row pdf.Row) []string {
	var (
		cells   []string
		cell    strings.Builder
		prevEnd float64
		started bool
	)
	for _, g := range row.Glyphs {
		size := g.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		if started {
			gap := g.X - prevEnd
			switch {
			case gap > gutterFactor*size:
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
				cell.Reset()
			case gap > spaceFactor*size && !strings.HasSuffix(cell.String(), " "):
				cell.WriteByte(' ')
			}
		}
		cell.WriteString(g.S)
		prevEnd = g.X + glyphWidth(g, size)
		started = true
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		cells = append(cells, s)
	}
	return cells
}

// glyphWidth falls back to an average advance when the font carries no
// width table, which is common for the standard 14 fonts.
func glyphWidth(g pdf.Glyph, size float64) float64 {
	if g.W > 0 {
		return g.W
	}
	return 0.5 * size * float64(utf8.RuneCountInString(g.S))
}

// EncodeTSV writes the table as tab-separated values, header first.
func EncodeTSV(t Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.WriteAll(t); err != nil {
		return "", fmt.Errorf("write tsv: %w", err)
	}
	return buf.String(), nil
}
