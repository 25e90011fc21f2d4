// Package pdf reads the embedded text layer of PDF documents.
//
// It uses ledongthuc/pdf (pure Go, no CGO). The library panics on some
// malformed inputs; every entry point here converts those panics to errors.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"

	lpdf "github.com/ledongthuc/pdf"
)

// ErrEmpty is returned for a zero-length buffer.
var ErrEmpty = errors.New("empty PDF content")

// Glyph is a positioned run of text on a page.
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Row is one line of glyphs sharing a baseline, ordered left to right.
type Row struct {
	Y      float64
	Glyphs []Glyph
}

// PageTexts returns the plain text of every page in page order. Pages with
// no content yield an empty string; a page that fails to decode fails the
// whole document.
func PageTexts(data []byte) (texts []string, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, perr := pageText(r.Page(i))
		if perr != nil {
			return nil, fmt.Errorf("read text on page %d: %w", i, perr)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// PageRows returns the positioned text rows of every page, top of page first.
func PageRows(data []byte) (pages [][]Row, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	pages = make([][]Row, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, buildRows(page.Content().Text))
	}
	return pages, nil
}

func open(data []byte) (*lpdf.Reader, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

func pageText(page lpdf.Page) (string, error) {
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// Baselines closer than this many points belong to the same row.
const rowTolerance = 1.0

// Slack in points when deciding whether a character continues the run
// before it.
const runSlack = 0.5

// buildRows groups per-character text into rows by baseline, then merges
// adjacent characters into runs. Fonts without a Widths array report zero
// advance, so every character of one show-text operation shares the X of
// the first; such characters continue the run too.
func buildRows(chars []lpdf.Text) []Row {
	var rows []Row
	for _, ch := range chars {
		if ch.S == "\n" || ch.S == "" {
			continue
		}
		idx := -1
		for i := range rows {
			if math.Abs(rows[i].Y-ch.Y) <= rowTolerance {
				idx = i
				break
			}
		}
		if idx < 0 {
			rows = append(rows, Row{Y: ch.Y})
			idx = len(rows) - 1
		}
		rows[idx].Glyphs = appendChar(rows[idx].Glyphs, ch)
	}
	for i := range rows {
		sort.SliceStable(rows[i].Glyphs, func(a, b int) bool { return rows[i].Glyphs[a].X < rows[i].Glyphs[b].X })
	}
	// PDF user space grows upwards.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Y > rows[j].Y })
	return rows
}

func appendChar(runs []Glyph, ch lpdf.Text) []Glyph {
	if n := len(runs); n > 0 {
		last := &runs[n-1]
		if end := last.X + last.W; math.Abs(ch.X-end) <= runSlack {
			last.S += ch.S
			last.W += ch.W
			return runs
		}
	}
	return append(runs, Glyph{X: ch.X, Y: ch.Y, W: ch.W, FontSize: ch.FontSize, S: ch.S})
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf library panic: %v", r)
	}
}
