package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/bde-document-crawler/internal/pdf"
)

// Kind is the classifier verdict for a PDF.
type Kind int

// PDF kinds.
const (
	// KindImage marks a scanned PDF whose pages need OCR.
	KindImage Kind = iota
	// KindText marks a PDF with a usable embedded text layer.
	KindText
)

// DefaultMinTextChars is the shortest text layer treated as real text.
const DefaultMinTextChars = 50

func (k Kind) String() string {
	if k == KindText {
		return "text"
	}
	return "image"
}

// Classifier decides whether a PDF carries a usable text layer.
type Classifier struct {
	// MinTextChars is compared against the rune count of the trimmed text layer.
	MinTextChars int
	pageTexts    func([]byte) ([]string, error)
}

// NewClassifier returns a Classifier with the given threshold; values below
// one select DefaultMinTextChars.
func NewClassifier(minTextChars int) Classifier {
	if minTextChars < 1 {
		minTextChars = DefaultMinTextChars
	}
	return Classifier{MinTextChars: minTextChars, pageTexts: pdf.PageTexts}
}

// Classify reads the text layer of data. Unreadable documents are KindImage.
func (c Classifier) Classify(data []byte) Kind {
	read := c.pageTexts
	if read == nil {
		read = pdf.PageTexts
	}
	pages, err := read(data)
	if err != nil {
		return KindImage
	}
	text := joinNonEmpty(pages, "")
	if utf8.RuneCountInString(strings.TrimSpace(text)) < c.MinTextChars {
		return KindImage
	}
	return KindText
}

func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
