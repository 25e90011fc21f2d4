package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bde-document-crawler/internal/pdf/pdftest"
	"github.com/JakeFAU/bde-document-crawler/internal/pdf/raster"
)

func stubPages(pages []string, err error) func([]byte) ([]string, error) {
	return func([]byte) ([]string, error) { return pages, err }
}

func TestClassifyThreshold(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		pages []string
		err   error
		want  Kind
	}{
		{"no pages", nil, nil, KindImage},
		{"empty pages", []string{"", ""}, nil, KindImage},
		{"whitespace only", []string{strings.Repeat(" \n", 40)}, nil, KindImage},
		{"49 chars", []string{strings.Repeat("a", 49)}, nil, KindImage},
		{"50 chars", []string{strings.Repeat("a", 50)}, nil, KindText},
		{"padded 49 chars", []string{"   " + strings.Repeat("a", 49) + "  "}, nil, KindImage},
		{"30 accented runes", []string{strings.Repeat("ñ", 30)}, nil, KindImage},
		{"49 accented runes", []string{strings.Repeat("á", 49)}, nil, KindImage},
		{"50 accented runes", []string{strings.Repeat("é", 50)}, nil, KindText},
		{"split across pages", []string{strings.Repeat("a", 25), "", strings.Repeat("b", 25)}, nil, KindText},
		{"read failure", []string{strings.Repeat("a", 80)}, errors.New("xref"), KindImage},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := NewClassifier(0)
			c.pageTexts = stubPages(tc.pages, tc.err)
			assert.Equal(t, tc.want, c.Classify([]byte("%PDF")))
		})
	}
}

func TestClassifyRealDocuments(t *testing.T) {
	t.Parallel()

	c := NewClassifier(DefaultMinTextChars)
	text := pdftest.TextPDF(t, []string{
		"The Banco de Espana publishes its quarterly economic projections",
		"for the Spanish economy together with the risk assessment.",
	})
	assert.Equal(t, KindText, c.Classify(text))
	assert.Equal(t, KindImage, c.Classify(pdftest.ImagePDF(t)))
	assert.Equal(t, KindImage, c.Classify([]byte("not a pdf")))
	assert.Equal(t, KindImage, c.Classify(nil))
}

func TestTextLayerStrategyJoinsWithoutSeparator(t *testing.T) {
	t.Parallel()

	s := NewTextLayerStrategy(nil)
	s.pageTexts = stubPages([]string{"first page.", "", "second page."}, nil)
	assert.Equal(t, "first page.second page.", s.Extract(context.Background(), nil))

	s.pageTexts = stubPages(nil, errors.New("broken"))
	assert.Empty(t, s.Extract(context.Background(), nil))
}

type fakeRasterizer struct {
	pages []raster.Page
	err   error
}

func (f fakeRasterizer) Rasterize(context.Context, []byte) ([]raster.Page, error) {
	return f.pages, f.err
}

type fakeEngine struct {
	texts map[string]string
}

func (f fakeEngine) Recognize(_ context.Context, image []byte) (string, error) {
	text, ok := f.texts[string(image)]
	if !ok {
		return "", errors.New("unreadable image")
	}
	return text, nil
}

func TestOCRStrategyJoinsPagesWithSpace(t *testing.T) {
	t.Parallel()

	engine := fakeEngine{texts: map[string]string{"p1": "Informe anual", "p2": "de estabilidad"}}
	s := NewOCRStrategy(fakeRasterizer{pages: []raster.Page{
		{Number: 1, Images: [][]byte{[]byte("p1")}},
		{Number: 2, Images: [][]byte{[]byte("p2")}},
	}}, engine, nil)

	assert.Equal(t, StrategyOCR, s.Name())
	assert.Equal(t, "Informe anual de estabilidad", s.Extract(context.Background(), nil))
}

func TestOCRStrategyFailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	engine := fakeEngine{texts: map[string]string{"p1": "ok"}}

	s := NewOCRStrategy(fakeRasterizer{err: errors.New("render failed")}, engine, nil)
	assert.Empty(t, s.Extract(context.Background(), nil))

	s = NewOCRStrategy(fakeRasterizer{pages: []raster.Page{
		{Number: 1, Images: [][]byte{[]byte("p1")}},
		{Number: 2, Images: [][]byte{[]byte("bad")}},
	}}, engine, nil)
	assert.Empty(t, s.Extract(context.Background(), nil))
}

func TestEncodePDFRoundTrip(t *testing.T) {
	t.Parallel()

	data := pdftest.TextPDF(t, []string{"round trip"})
	encoded, err := EncodePDF(data)
	require.NoError(t, err)
	assert.NotContains(t, encoded, "\n")

	decoded, err := DecodePDF(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = DecodePDF("!!not base64!!")
	require.Error(t, err)
}
