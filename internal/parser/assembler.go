// Package parser turns a fetched document page into a DocumentRecord.
//
// The Assembler reads the title and date from the page, follows the first
// site-relative PDF link, and extracts the PDF's text, language and tables.
// Only a failed PDF fetch fails the document; every extraction stage
// degrades to an empty field instead.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
	"github.com/JakeFAU/bde-document-crawler/internal/metrics"
)

// DefaultPDFTimeout bounds the PDF download.
const DefaultPDFTimeout = 20 * time.Second

// LanguageDetector identifies the language of extracted text.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

// TableExtractor returns one TSV string per table found in a PDF.
type TableExtractor interface {
	Extract(data []byte) ([]string, error)
}

// Config controls field extraction.
type Config struct {
	// BaseURL is prefixed to site-relative PDF links.
	BaseURL       string
	DateSelector  string
	TitleSelector string
	MinTextChars  int
	PDFTimeout    time.Duration
}

// Dependencies are the collaborators of an Assembler.
type Dependencies struct {
	Fetcher  crawler.Fetcher
	Clock    crawler.Clock
	Language LanguageDetector
	Tables   TableExtractor
	// TextLayer defaults to NewTextLayerStrategy.
	TextLayer Strategy
	OCR       Strategy
	Logger    *zap.Logger
}

// Assembler implements crawler.Parser.
type Assembler struct {
	cfg        Config
	fetcher    crawler.Fetcher
	clock      crawler.Clock
	classifier Classifier
	textLayer  Strategy
	ocr        Strategy
	language   LanguageDetector
	tables     TableExtractor
	logger     *zap.Logger
}

var _ crawler.Parser = (*Assembler)(nil)

// NewAssembler validates deps and returns an Assembler.
func NewAssembler(cfg Config, deps Dependencies) (*Assembler, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("parser: fetcher is required")
	}
	if deps.OCR == nil {
		return nil, errors.New("parser: ocr strategy is required")
	}
	if deps.Language == nil {
		return nil, errors.New("parser: language detector is required")
	}
	if deps.Tables == nil {
		return nil, errors.New("parser: table extractor is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = crawler.SystemClock{}
	}
	if deps.TextLayer == nil {
		deps.TextLayer = NewTextLayerStrategy(logger)
	}
	if cfg.PDFTimeout <= 0 {
		cfg.PDFTimeout = DefaultPDFTimeout
	}
	return &Assembler{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		clock:      deps.Clock,
		classifier: NewClassifier(cfg.MinTextChars),
		textLayer:  deps.TextLayer,
		ocr:        deps.OCR,
		language:   deps.Language,
		tables:     deps.Tables,
		logger:     logger.Named("parser"),
	}, nil
}

// Parse builds the record for one document page. An error means the page's
// PDF could not be fetched and no record exists for url.
func (a *Assembler) Parse(ctx context.Context, html string, url string, category crawler.Category) (crawler.DocumentRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return crawler.DocumentRecord{}, fmt.Errorf("parse html %s: %w", url, err)
	}
	record := crawler.DocumentRecord{
		Category: category,
		Date:     ExtractDate(doc, a.cfg.DateSelector),
		Title:    ExtractTitle(doc, a.cfg.TitleSelector),
		URL:      url,
		Tables:   []string{},
	}

	links := FindPDFLinks(doc, a.cfg.BaseURL)
	if len(links) == 0 {
		record.AccessedAt = a.clock.Now()
		record.HTML = html
		return record, nil
	}

	pdfURL := links[0]
	resp, err := a.fetcher.Fetch(ctx, crawler.FetchRequest{URL: pdfURL, Timeout: a.cfg.PDFTimeout})
	if err != nil {
		return crawler.DocumentRecord{}, fmt.Errorf("fetch pdf %s: %w", pdfURL, err)
	}
	metrics.ObserveFetch(metrics.FetchPDF, len(resp.Body))
	data := resp.Body

	encoded, err := EncodePDF(data)
	if err != nil {
		return crawler.DocumentRecord{}, fmt.Errorf("encode pdf %s: %w", pdfURL, err)
	}
	record.PDFEncoded = encoded

	strategy := a.textLayer
	if a.classifier.Classify(data) == KindImage {
		strategy = a.ocr
	}
	metrics.ObserveStrategy(strategy.Name())
	record.Text = strategy.Extract(ctx, data)
	record.Language = a.detectLanguage(record.Text, url)
	record.Tables = a.extractTables(data, url)

	record.AccessedAt = a.clock.Now()
	a.logger.Debug("document assembled",
		zap.String("url", url),
		zap.String("pdf", pdfURL),
		zap.String("strategy", strategy.Name()),
		zap.Int("text_chars", len(record.Text)),
		zap.Int("tables", len(record.Tables)),
	)
	return record, nil
}

func (a *Assembler) detectLanguage(text, url string) string {
	lang, err := a.language.Detect(text)
	if err != nil {
		a.logger.Warn("language detection failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveStageFailure(metrics.StageLanguage)
		return ""
	}
	return lang
}

// extractTables folds an extraction failure into an empty list.
func (a *Assembler) extractTables(data []byte, url string) []string {
	tables, err := a.tables.Extract(data)
	if err != nil {
		a.logger.Error("table extraction failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveStageFailure(metrics.StageTables)
		return []string{}
	}
	if tables == nil {
		return []string{}
	}
	return tables
}
