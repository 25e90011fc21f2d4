package parser

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/bde-document-crawler/internal/metrics"
	"github.com/JakeFAU/bde-document-crawler/internal/ocr"
	"github.com/JakeFAU/bde-document-crawler/internal/pdf"
	"github.com/JakeFAU/bde-document-crawler/internal/pdf/raster"
)

// Strategy extracts body text from a PDF. Failures are logged and yield "".
type Strategy interface {
	Name() string
	Extract(ctx context.Context, data []byte) string
}

// Strategy names.
const (
	StrategyTextLayer = "text_layer"
	StrategyOCR       = "ocr"
)

// TextLayerStrategy reads the embedded text of every page.
type TextLayerStrategy struct {
	logger    *zap.Logger
	pageTexts func([]byte) ([]string, error)
}

// NewTextLayerStrategy returns a TextLayerStrategy.
func NewTextLayerStrategy(logger *zap.Logger) *TextLayerStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextLayerStrategy{logger: logger.Named("text_layer"), pageTexts: pdf.PageTexts}
}

// Name implements Strategy.
func (s *TextLayerStrategy) Name() string { return StrategyTextLayer }

// Extract concatenates the non-empty page texts with no separator.
func (s *TextLayerStrategy) Extract(_ context.Context, data []byte) string {
	pages, err := s.pageTexts(data)
	if err != nil {
		s.logger.Error("text layer extraction failed", zap.Error(err))
		metrics.ObserveStageFailure(metrics.StageTextLayer)
		return ""
	}
	return joinNonEmpty(pages, "")
}

// OCRStrategy renders every page and runs OCR over the images.
type OCRStrategy struct {
	rasterizer raster.Rasterizer
	engine     ocr.Engine
	logger     *zap.Logger
}

// NewOCRStrategy returns an OCRStrategy.
func NewOCRStrategy(rasterizer raster.Rasterizer, engine ocr.Engine, logger *zap.Logger) *OCRStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OCRStrategy{rasterizer: rasterizer, engine: engine, logger: logger.Named("ocr")}
}

// Name implements Strategy.
func (s *OCRStrategy) Name() string { return StrategyOCR }

// Extract joins the recognized text of each page with a single space, in
// page order. Any page failure discards the whole document text.
func (s *OCRStrategy) Extract(ctx context.Context, data []byte) string {
	pages, err := s.rasterizer.Rasterize(ctx, data)
	if err != nil {
		s.fail(err)
		return ""
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts := make([]string, 0, len(page.Images))
		for _, img := range page.Images {
			text, err := s.engine.Recognize(ctx, img)
			if err != nil {
				s.fail(err, zap.Int("page", page.Number))
				return ""
			}
			parts = append(parts, text)
		}
		texts = append(texts, strings.Join(parts, " "))
	}
	return strings.Join(texts, " ")
}

func (s *OCRStrategy) fail(err error, fields ...zap.Field) {
	s.logger.Error("ocr extraction failed", append(fields, zap.Error(err))...)
	metrics.ObserveStageFailure(metrics.StageOCR)
}
