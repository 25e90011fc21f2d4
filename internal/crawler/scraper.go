package crawler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/bde-document-crawler/internal/metrics"
	"github.com/JakeFAU/bde-document-crawler/internal/telemetry"
)

// Scraper runs the listing crawl and processes every discovered document.
type Scraper struct {
	lister      Lister
	fetcher     Fetcher
	parser      Parser
	clock       Clock
	concurrency int
	progress    Progress
	logger      *zap.Logger
}

// ScraperOptions configures a Scraper.
type ScraperOptions struct {
	Lister  Lister
	Fetcher Fetcher
	Parser  Parser
	Clock   Clock
	// Concurrency bounds documents processed at once; values below one mean one.
	Concurrency int
	// Progress is notified of target counts and outcomes; nil disables it.
	Progress Progress
	Logger   *zap.Logger
}

// NewScraper builds a Scraper.
func NewScraper(opts ScraperOptions) *Scraper {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scraper{
		lister:      opts.Lister,
		fetcher:     opts.Fetcher,
		parser:      opts.Parser,
		clock:       opts.Clock,
		concurrency: opts.Concurrency,
		progress:    opts.Progress,
		logger:      opts.Logger.Named("scraper"),
	}
}

// Run collects the targets of window and processes them.
func (s *Scraper) Run(ctx context.Context, window Window, categories []Category) RunResult {
	targets := s.lister.Collect(ctx, window, categories)
	s.logger.Info("targets collected", zap.Int("count", len(targets)))
	return s.Process(ctx, targets)
}

type outcome struct {
	record *DocumentRecord
	err    *ErrorRecord
}

// Process fetches and parses every target. Each target yields exactly one
// success or one error, and both lists keep the order of targets. Targets
// not yet started when ctx is canceled yield nothing.
func (s *Scraper) Process(ctx context.Context, targets []Target) RunResult {
	outcomes := make([]outcome, len(targets))
	s.progress.SetTargets(len(targets))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, target := range targets {
		if ctx.Err() != nil {
			s.logger.Warn("run canceled", zap.Int("remaining", len(targets)-i))
			break
		}
		g.Go(func() error {
			outcomes[i] = s.processOne(ctx, target)
			s.progress.Record(outcomes[i].err != nil)
			return nil
		})
	}
	_ = g.Wait()

	result := NewRunResult()
	for _, o := range outcomes {
		switch {
		case o.record != nil:
			result.Successes = append(result.Successes, *o.record)
		case o.err != nil:
			result.Errors = append(result.Errors, *o.err)
		}
	}
	return result
}

func (s *Scraper) processOne(ctx context.Context, target Target) outcome {
	start := time.Now()
	log := s.logger.With(zap.String("url", target.URL), zap.String("category", string(target.Category)))
	log.Info("scraping document")

	ctx, span := telemetry.Tracer().Start(ctx, "crawler.document", trace.WithAttributes(
		attribute.String("url", target.URL),
		attribute.String("category", string(target.Category)),
	))
	defer span.End()

	fail := func(err error) outcome {
		log.Error("document failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveDocument(string(target.Category), metrics.OutcomeError, time.Since(start))
		return outcome{err: &ErrorRecord{AccessedAt: s.clock.Now(), URL: target.URL, Error: err.Error()}}
	}

	resp, err := s.fetcher.Fetch(ctx, FetchRequest{URL: target.URL})
	if err != nil {
		return fail(err)
	}
	metrics.ObserveFetch(metrics.FetchDocument, len(resp.Body))

	record, err := s.parser.Parse(ctx, string(resp.Body), target.URL, target.Category)
	if err != nil {
		return fail(err)
	}
	metrics.ObserveDocument(string(target.Category), metrics.OutcomeSuccess, time.Since(start))
	log.Info("document scraped", zap.Bool("pdf", record.HasPDF()))
	return outcome{record: &record}
}
