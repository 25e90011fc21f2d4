package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/bde-document-crawler/internal/api"
	"github.com/JakeFAU/bde-document-crawler/internal/config"
	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/bde-document-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/bde-document-crawler/internal/id/uuid"
	"github.com/JakeFAU/bde-document-crawler/internal/language"
	"github.com/JakeFAU/bde-document-crawler/internal/logging"
	"github.com/JakeFAU/bde-document-crawler/internal/metrics"
	"github.com/JakeFAU/bde-document-crawler/internal/ocr"
	"github.com/JakeFAU/bde-document-crawler/internal/output"
	"github.com/JakeFAU/bde-document-crawler/internal/parser"
	"github.com/JakeFAU/bde-document-crawler/internal/pdf/raster"
	"github.com/JakeFAU/bde-document-crawler/internal/publisher"
	pubsubpublisher "github.com/JakeFAU/bde-document-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/bde-document-crawler/internal/storage"
	"github.com/JakeFAU/bde-document-crawler/internal/storage/gcs"
	"github.com/JakeFAU/bde-document-crawler/internal/storage/local"
	"github.com/JakeFAU/bde-document-crawler/internal/storage/memory"
	"github.com/JakeFAU/bde-document-crawler/internal/storage/postgres"
	"github.com/JakeFAU/bde-document-crawler/internal/tables"
	"github.com/JakeFAU/bde-document-crawler/internal/telemetry"
)

const (
	serviceName     = "bdecrawler"
	shutdownTimeout = 5 * time.Second
)

// ocrEngine is what the scrape command needs from an OCR backend.
type ocrEngine interface {
	ocr.Engine
	Close() error
}

// newOCREngine builds the OCR backend. It is a variable so tests can avoid
// loading Tesseract.
// now stamps the run start; the run file is named by its local date.
var now = time.Now

var newOCREngine = func(cfg config.OCRConfig) (ocrEngine, error) {
	return ocr.NewTesseract(ocr.Config{Languages: cfg.Languages})
}

// newPublisher connects the run notification sink.
var newPublisher = func(ctx context.Context, cfg config.PubSubConfig) (publisher.Publisher, error) {
	return pubsubpublisher.New(ctx, cfg.ProjectID, cfg.TopicName)
}

// newScrapeCmd creates the 'scrape' subcommand.
func newScrapeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Crawls the listings for a date window and writes the run file",
		Long: `Collects every document listed for the configured categories between
--start and --end, extracts its content and writes the run file. Documents
that fail are reported in the file's errors list; the command only fails
when the run file cannot be written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runScrape(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("start", "", "first publication date, YYYY-MM-DD")
	f.String("end", "", "last publication date, YYYY-MM-DD")
	f.StringSlice("category", nil, "category to crawl (repeatable)")
	f.Int("concurrency", 1, "documents processed at once")
	f.String("output-dir", "", "directory for the run file when output.provider is local")

	return cmd
}

func runScrape(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runStart := now()
	logger, closeLog, err := logging.New(logging.Config{
		Dir:         cfg.Logging.Dir,
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = closeLog()
	}()

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run_id", runID))
	window, err := cfg.Window()
	if err != nil {
		return err
	}
	logger.Info("run started",
		zap.String("start", cfg.Query.StartDate),
		zap.String("end", cfg.Query.EndDate),
		zap.Strings("categories", cfg.Query.Categories),
		zap.Int("concurrency", cfg.Scrape.Concurrency),
	)

	tp, err := telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()
	ctx, span := telemetry.Tracer().Start(ctx, "scrape.run")
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("query.start_date", cfg.Query.StartDate),
		attribute.String("query.end_date", cfg.Query.EndDate),
	)
	defer span.End()

	metrics.Init()
	tracker := api.NewTracker(runID, runStart)
	if cfg.Metrics.Addr != "" {
		srv := api.NewServer(tracker, logger)
		if _, err := srv.Start(cfg.Metrics.Addr); err != nil {
			logger.Warn("api server disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("api server shutdown failed", zap.Error(err))
				}
			}()
		}
	}

	// Output is opened first so a misconfigured store fails before any crawling.
	store, closeStore, err := newBlobStore(ctx, cfg, runID)
	if err != nil {
		return err
	}
	defer closeStore()

	scraper, closeScraper, err := buildScraper(cfg, tracker, logger)
	if err != nil {
		return err
	}
	defer closeScraper()

	result := scraper.Run(ctx, window, cfg.Categories())
	tracker.Finish()
	span.SetAttributes(
		attribute.Int("successes", len(result.Successes)),
		attribute.Int("errors", len(result.Errors)),
	)

	// The run file is written even when the run was interrupted.
	writeCtx := context.WithoutCancel(ctx)
	meta := output.NewMetadata(runID, window, runStart)
	uri, err := output.NewPersister(store, cfg.Output.Prefix, logger).Write(writeCtx, meta, result)
	if err != nil {
		return err
	}

	archiveRun(writeCtx, cfg.DB, runID, result, logger)
	notifyRun(writeCtx, cfg.PubSub, output.NewSummary(meta, uri, result), logger)

	logger.Info("run finished",
		zap.String("uri", uri),
		zap.Int("successes", len(result.Successes)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", time.Since(runStart)),
		zap.Bool("interrupted", ctx.Err() != nil),
	)
	return nil
}

func buildScraper(cfg config.Config, progress crawler.Progress, logger *zap.Logger) (*crawler.Scraper, func(), error) {
	fetcher := collyfetcher.New(collyfetcher.Config{
		Headers:      cfg.Headers(),
		Timeout:      cfg.PageTimeout(),
		MaxTimeout:   max(cfg.PageTimeout(), cfg.PDFTimeout()),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})

	rasterizer, err := raster.New(cfg.OCR.Rasterizer, cfg.OCR.DPI)
	if err != nil {
		return nil, nil, fmt.Errorf("init rasterizer: %w", err)
	}
	engine, err := newOCREngine(cfg.OCR)
	if err != nil {
		return nil, nil, fmt.Errorf("init ocr: %w", err)
	}
	closeEngine := func() {
		if err := engine.Close(); err != nil {
			logger.Warn("ocr close failed", zap.Error(err))
		}
	}

	assembler, err := parser.NewAssembler(parser.Config{
		BaseURL:       cfg.Source.BaseURL,
		DateSelector:  cfg.Parser.DateSelector,
		TitleSelector: cfg.Parser.TitleSelector,
		MinTextChars:  cfg.Parser.MinTextChars,
		PDFTimeout:    cfg.PDFTimeout(),
	}, parser.Dependencies{
		Fetcher:  fetcher,
		Language: newLanguageDetector(cfg.Parser),
		Tables:   tables.NewExtractor(),
		OCR:      parser.NewOCRStrategy(rasterizer, engine, logger),
		Logger:   logger,
	})
	if err != nil {
		closeEngine()
		return nil, nil, fmt.Errorf("init parser: %w", err)
	}

	lister := crawler.NewSearchCrawler(crawler.ListingConfig{
		BaseURL:   cfg.Source.BaseURL,
		Paths:     cfg.ListingPaths(),
		Selectors: cfg.Source.ResultSelectors,
		MaxPages:  cfg.Source.MaxPages,
	}, fetcher, logger)

	return crawler.NewScraper(crawler.ScraperOptions{
		Lister:      lister,
		Fetcher:     fetcher,
		Parser:      assembler,
		Concurrency: cfg.Scrape.Concurrency,
		Progress:    progress,
		Logger:      logger,
	}), closeEngine, nil
}

func newBlobStore(ctx context.Context, cfg config.Config, runID string) (storage.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Output.Provider {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Output.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local store: %w", err)
		}
		return store, noop, nil
	case "memory":
		return memory.NewBlobStore(), noop, nil
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{
			Bucket:   cfg.Output.Bucket,
			Metadata: map[string]string{"run_id": runID},
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown output provider %q", cfg.Output.Provider)
	}
}

// archiveRun copies the run into Postgres when a DSN is configured.
func archiveRun(ctx context.Context, cfg config.DBConfig, runID string, result crawler.RunResult, logger *zap.Logger) {
	if cfg.DSN == "" {
		return
	}
	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DSN,
		Table:    cfg.Table,
		MaxConns: int32(cfg.MaxConns), //nolint:gosec // bounded by Validate
	})
	if err != nil {
		logger.Error("document archive unavailable", zap.Error(err))
		return
	}
	defer store.Close()
	if err := store.SaveRun(ctx, runID, result); err != nil {
		logger.Error("archive run failed", zap.Error(err))
		return
	}
	logger.Info("run archived", zap.String("table", cfg.Table))
}

// notifyRun publishes the run summary when a topic is configured.
func notifyRun(ctx context.Context, cfg config.PubSubConfig, summary output.Summary, logger *zap.Logger) {
	if cfg.ProjectID == "" || cfg.TopicName == "" {
		return
	}
	pub, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Error("run notification unavailable", zap.Error(err))
		return
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
	}()
	id, err := pub.Publish(ctx, publisher.EventRunCompleted, summary)
	if err != nil {
		logger.Error("publish run summary failed", zap.Error(err), zap.String("topic", cfg.TopicName))
		return
	}
	logger.Info("run summary published", zap.String("message_id", id), zap.String("topic", cfg.TopicName))
}

func newLanguageDetector(cfg config.ParserConfig) *language.Detector {
	return language.NewDetector(cfg.LanguageCandidates...)
}
