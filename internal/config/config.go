// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
)

// DateLayout is the format of query dates.
const DateLayout = "2006-01-02"

const maxDBConns = 64

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Query   QueryConfig   `mapstructure:"query"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Parser  ParserConfig  `mapstructure:"parser"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// SourceConfig describes the site being crawled.
type SourceConfig struct {
	BaseURL         string           `mapstructure:"base_url"`
	Categories      []CategoryConfig `mapstructure:"categories"`
	ResultSelectors []string         `mapstructure:"result_selectors"`
	MaxPages        int              `mapstructure:"max_pages"`
}

// CategoryConfig maps a category name to its search listing paths.
type CategoryConfig struct {
	Name  string   `mapstructure:"name"`
	Paths []string `mapstructure:"paths"`
}

// QueryConfig is the publication window and categories of a run.
type QueryConfig struct {
	StartDate  string   `mapstructure:"start_date"`
	EndDate    string   `mapstructure:"end_date"`
	Categories []string `mapstructure:"categories"`
}

// HTTPConfig sets the request headers and timeouts.
type HTTPConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	Accept             string `mapstructure:"accept"`
	AcceptEncoding     string `mapstructure:"accept_encoding"`
	PageTimeoutSeconds int    `mapstructure:"page_timeout_seconds"`
	PDFTimeoutSeconds  int    `mapstructure:"pdf_timeout_seconds"`
	MaxBodyBytes       int    `mapstructure:"max_body_bytes"`
}

// ParserConfig tunes field extraction.
type ParserConfig struct {
	DateSelector  string `mapstructure:"date_selector"`
	TitleSelector string `mapstructure:"title_selector"`
	MinTextChars  int    `mapstructure:"min_text_chars"`
	// LanguageCandidates restricts language identification; empty allows
	// every language the detector knows.
	LanguageCandidates []string `mapstructure:"language_candidates"`
}

// OCRConfig selects the page rasterizer and Tesseract languages.
type OCRConfig struct {
	Rasterizer string   `mapstructure:"rasterizer"`
	DPI        float64  `mapstructure:"dpi"`
	Languages  []string `mapstructure:"languages"`
}

// ScrapeConfig controls document processing.
type ScrapeConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// OutputConfig sets where the run file is written.
type OutputConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig controls the log file and zap encoder.
type LoggingConfig struct {
	Dir         string `mapstructure:"dir"`
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig enables the metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DBConfig controls the optional document archive.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"start":       "query.start_date",
	"end":         "query.end_date",
	"category":    "query.categories",
	"concurrency": "scrape.concurrency",
	"output-dir":  "output.dir",
}

// Load builds a Config from defaults, an optional file, the environment and
// the given flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://www.bde.es")
	v.SetDefault("source.categories", []map[string]any{
		{
			"name": string(crawler.CategoryPressReleases),
			"paths": []string{
				"/wbe/en/noticias-eventos/actualidad-banco-espana/notas-banco-espana/",
				"/wbe/es/noticias-eventos/actualidad-banco-espana/notas-banco-espana/",
			},
		},
		{
			"name": string(crawler.CategorySpeeches),
			"paths": []string{
				"/wbe/en/noticias-eventos/actualidad-banco-espana/intervenciones-publicas/",
				"/wbe/es/noticias-eventos/actualidad-banco-espana/intervenciones-publicas/",
			},
		},
		{
			"name": string(crawler.CategoryArticles),
			"paths": []string{
				"/wbe/en/noticias-eventos/actualidad-banco-espana/articulos-entrevistas-alta-administracion/",
				"/wbe/es/noticias-eventos/actualidad-banco-espana/articulos-entrevistas-alta-administracion/",
			},
		},
	})
	v.SetDefault("source.result_selectors", crawler.DefaultResultSelectors)
	v.SetDefault("source.max_pages", 0)
	v.SetDefault("query.start_date", "2022-11-01")
	v.SetDefault("query.end_date", "2022-12-31")
	v.SetDefault("query.categories", []string{
		string(crawler.CategoryPressReleases),
		string(crawler.CategorySpeeches),
		string(crawler.CategoryArticles),
	})
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/88.0.4324.150 Safari/537.36")
	v.SetDefault("http.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	v.SetDefault("http.accept_encoding", "gzip, deflate, br")
	v.SetDefault("http.page_timeout_seconds", 30)
	v.SetDefault("http.pdf_timeout_seconds", 20)
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("parser.date_selector", ".block-topics__date")
	v.SetDefault("parser.title_selector", "h1")
	v.SetDefault("parser.min_text_chars", 50)
	v.SetDefault("parser.language_candidates", []string{})
	v.SetDefault("ocr.rasterizer", "mupdf")
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.languages", []string{"eng", "spa"})
	v.SetDefault("scrape.concurrency", 1)
	v.SetDefault("output.provider", "local")
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.prefix", "")
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("db.table", "documents")
	v.SetDefault("db.max_conns", 4)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return errors.New("source.base_url must be set")
	}
	known := make(map[string]bool, len(c.Source.Categories))
	for _, cat := range c.Source.Categories {
		if cat.Name == "" || len(cat.Paths) == 0 {
			return fmt.Errorf("source.categories entry %q needs a name and at least one path", cat.Name)
		}
		known[cat.Name] = true
	}
	if len(c.Query.Categories) == 0 {
		return errors.New("query.categories must not be empty")
	}
	for _, name := range c.Query.Categories {
		if !known[name] {
			return fmt.Errorf("query.categories: unknown category %q", name)
		}
	}
	if _, err := c.Window(); err != nil {
		return err
	}
	if c.HTTP.PageTimeoutSeconds <= 0 || c.HTTP.PDFTimeoutSeconds <= 0 {
		return errors.New("http timeouts must be > 0")
	}
	if c.Scrape.Concurrency <= 0 {
		return errors.New("scrape.concurrency must be > 0")
	}
	switch c.OCR.Rasterizer {
	case "mupdf", "embedded":
	default:
		return fmt.Errorf("ocr.rasterizer must be mupdf or embedded, got %q", c.OCR.Rasterizer)
	}
	switch c.Output.Provider {
	case "local", "memory":
	case "gcs":
		if c.Output.Bucket == "" {
			return errors.New("output.bucket must be set when output.provider is gcs")
		}
	default:
		return fmt.Errorf("output.provider must be local, memory or gcs, got %q", c.Output.Provider)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.DB.DSN != "" && (c.DB.MaxConns < 1 || c.DB.MaxConns > maxDBConns) {
		return fmt.Errorf("db.max_conns must be between 1 and %d", maxDBConns)
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return errors.New("pubsub.project_id and pubsub.topic_name must be set together")
	}
	return nil
}

// Window parses the query dates.
func (c Config) Window() (crawler.Window, error) {
	start, err := time.Parse(DateLayout, c.Query.StartDate)
	if err != nil {
		return crawler.Window{}, fmt.Errorf("query.start_date: %w", err)
	}
	end, err := time.Parse(DateLayout, c.Query.EndDate)
	if err != nil {
		return crawler.Window{}, fmt.Errorf("query.end_date: %w", err)
	}
	if end.Before(start) {
		return crawler.Window{}, fmt.Errorf("query.end_date %s is before query.start_date %s", c.Query.EndDate, c.Query.StartDate)
	}
	return crawler.Window{Start: start, End: end}, nil
}

// Categories returns the queried categories in order.
func (c Config) Categories() []crawler.Category {
	out := make([]crawler.Category, 0, len(c.Query.Categories))
	for _, name := range c.Query.Categories {
		out = append(out, crawler.Category(name))
	}
	return out
}

// ListingPaths returns the listing paths of every configured category.
func (c Config) ListingPaths() map[crawler.Category][]string {
	out := make(map[crawler.Category][]string, len(c.Source.Categories))
	for _, cat := range c.Source.Categories {
		out[crawler.Category(cat.Name)] = append([]string(nil), cat.Paths...)
	}
	return out
}

// Headers returns the header set sent with every request.
func (c Config) Headers() http.Header {
	h := http.Header{}
	if c.HTTP.Accept != "" {
		h.Set("Accept", c.HTTP.Accept)
	}
	if c.HTTP.AcceptEncoding != "" {
		h.Set("Accept-Encoding", c.HTTP.AcceptEncoding)
	}
	if c.HTTP.UserAgent != "" {
		h.Set("User-Agent", c.HTTP.UserAgent)
	}
	return h
}

// PageTimeout bounds listing and document page requests.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.HTTP.PageTimeoutSeconds) * time.Second
}

// PDFTimeout bounds PDF downloads.
func (c Config) PDFTimeout() time.Duration {
	return time.Duration(c.HTTP.PDFTimeoutSeconds) * time.Second
}
