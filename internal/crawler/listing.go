package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/bde-document-crawler/internal/metrics"
)

// DefaultResultSelectors match the result links of a search listing page.
var DefaultResultSelectors = []string{
	"div.block-search-result__title a",
	"p.block-search-result__title a",
}

// ListingConfig describes the paginated search listings of the source site.
type ListingConfig struct {
	BaseURL string
	// Paths lists the listing paths queried for each category.
	Paths map[Category][]string
	// Selectors match result links; DefaultResultSelectors when empty.
	Selectors []string
	// MaxPages stops pagination after that many pages; zero means no limit.
	MaxPages int
}

// SearchCrawler walks the search listings and yields document targets.
type SearchCrawler struct {
	cfg     ListingConfig
	fetcher Fetcher
	logger  *zap.Logger
}

var _ Lister = (*SearchCrawler)(nil)

// NewSearchCrawler builds a SearchCrawler.
func NewSearchCrawler(cfg ListingConfig, fetcher Fetcher, logger *zap.Logger) *SearchCrawler {
	if len(cfg.Selectors) == 0 {
		cfg.Selectors = DefaultResultSelectors
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchCrawler{cfg: cfg, fetcher: fetcher, logger: logger.Named("listing")}
}

// ListingURL formats the search URL for one page of a listing path. Dates
// are sent as MMYYYY.
func ListingURL(baseURL, path string, page int, window Window) string {
	return fmt.Sprintf("%s%s?page=%d&start=%s&end=%s&sort=DESC",
		baseURL, path, page, window.Start.Format("012006"), window.End.Format("012006"))
}

// Collect pages through every listing path of each category, in order. A
// path stops at the first page with no result links or the first page that
// fails to load.
func (c *SearchCrawler) Collect(ctx context.Context, window Window, categories []Category) []Target {
	var targets []Target
	for _, category := range categories {
		paths := c.cfg.Paths[category]
		if len(paths) == 0 {
			c.logger.Warn("no listing paths for category", zap.String("category", string(category)))
			continue
		}
		for _, path := range paths {
			targets = append(targets, c.collectPath(ctx, window, category, path)...)
		}
	}
	c.logger.Info("listing complete", zap.Int("targets", len(targets)))
	return targets
}

func (c *SearchCrawler) collectPath(ctx context.Context, window Window, category Category, path string) []Target {
	var targets []Target
	for page := 1; c.cfg.MaxPages <= 0 || page <= c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return targets
		}
		pageURL := ListingURL(c.cfg.BaseURL, path, page, window)
		log := c.logger.With(zap.String("category", string(category)), zap.Int("page", page))
		log.Info("fetching listing page", zap.String("url", pageURL))

		resp, err := c.fetcher.Fetch(ctx, FetchRequest{URL: pageURL})
		if err != nil {
			log.Error("listing page failed", zap.String("url", pageURL), zap.Error(err))
			return targets
		}
		metrics.ObserveListingPage(string(category))
		metrics.ObserveFetch(metrics.FetchListing, len(resp.Body))

		hrefs, matched, err := c.resultLinks(resp.Body)
		if err != nil {
			log.Error("listing page unreadable", zap.String("url", pageURL), zap.Error(err))
			return targets
		}
		if matched == 0 {
			log.Info("listing exhausted")
			return targets
		}
		for _, href := range hrefs {
			targets = append(targets, Target{Category: category, URL: c.resolve(href)})
		}
	}
	return targets
}

// resultLinks returns the hrefs of the result links on a listing page along
// with the number of matched link elements, including those without href.
func (c *SearchCrawler) resultLinks(body []byte) ([]string, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse listing: %w", err)
	}
	var (
		hrefs   []string
		matched int
	)
	for _, selector := range c.cfg.Selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			matched++
			if href, ok := s.Attr("href"); ok {
				hrefs = append(hrefs, href)
			}
		})
	}
	return hrefs, matched, nil
}

func (c *SearchCrawler) resolve(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.cfg.BaseURL + href
}
