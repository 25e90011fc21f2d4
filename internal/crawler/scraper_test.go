package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/bde-document-crawler/internal/fetcher/colly"
)

type staticLister struct{ targets []crawler.Target }

func (l staticLister) Collect(context.Context, crawler.Window, []crawler.Category) []crawler.Target {
	return l.targets
}

// pdfParser fails documents whose page links a PDF the server does not have,
// the way the assembler does after a failed PDF fetch.
type pdfParser struct {
	fetcher crawler.Fetcher
	base    string

	inFlight, peak atomic.Int32
}

func (p *pdfParser) Parse(ctx context.Context, html, url string, category crawler.Category) (crawler.DocumentRecord, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	if i := strings.Index(html, "pdf:"); i >= 0 {
		if _, err := p.fetcher.Fetch(ctx, crawler.FetchRequest{URL: p.base + html[i+4:]}); err != nil {
			return crawler.DocumentRecord{}, fmt.Errorf("fetch pdf: %w", err)
		}
		return crawler.DocumentRecord{URL: url, Category: category, PDFEncoded: "x", Tables: []string{}}, nil
	}
	return crawler.DocumentRecord{URL: url, Category: category, HTML: html, Tables: []string{}}, nil
}

func docServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ok.pdf":
			_, _ = w.Write([]byte("%PDF-1.4"))
		case strings.HasPrefix(r.URL.Path, "/html/"):
			_, _ = fmt.Fprint(w, "plain page")
		case strings.HasPrefix(r.URL.Path, "/withpdf/"):
			_, _ = fmt.Fprint(w, "pdf:/ok.pdf")
		case strings.HasPrefix(r.URL.Path, "/missingpdf/"):
			_, _ = fmt.Fprint(w, "pdf:/missing.pdf")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newScraper(t *testing.T, srv *httptest.Server, targets []crawler.Target, concurrency int) (*crawler.Scraper, *pdfParser) {
	t.Helper()
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second})
	p := &pdfParser{fetcher: fetcher, base: srv.URL}
	return crawler.NewScraper(crawler.ScraperOptions{
		Lister:      staticLister{targets: targets},
		Fetcher:     fetcher,
		Parser:      p,
		Clock:       fixedClock{t: time.Date(2022, 12, 2, 0, 0, 0, 0, time.UTC)},
		Concurrency: concurrency,
	}), p
}

func TestRunMissingPDFBecomesErrorRecord(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	target := crawler.Target{Category: crawler.CategoryPressReleases, URL: srv.URL + "/missingpdf/1"}
	s, _ := newScraper(t, srv, []crawler.Target{target}, 1)

	result := s.Run(context.Background(), testWindow, nil)

	assert.Empty(t, result.Successes)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, target.URL, result.Errors[0].URL)
	assert.Contains(t, result.Errors[0].Error, "404")
	assert.Equal(t, time.Date(2022, 12, 2, 0, 0, 0, 0, time.UTC), result.Errors[0].AccessedAt)
}

func TestRunPageFetchErrorBecomesErrorRecord(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	s, _ := newScraper(t, srv, []crawler.Target{
		{Category: crawler.CategorySpeeches, URL: srv.URL + "/gone"},
		{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/1"},
	}, 1)

	result := s.Run(context.Background(), testWindow, nil)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "404")
	require.Len(t, result.Successes, 1)
	assert.Equal(t, "plain page", result.Successes[0].HTML)
}

func TestProcessPreservesOrderUnderConcurrency(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	var targets []crawler.Target
	for i := range 12 {
		prefix := []string{"/html/", "/withpdf/", "/missingpdf/"}[i%3]
		targets = append(targets, crawler.Target{Category: crawler.CategoryArticles, URL: fmt.Sprintf("%s%s%d", srv.URL, prefix, i)})
	}
	s, p := newScraper(t, srv, targets, 4)

	result := s.Process(context.Background(), targets)

	require.Len(t, result.Successes, 8)
	require.Len(t, result.Errors, 4)
	var want []string
	for i, target := range targets {
		if i%3 != 2 {
			want = append(want, target.URL)
		}
	}
	got := make([]string, 0, len(result.Successes))
	for _, rec := range result.Successes {
		got = append(got, rec.URL)
	}
	assert.Equal(t, want, got)
	for i, rec := range result.Errors {
		assert.Equal(t, targets[3*i+2].URL, rec.URL)
	}
	assert.LessOrEqual(t, p.peak.Load(), int32(4))
	assert.Greater(t, p.peak.Load(), int32(1))
}

func TestProcessSequentialByDefault(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	targets := []crawler.Target{
		{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/a"},
		{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/b"},
		{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/c"},
	}
	s, p := newScraper(t, srv, targets, 0)

	result := s.Process(context.Background(), targets)
	assert.Len(t, result.Successes, 3)
	assert.Equal(t, int32(1), p.peak.Load())
}

func TestProcessCanceledContextYieldsEmptyArrays(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	targets := []crawler.Target{{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/a"}}
	s, _ := newScraper(t, srv, targets, 1)

	result := s.Process(ctx, targets)
	assert.NotNil(t, result.Successes)
	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.Successes)
	assert.Empty(t, result.Errors)
}

type countingProgress struct {
	targets         atomic.Int32
	successes, errs atomic.Int32
}

func (p *countingProgress) SetTargets(n int) { p.targets.Store(int32(n)) }

func (p *countingProgress) Record(failed bool) {
	if failed {
		p.errs.Add(1)
		return
	}
	p.successes.Add(1)
}

func TestRunReportsProgress(t *testing.T) {
	t.Parallel()

	srv := docServer(t)
	progress := &countingProgress{}
	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second})
	s := crawler.NewScraper(crawler.ScraperOptions{
		Lister: staticLister{targets: []crawler.Target{
			{Category: crawler.CategorySpeeches, URL: srv.URL + "/html/1"},
			{Category: crawler.CategorySpeeches, URL: srv.URL + "/withpdf/2"},
			{Category: crawler.CategorySpeeches, URL: srv.URL + "/gone"},
		}},
		Fetcher:     fetcher,
		Parser:      &pdfParser{fetcher: fetcher, base: srv.URL},
		Concurrency: 2,
		Progress:    progress,
	})

	result := s.Run(context.Background(), testWindow, nil)

	assert.Len(t, result.Successes, 2)
	assert.Len(t, result.Errors, 1)
	assert.EqualValues(t, 3, progress.targets.Load())
	assert.EqualValues(t, 2, progress.successes.Load())
	assert.EqualValues(t, 1, progress.errs.Load())
}
