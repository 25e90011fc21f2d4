// Package crawler defines core types shared across subsystems.
package crawler

import (
	"net/http"
	"time"
)

// Category is the publication kind a document was listed under.
type Category string

// Categories published by the Banco de España news section.
const (
	CategorySpeeches      Category = "Speeches"
	CategoryPressReleases Category = "Press releases and briefing notes"
	CategoryArticles      Category = "Articles and interviews"
)

// Target is one document URL discovered by the listing crawler.
type Target struct {
	Category Category
	URL      string
}

// DocumentRecord is the extracted content of one document page.
//
// Exactly one of HTML and PDFEncoded is populated: HTML is kept only when the
// page links no PDF.
type DocumentRecord struct {
	AccessedAt time.Time `json:"datetime_accessed"`
	Language   string    `json:"language"`
	Category   Category  `json:"document_type"`
	Author     string    `json:"document_author"`
	Date       string    `json:"document_date"`
	Title      string    `json:"document_title"`
	Text       string    `json:"document_text"`
	HTML       string    `json:"document_html"`
	URL        string    `json:"document_url"`
	PDFEncoded string    `json:"document_pdf_encoded"`
	Tables     []string  `json:"document_tables"`
}

// HasPDF reports whether the record was built from a fetched PDF.
func (r DocumentRecord) HasPDF() bool {
	return r.PDFEncoded != ""
}

// ErrorRecord replaces a DocumentRecord when the page or its PDF could not be fetched.
type ErrorRecord struct {
	AccessedAt time.Time `json:"datetime_accessed"`
	URL        string    `json:"document_url"`
	Error      string    `json:"processing_error"`
}

// RunResult aggregates the outcome of every document in a run, in crawl order.
type RunResult struct {
	Errors    []ErrorRecord    `json:"errors"`
	Successes []DocumentRecord `json:"successes"`
}

// NewRunResult returns a RunResult with non-nil slices so it encodes as arrays.
func NewRunResult() RunResult {
	return RunResult{
		Errors:    []ErrorRecord{},
		Successes: []DocumentRecord{},
	}
}

// Window is the publication date range a run queries.
type Window struct {
	Start time.Time
	End   time.Time
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
	// Timeout bounds the request; zero uses the fetcher default.
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
