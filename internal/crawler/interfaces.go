package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
// Non-2xx responses are returned as errors.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Parser turns a fetched document page into a DocumentRecord.
// An error means the document must be reported as an ErrorRecord.
type Parser interface {
	Parse(ctx context.Context, html string, url string, category Category) (DocumentRecord, error)
}

// Lister discovers the document URLs for a run.
type Lister interface {
	Collect(ctx context.Context, window Window, categories []Category) []Target
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now in UTC.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Progress observes a run as documents complete.
type Progress interface {
	SetTargets(n int)
	Record(failed bool)
}

type nopProgress struct{}

func (nopProgress) SetTargets(int) {}
func (nopProgress) Record(bool)    {}
