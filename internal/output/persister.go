// Package output writes the run file: the RunResult wrapped with run
// metadata, serialized as one JSON document.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
	"github.com/JakeFAU/bde-document-crawler/internal/storage"
)

// SchemaVersion tags the layout of the run file.
const SchemaVersion = "v2"

const (
	dateLayout  = "2006-01-02"
	contentType = "application/json"
)

// Metadata describes the run that produced a file.
type Metadata struct {
	RunID            string    `json:"run_id"`
	QueryStartDate   string    `json:"query_start_date"`
	QueryEndDate     string    `json:"query_end_date"`
	RunStartDatetime time.Time `json:"run_start_datetime"`
	Schema           string    `json:"schema"`
}

// NewMetadata fills Metadata for a run over window started at runStart.
func NewMetadata(runID string, window crawler.Window, runStart time.Time) Metadata {
	return Metadata{
		RunID:            runID,
		QueryStartDate:   window.Start.Format(dateLayout),
		QueryEndDate:     window.End.Format(dateLayout),
		RunStartDatetime: runStart,
		Schema:           SchemaVersion,
	}
}

// File is the on-disk layout of a run file.
type File struct {
	Metadata Metadata `json:"metadata"`
	crawler.RunResult
}

// FileName returns {start}_{end}_{run}.json.
func FileName(meta Metadata) string {
	return fmt.Sprintf("%s_%s_%s.json", meta.QueryStartDate, meta.QueryEndDate, meta.RunStartDatetime.Format(dateLayout))
}

// Summary is the notification payload announcing a written run file.
type Summary struct {
	RunID          string `json:"run_id"`
	URI            string `json:"uri"`
	QueryStartDate string `json:"query_start_date"`
	QueryEndDate   string `json:"query_end_date"`
	Successes      int    `json:"successes"`
	Errors         int    `json:"errors"`
	PDFDocuments   int    `json:"pdf_documents"`
}

// NewSummary describes the run file at uri.
func NewSummary(meta Metadata, uri string, result crawler.RunResult) Summary {
	s := Summary{
		RunID:          meta.RunID,
		URI:            uri,
		QueryStartDate: meta.QueryStartDate,
		QueryEndDate:   meta.QueryEndDate,
		Successes:      len(result.Successes),
		Errors:         len(result.Errors),
	}
	for _, r := range result.Successes {
		if r.HasPDF() {
			s.PDFDocuments++
		}
	}
	return s
}

// Persister writes run files through a BlobStore.
type Persister struct {
	store  storage.BlobStore
	prefix string
	logger *zap.Logger
}

// NewPersister returns a Persister writing below prefix.
func NewPersister(store storage.BlobStore, prefix string, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{store: store, prefix: prefix, logger: logger.Named("output")}
}

// Write encodes the run file and returns its URI.
func (p *Persister) Write(ctx context.Context, meta Metadata, result crawler.RunResult) (string, error) {
	if result.Errors == nil {
		result.Errors = []crawler.ErrorRecord{}
	}
	result.Successes = append([]crawler.DocumentRecord{}, result.Successes...)
	for i := range result.Successes {
		if result.Successes[i].Tables == nil {
			result.Successes[i].Tables = []string{}
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(File{Metadata: meta, RunResult: result}); err != nil {
		return "", fmt.Errorf("encode run file: %w", err)
	}

	name := path.Join(p.prefix, FileName(meta))
	uri, err := p.store.PutObject(ctx, name, contentType, &buf)
	if err != nil {
		return "", fmt.Errorf("write run file %s: %w", name, err)
	}
	p.logger.Info("run file written",
		zap.String("uri", uri),
		zap.Int("successes", len(result.Successes)),
		zap.Int("errors", len(result.Errors)),
	)
	return uri, nil
}

// Decode reads a run file.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode run file: %w", err)
	}
	return f, nil
}
