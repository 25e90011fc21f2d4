package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
	"github.com/JakeFAU/bde-document-crawler/internal/storage/memory"
)

var window = crawler.Window{
	Start: time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
}

func TestFileName(t *testing.T) {
	t.Parallel()

	meta := NewMetadata("r1", window, time.Date(2023, 1, 2, 8, 30, 0, 0, time.UTC))
	assert.Equal(t, "2022-11-01_2022-12-31_2023-01-02.json", FileName(meta))
	assert.Equal(t, "v2", meta.Schema)
}

func TestWriteEncodesRunFile(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	p := NewPersister(store, "runs", nil)
	accessed := time.Date(2023, 1, 2, 8, 31, 0, 0, time.UTC)
	meta := NewMetadata("0190f6c2-aaaa-7bbb-8ccc-000000000001", window, time.Date(2023, 1, 2, 8, 30, 0, 0, time.UTC))

	result := crawler.RunResult{
		Successes: []crawler.DocumentRecord{{
			AccessedAt: accessed,
			Category:   crawler.CategorySpeeches,
			Title:      "Comparecencia",
			HTML:       "<h1>Comparecencia</h1>",
			URL:        "https://www.bde.es/doc",
		}},
	}

	uri, err := p.Write(context.Background(), meta, result)
	require.NoError(t, err)
	assert.Equal(t, "memory://runs/2022-11-01_2022-12-31_2023-01-02.json", uri)

	obj, ok := store.Get("runs/2022-11-01_2022-12-31_2023-01-02.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.ContentType)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(obj.Data, &raw))
	assert.Equal(t, []any{}, raw["errors"])
	metadata := raw["metadata"].(map[string]any)
	assert.Equal(t, "2022-11-01", metadata["query_start_date"])
	assert.Equal(t, "2022-12-31", metadata["query_end_date"])
	assert.Equal(t, "v2", metadata["schema"])
	assert.Equal(t, meta.RunID, metadata["run_id"])

	success := raw["successes"].([]any)[0].(map[string]any)
	assert.Equal(t, "Speeches", success["document_type"])
	assert.Equal(t, []any{}, success["document_tables"])
	assert.Equal(t, "", success["document_pdf_encoded"])
	assert.Equal(t, "<h1>Comparecencia</h1>", success["document_html"])
	assert.Equal(t, "", success["document_author"])

	decoded, err := Decode(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	assert.Equal(t, meta.RunID, decoded.Metadata.RunID)
	require.Len(t, decoded.Successes, 1)
	assert.True(t, accessed.Equal(decoded.Successes[0].AccessedAt))
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestWriteSurfacesStoreFailure(t *testing.T) {
	t.Parallel()

	p := NewPersister(failingStore{}, "", nil)
	_, err := p.Write(context.Background(), NewMetadata("r", window, time.Now()), crawler.NewRunResult())
	require.ErrorContains(t, err, "disk full")
}

func TestNewSummaryCountsPDFDocuments(t *testing.T) {
	t.Parallel()

	meta := NewMetadata("r1", window, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC))
	result := crawler.RunResult{
		Successes: []crawler.DocumentRecord{
			{URL: "a", PDFEncoded: "eJw="},
			{URL: "b", HTML: "<p>b</p>"},
		},
		Errors: []crawler.ErrorRecord{{URL: "c", Error: "boom"}},
	}

	got := NewSummary(meta, "memory://x.json", result)
	assert.Equal(t, Summary{
		RunID:          "r1",
		URI:            "memory://x.json",
		QueryStartDate: "2022-11-01",
		QueryEndDate:   "2022-12-31",
		Successes:      2,
		Errors:         1,
		PDFDocuments:   1,
	}, got)
}
