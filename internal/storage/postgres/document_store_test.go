package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
)

func TestSaveDocumentUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rec := crawler.DocumentRecord{
		AccessedAt: now,
		Language:   "es",
		Category:   crawler.CategorySpeeches,
		Title:      "Comparecencia",
		Date:       "15/12/2022",
		Text:       "texto",
		URL:        "https://www.bde.es/doc",
		PDFEncoded: "eJw=",
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			"run-1",
			rec.URL,
			"Speeches",
			"es",
			"",
			rec.Date,
			rec.Title,
			rec.Text,
			"",
			rec.PDFEncoded,
			[]byte(`[]`),
			now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveDocument(context.Background(), "run-1", rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunContinuesPastFailures(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "bde_documents")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	result := crawler.RunResult{
		Successes: []crawler.DocumentRecord{
			{URL: "https://www.bde.es/a", Tables: []string{"h\tv\n1\t2\n"}, AccessedAt: now},
			{URL: "https://www.bde.es/b", AccessedAt: now},
		},
		Errors: []crawler.ErrorRecord{
			{URL: "https://www.bde.es/c", Error: "unexpected status 404", AccessedAt: now},
		},
	}

	mock.ExpectExec("INSERT INTO bde_documents").
		WithArgs("run-2", "https://www.bde.es/a", "", "", "", "", "", "", "", "", []byte(`["h\tv\n1\t2\n"]`), now).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectExec("INSERT INTO bde_documents").
		WithArgs("run-2", "https://www.bde.es/b", "", "", "", "", "", "", "", "", []byte(`[]`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO bde_documents_errors").
		WithArgs("run-2", "https://www.bde.es/c", "unexpected status 404", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.SaveRun(context.Background(), "run-2", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.Contains(t, err.Error(), "https://www.bde.es/a")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "documents")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "documents; DROP TABLE x")
	require.Error(t, err)

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)
	require.Error(t, store.SaveDocument(context.Background(), "", crawler.DocumentRecord{}))
	require.Error(t, store.SaveError(context.Background(), "", crawler.ErrorRecord{}))
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}
