// Package postgres archives run results in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/bde-document-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "documents"

// Config controls the Postgres connection pool used for document rows.
type Config struct {
	DSN string
	// Table receives DocumentRecords; ErrorRecords go to Table + "_errors".
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// DocumentStore upserts run records into Postgres, keyed by run and URL.
type DocumentStore struct {
	pool  execCloser
	table string
}

// New connects a DocumentStore using the provided config.
func New(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DocumentStore{pool: pool, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*DocumentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *DocumentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveDocument upserts one DocumentRecord.
func (s *DocumentStore) SaveDocument(ctx context.Context, runID string, record crawler.DocumentRecord) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	tables := record.Tables
	if tables == nil {
		tables = []string{}
	}
	tablesJSON, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("marshal tables: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	document_url,
	document_type,
	language,
	document_author,
	document_date,
	document_title,
	document_text,
	document_html,
	document_pdf_encoded,
	document_tables,
	datetime_accessed
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (run_id, document_url) DO UPDATE SET
	document_type = EXCLUDED.document_type,
	language = EXCLUDED.language,
	document_author = EXCLUDED.document_author,
	document_date = EXCLUDED.document_date,
	document_title = EXCLUDED.document_title,
	document_text = EXCLUDED.document_text,
	document_html = EXCLUDED.document_html,
	document_pdf_encoded = EXCLUDED.document_pdf_encoded,
	document_tables = EXCLUDED.document_tables,
	datetime_accessed = EXCLUDED.datetime_accessed`, s.table)

	args := []any{
		runID,
		record.URL,
		string(record.Category),
		record.Language,
		record.Author,
		record.Date,
		record.Title,
		record.Text,
		record.HTML,
		record.PDFEncoded,
		tablesJSON,
		record.AccessedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert document %s: %w", record.URL, err)
	}
	return nil
}

// SaveError upserts one ErrorRecord.
func (s *DocumentStore) SaveError(ctx context.Context, runID string, record crawler.ErrorRecord) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s_errors (
	run_id,
	document_url,
	processing_error,
	datetime_accessed
) VALUES ($1,$2,$3,$4)
ON CONFLICT (run_id, document_url) DO UPDATE SET
	processing_error = EXCLUDED.processing_error,
	datetime_accessed = EXCLUDED.datetime_accessed`, s.table)

	if _, err := s.pool.Exec(ctx, query, runID, record.URL, record.Error, record.AccessedAt); err != nil {
		return fmt.Errorf("upsert error %s: %w", record.URL, err)
	}
	return nil
}

// SaveRun archives every record of result. It keeps going past failed rows
// and returns them joined.
func (s *DocumentStore) SaveRun(ctx context.Context, runID string, result crawler.RunResult) error {
	var errs []error
	for _, rec := range result.Successes {
		if err := s.SaveDocument(ctx, runID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rec := range result.Errors {
		if err := s.SaveError(ctx, runID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
