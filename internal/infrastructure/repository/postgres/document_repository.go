package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkravets/ragline/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	bucket TEXT NOT NULL,
	blob_key TEXT NOT NULL,
	size BIGINT NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	status_message TEXT NOT NULL DEFAULT '',
	rule_id TEXT NOT NULL DEFAULT '',
	collection_id TEXT NOT NULL DEFAULT '',
	labels JSONB NOT NULL DEFAULT '{}'::jsonb,
	summary TEXT NOT NULL DEFAULT '',
	chunk_record_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS ingestion_rules (
	id TEXT PRIMARY KEY,
	repository_settings JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	labels := doc.Labels
	if len(labels) == 0 {
		labels = json.RawMessage(`{}`)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, tenant_id, filename, bucket, blob_key, size, content_type, status, status_message,
	rule_id, collection_id, labels, summary, chunk_record_ids, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'[]'::jsonb,$14,$15)
`,
		doc.ID, doc.TenantID, doc.Filename, doc.Bucket, doc.BlobKey, doc.Size, doc.ContentType,
		string(doc.Status), doc.StatusMessage, doc.RuleID, doc.CollectionID, []byte(labels),
		doc.Summary, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, filename, bucket, blob_key, size, content_type, status, status_message,
	rule_id, collection_id, labels, summary, chunk_record_ids, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var labelsRaw, recordsRaw []byte
	var status string

	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.Filename, &doc.Bucket, &doc.BlobKey, &doc.Size,
		&doc.ContentType, &status, &doc.StatusMessage, &doc.RuleID, &doc.CollectionID,
		&labelsRaw, &doc.Summary, &recordsRaw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Labels = json.RawMessage(labelsRaw)
	if len(recordsRaw) > 0 {
		if err := json.Unmarshal(recordsRaw, &doc.ChunkRecordIDs); err != nil {
			return nil, fmt.Errorf("unmarshal chunk record ids: %w", err)
		}
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, message string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, status_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status", id)
}

func (r *DocumentRepository) SetChunkRecordIDs(ctx context.Context, id string, recordIDs []string) error {
	recordsJSON, err := json.Marshal(recordIDs)
	if err != nil {
		return fmt.Errorf("marshal chunk record ids: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET chunk_record_ids = $2, updated_at = $3
WHERE id = $1
`, id, recordsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set chunk record ids: %w", err)
	}
	return requireRow(res, "set chunk record ids", id)
}

func (r *DocumentRepository) SaveSummary(ctx context.Context, id string, summary string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET summary = $2, updated_at = $3
WHERE id = $1
`, id, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return requireRow(res, "save summary", id)
}

// requireRow maps a zero-row update to ErrDocumentNotFound so callers can
// treat writes against deleted documents as a no-op.
func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
