package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// Index mirrors chunk text into Postgres and ranks lexical matches with
// ts_rank/ts_rank_cd. The text search configuration is whitelisted because
// regconfig values cannot be bound as ordinary query parameters.
type Index struct {
	db              *sql.DB
	defaultLanguage string
}

var _ ports.FullTextIndex = (*Index)(nil)

var allowedLanguages = map[string]bool{
	"simple":  true,
	"english": true,
	"russian": true,
	"german":  true,
	"french":  true,
	"spanish": true,
}

func NewIndex(db *sql.DB, defaultLanguage string) *Index {
	if !allowedLanguages[defaultLanguage] {
		defaultLanguage = "simple"
	}
	return &Index{db: db, defaultLanguage: defaultLanguage}
}

func (i *Index) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS chunk_texts (
	collection_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	chunk_index INT NOT NULL,
	content TEXT NOT NULL,
	PRIMARY KEY (collection_id, document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunk_texts_collection ON chunk_texts(collection_id);
`
	if _, err := i.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute chunk text ddl: %w", err)
	}
	return nil
}

func (i *Index) IndexChunks(ctx context.Context, collectionID string, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Re-ingestion replaces the document's previous rows wholesale.
	if err := deleteDocumentTx(ctx, tx, collectionID, doc.ID); err != nil {
		return err
	}

	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chunk_texts (collection_id, document_id, chunk_index, content)
VALUES ($1, $2, $3, $4)
`, collectionID, doc.ID, chunk.Index, chunk.Content); err != nil {
			return fmt.Errorf("insert chunk text %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

// DeleteDocument drops every mirrored chunk of one document.
func (i *Index) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	if _, err := i.db.ExecContext(ctx, `
DELETE FROM chunk_texts WHERE collection_id = $1 AND document_id = $2
`, collectionID, documentID); err != nil {
		return fmt.Errorf("delete chunk texts: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteDocumentTx(ctx context.Context, tx execer, collectionID, documentID string) error {
	if _, err := tx.ExecContext(ctx, `
DELETE FROM chunk_texts WHERE collection_id = $1 AND document_id = $2
`, collectionID, documentID); err != nil {
		return fmt.Errorf("clear previous chunk texts: %w", err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, collectionID, query string, topK int, opts domain.SearchOptions) ([]domain.RetrievedChunk, error) {
	language := i.defaultLanguage
	if opts.Language != "" {
		if !allowedLanguages[opts.Language] {
			return nil, fmt.Errorf("%w: unsupported text search language %q", domain.ErrInvalidInput, opts.Language)
		}
		language = opts.Language
	}

	rank := "ts_rank"
	if opts.RankFunction == domain.RankCoverDensity {
		rank = "ts_rank_cd"
	}

	sqlQuery := fmt.Sprintf(`
SELECT document_id, chunk_index, content,
	%s(to_tsvector('%s', content), plainto_tsquery('%s', $2), $3) AS score
FROM chunk_texts
WHERE collection_id = $1
	AND to_tsvector('%s', content) @@ plainto_tsquery('%s', $2)
ORDER BY score DESC
LIMIT $4
`, rank, language, language, language, language)

	rows, err := i.db.QueryContext(ctx, sqlQuery, collectionID, strings.TrimSpace(query), opts.Normalization, topK)
	if err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RetrievedChunk, 0, topK)
	for rows.Next() {
		var chunk domain.RetrievedChunk
		var score float64
		if err := rows.Scan(&chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content, &score); err != nil {
			return nil, fmt.Errorf("scan full-text hit: %w", err)
		}
		chunk.TextScore = &score
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate full-text hits: %w", err)
	}
	return out, nil
}
