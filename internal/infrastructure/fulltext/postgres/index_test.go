package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkravets/ragline/internal/core/domain"
)

func newIndexWithMock(t *testing.T) (*Index, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewIndex(db, "english"), mock, func() { _ = db.Close() }
}

func TestSearchScansScoresAsTextScore(t *testing.T) {
	idx, mock, done := newIndexWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"document_id", "chunk_index", "content", "score"}).
		AddRow("d1", 0, "first chunk", 0.42).
		AddRow("d2", 3, "second chunk", 0.17)
	mock.ExpectQuery("FROM chunk_texts").
		WithArgs("col-1", "query", 0, 5).
		WillReturnRows(rows)

	hits, err := idx.Search(context.Background(), "col-1", "query", 5,
		domain.SearchOptions{Mode: domain.SearchModeFullText})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].TextScore == nil || *hits[0].TextScore != 0.42 {
		t.Fatalf("expected text score 0.42, got %+v", hits[0].TextScore)
	}
	if hits[1].DocumentID != "d2" || hits[1].ChunkIndex != 3 {
		t.Fatalf("unexpected second hit %+v", hits[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchUsesCoverDensityRanking(t *testing.T) {
	idx, mock, done := newIndexWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"document_id", "chunk_index", "content", "score"})
	mock.ExpectQuery("ts_rank_cd").
		WithArgs("col-1", "query", 32, 5).
		WillReturnRows(rows)

	_, err := idx.Search(context.Background(), "col-1", "query", 5, domain.SearchOptions{
		Mode:          domain.SearchModeFullText,
		RankFunction:  domain.RankCoverDensity,
		Normalization: 32,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchRejectsUnknownLanguage(t *testing.T) {
	idx, _, done := newIndexWithMock(t)
	defer done()

	_, err := idx.Search(context.Background(), "col-1", "query", 5, domain.SearchOptions{
		Mode:     domain.SearchModeFullText,
		Language: "klingon",
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteDocumentRemovesMirroredChunks(t *testing.T) {
	idx, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM chunk_texts").
		WithArgs("col-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := idx.DeleteDocument(context.Background(), "col-1", "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIndexChunksReplacesPreviousRows(t *testing.T) {
	idx, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chunk_texts").
		WithArgs("col-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO chunk_texts").
		WithArgs("col-1", "doc-1", 0, "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO chunk_texts").
		WithArgs("col-1", "doc-1", 1, "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := idx.IndexChunks(context.Background(), "col-1", &domain.Document{ID: "doc-1"}, []domain.Chunk{
		{Index: 0, Content: "a"},
		{Index: 1, Content: "b"},
	})
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
