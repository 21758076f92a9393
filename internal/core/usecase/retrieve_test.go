package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/dkravets/ragline/internal/core/domain"
)

func floatPtr(v float64) *float64 { return &v }

func newRetrievalEngine(embedder *embedderFake, vectors *vectorStoreFake, fulltext *fullTextFake) *RetrievalEngine {
	if fulltext == nil {
		return NewRetrievalEngine(embedder, vectors, nil, slog.Default())
	}
	return NewRetrievalEngine(embedder, vectors, fulltext, slog.Default())
}

func TestFuseHybridWeightedScore(t *testing.T) {
	vectorHits := []domain.RetrievedChunk{
		{DocumentID: "d1", ChunkIndex: 0, Content: "c", VectorScore: 0.8},
	}
	textHits := []domain.RetrievedChunk{
		{DocumentID: "d1", ChunkIndex: 0, TextScore: floatPtr(0.4)},
	}

	fused := fuseHybrid(vectorHits, textHits, 0.3)
	if len(fused) != 1 {
		t.Fatalf("expected one candidate, got %d", len(fused))
	}
	if got := fused[0].fused; math.Abs(got-0.68) > 1e-9 {
		t.Fatalf("expected fused score 0.68, got %v", got)
	}
}

func TestFuseHybridMissingTextScoreIsZero(t *testing.T) {
	vectorHits := []domain.RetrievedChunk{
		{DocumentID: "d1", ChunkIndex: 0, VectorScore: 0.6},
	}

	fused := fuseHybrid(vectorHits, nil, 0.5)
	if got := fused[0].fused; math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("expected fused score 0.3 with zero text score, got %v", got)
	}
}

func TestRankHybridFiltersAndSorts(t *testing.T) {
	candidates := []fusedCandidate{
		{chunk: domain.RetrievedChunk{Content: "low"}, fused: 0.2, text: 0.9},
		{chunk: domain.RetrievedChunk{Content: "weak-text"}, fused: 0.7, text: 0.05},
		{chunk: domain.RetrievedChunk{Content: "mid"}, fused: 0.5, text: 0.4},
		{chunk: domain.RetrievedChunk{Content: "high"}, fused: 0.9, text: 0.6},
	}

	ranked := rankHybrid(candidates, 0.3, floatPtr(0.1))
	if len(ranked) != 2 {
		t.Fatalf("expected 2 survivors, got %d: %+v", len(ranked), ranked)
	}
	if ranked[0].Content != "high" || ranked[1].Content != "mid" {
		t.Fatalf("expected descending fused order [high mid], got [%s %s]", ranked[0].Content, ranked[1].Content)
	}
	if ranked[0].TextScore == nil || *ranked[0].TextScore != 0.6 {
		t.Fatalf("expected text score carried through, got %+v", ranked[0].TextScore)
	}
}

func TestRankHybridStableOnTies(t *testing.T) {
	candidates := []fusedCandidate{
		{chunk: domain.RetrievedChunk{Content: "first"}, fused: 0.5},
		{chunk: domain.RetrievedChunk{Content: "second"}, fused: 0.5},
		{chunk: domain.RetrievedChunk{Content: "third"}, fused: 0.5},
	}

	ranked := rankHybrid(candidates, 0, nil)
	got := []string{ranked[0].Content, ranked[1].Content, ranked[2].Content}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order not preserved: expected %v, got %v", want, got)
		}
	}
}

func TestRetrieveVectorModeThreshold(t *testing.T) {
	vectors := &vectorStoreFake{searchHits: []domain.RetrievedChunk{
		{Content: "a", VectorScore: 0.9},
		{Content: "b", VectorScore: 0.5},
		{Content: "c", VectorScore: 0.2},
	}}
	engine := newRetrievalEngine(&embedderFake{vector: []float32{0.1}}, vectors, nil)

	got, err := engine.Retrieve(context.Background(), "col-1", "query", 3, 0.3,
		domain.SearchOptions{Mode: domain.SearchModeVector})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	if vectors.searchTopK != 3 {
		t.Fatalf("expected topK 3 passed through, got %d", vectors.searchTopK)
	}
}

func TestRetrieveValidationRejections(t *testing.T) {
	engine := newRetrievalEngine(&embedderFake{vector: []float32{0.1}}, &vectorStoreFake{}, &fullTextFake{})
	opts := domain.SearchOptions{Mode: domain.SearchModeVector}

	cases := []struct {
		name string
		run  func() error
	}{
		{"empty collection", func() error {
			_, err := engine.Retrieve(context.Background(), " ", "q", 3, 0.5, opts)
			return err
		}},
		{"empty query", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "", 3, 0.5, opts)
			return err
		}},
		{"non-positive topK", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 0, 0.5, opts)
			return err
		}},
		{"threshold above one", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, 1.5, opts)
			return err
		}},
		{"negative threshold", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, -0.1, opts)
			return err
		}},
		{"missing mode", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5, domain.SearchOptions{})
			return err
		}},
		{"unknown mode", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5,
				domain.SearchOptions{Mode: "semantic"})
			return err
		}},
		{"hybrid weight out of range", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5,
				domain.SearchOptions{Mode: domain.SearchModeHybrid, TextWeight: 1.2})
			return err
		}},
		{"unknown rank function", func() error {
			_, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5,
				domain.SearchOptions{Mode: domain.SearchModeFullText, RankFunction: "bm25"})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRetrieveTextModesRequireFullTextIndex(t *testing.T) {
	engine := newRetrievalEngine(&embedderFake{vector: []float32{0.1}}, &vectorStoreFake{}, nil)

	for _, mode := range []domain.SearchMode{domain.SearchModeFullText, domain.SearchModeHybrid} {
		_, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5, domain.SearchOptions{Mode: mode})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("mode %s: expected ErrInvalidInput without full-text index, got %v", mode, err)
		}
	}
}

func TestRetrieveEmbeddingFailureReturnsEmpty(t *testing.T) {
	embedder := &embedderFake{err: errors.New("embedder down")}
	engine := newRetrievalEngine(embedder, &vectorStoreFake{}, nil)

	got, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5,
		domain.SearchOptions{Mode: domain.SearchModeVector})
	if err != nil {
		t.Fatalf("expected nil error on embedding failure, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
}

func TestRetrieveFullTextModeSkipsEmbedder(t *testing.T) {
	embedder := &embedderFake{err: errors.New("must not be called")}
	fulltext := &fullTextFake{searchHits: []domain.RetrievedChunk{
		{Content: "lex-hit", TextScore: floatPtr(0.7)},
		{Content: "lex-weak", TextScore: floatPtr(0.05)},
	}}
	engine := newRetrievalEngine(embedder, &vectorStoreFake{}, fulltext)

	got, err := engine.Retrieve(context.Background(), "col", "q", 3, 0.5,
		domain.SearchOptions{Mode: domain.SearchModeFullText, MinTextScore: floatPtr(0.1)})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("full-text mode must not embed the query")
	}
	if len(got) != 1 || got[0] != "lex-hit" {
		t.Fatalf("expected [lex-hit], got %v", got)
	}
}

func TestRetrieveHybridEndToEnd(t *testing.T) {
	vectors := &vectorStoreFake{searchHits: []domain.RetrievedChunk{
		{DocumentID: "d1", ChunkIndex: 0, Content: "both", VectorScore: 0.8},
		{DocumentID: "d1", ChunkIndex: 1, Content: "vector-only", VectorScore: 0.9},
	}}
	fulltext := &fullTextFake{searchHits: []domain.RetrievedChunk{
		{DocumentID: "d1", ChunkIndex: 0, TextScore: floatPtr(0.4)},
	}}
	engine := newRetrievalEngine(&embedderFake{vector: []float32{0.1}}, vectors, fulltext)

	// both: 0.7*0.8 + 0.3*0.4 = 0.68; vector-only: 0.7*0.9 = 0.63.
	got, err := engine.Retrieve(context.Background(), "col", "q", 5, 0.65,
		domain.SearchOptions{Mode: domain.SearchModeHybrid, TextWeight: 0.3})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 || got[0] != "both" {
		t.Fatalf("expected fusion to keep only [both], got %v", got)
	}
	if fulltext.searchCalls != 1 {
		t.Fatalf("expected one lexical search, got %d", fulltext.searchCalls)
	}
}
