package usecase

import (
	"fmt"
	"sort"

	"github.com/dkravets/ragline/internal/core/domain"
)

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	fused float64
	text  float64
}

// fuseHybrid blends vector similarity with lexical relevance:
// fused = (1-w)*vector + w*text. Vector hits without a matching lexical hit
// fuse with a text score of zero.
func fuseHybrid(vectorHits, textHits []domain.RetrievedChunk, textWeight float64) []fusedCandidate {
	textScores := make(map[string]float64, len(textHits))
	for _, hit := range textHits {
		if hit.TextScore != nil {
			textScores[retrievalKey(hit)] = *hit.TextScore
		}
	}

	out := make([]fusedCandidate, 0, len(vectorHits))
	for _, hit := range vectorHits {
		text := textScores[retrievalKey(hit)]
		out = append(out, fusedCandidate{
			chunk: hit,
			fused: (1-textWeight)*hit.VectorScore + textWeight*text,
			text:  text,
		})
	}
	return out
}

// rankHybrid applies the fused-score threshold first, then the minimum text
// score, and sorts by descending fused score. The stable sort keeps
// collaborator order for exact ties.
func rankHybrid(candidates []fusedCandidate, scoreThreshold float64, minText *float64) []domain.RetrievedChunk {
	kept := make([]fusedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.fused < scoreThreshold {
			continue
		}
		if minText != nil && c.text < *minText {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].fused > kept[j].fused
	})

	out := make([]domain.RetrievedChunk, 0, len(kept))
	for _, c := range kept {
		text := c.text
		chunk := c.chunk
		chunk.TextScore = &text
		out = append(out, chunk)
	}
	return out
}

func rankVector(hits []domain.RetrievedChunk, scoreThreshold float64) []domain.RetrievedChunk {
	kept := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.VectorScore < scoreThreshold {
			continue
		}
		kept = append(kept, hit)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].VectorScore > kept[j].VectorScore
	})
	return kept
}

func rankFullText(hits []domain.RetrievedChunk, minScore *float64) []domain.RetrievedChunk {
	kept := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if minScore != nil && textScoreOf(hit) < *minScore {
			continue
		}
		kept = append(kept, hit)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return textScoreOf(kept[i]) > textScoreOf(kept[j])
	})
	return kept
}

func textScoreOf(chunk domain.RetrievedChunk) float64 {
	if chunk.TextScore == nil {
		return 0
	}
	return *chunk.TextScore
}

func retrievalKey(chunk domain.RetrievedChunk) string {
	return fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex)
}
