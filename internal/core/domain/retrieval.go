package domain

import "fmt"

type SearchMode string

const (
	SearchModeVector   SearchMode = "vector"
	SearchModeFullText SearchMode = "fulltext"
	SearchModeHybrid   SearchMode = "hybrid"
)

type RankFunction string

const (
	RankStandard     RankFunction = "ts_rank"
	RankCoverDensity RankFunction = "ts_rank_cd"
)

// SearchOptions configures the retrieval engine. TextWeight and MinTextScore
// are only consulted in fulltext/hybrid modes.
type SearchOptions struct {
	Mode          SearchMode   `json:"mode"`
	TextWeight    float64      `json:"text_weight,omitempty"`
	RankFunction  RankFunction `json:"rank_function,omitempty"`
	Language      string       `json:"language,omitempty"`
	Normalization int          `json:"normalization,omitempty"`
	MinTextScore  *float64     `json:"min_text_score,omitempty"`
}

func (o SearchOptions) Validate() error {
	switch o.Mode {
	case SearchModeVector, SearchModeFullText, SearchModeHybrid:
	case "":
		return fmt.Errorf("%w: search mode is required", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown search mode %q", ErrInvalidInput, o.Mode)
	}
	if o.Mode == SearchModeHybrid && (o.TextWeight < 0 || o.TextWeight > 1) {
		return fmt.Errorf("%w: text weight %v outside [0,1]", ErrInvalidInput, o.TextWeight)
	}
	switch o.RankFunction {
	case "", RankStandard, RankCoverDensity:
	default:
		return fmt.Errorf("%w: unknown rank function %q", ErrInvalidInput, o.RankFunction)
	}
	return nil
}

// RetrievedChunk is a single search hit. TextScore is nil outside
// fulltext/hybrid modes.
type RetrievedChunk struct {
	DocumentID  string   `json:"document_id"`
	ChunkIndex  int      `json:"chunk_index"`
	Content     string   `json:"content"`
	VectorScore float64  `json:"vector_score"`
	TextScore   *float64 `json:"text_score,omitempty"`
}
