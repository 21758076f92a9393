package domain

import (
	"encoding/json"
	"fmt"
)

// RepositorySettings describes where an ingestion rule persists its chunks.
// Payloads are polymorphic on an explicit "type" discriminant and are decoded
// through a dispatch table, never by runtime type sniffing.
type RepositorySettings interface {
	Kind() string
	Collection() string
	MaxParallel() int
}

// VectorRepositorySettings targets a plain vector collection.
type VectorRepositorySettings struct {
	CollectionID     string `json:"collection_id"`
	MaxParallelTasks int    `json:"max_parallel_tasks,omitempty"`
}

func (s VectorRepositorySettings) Kind() string       { return "vector" }
func (s VectorRepositorySettings) Collection() string { return s.CollectionID }
func (s VectorRepositorySettings) MaxParallel() int   { return s.MaxParallelTasks }

// HybridRepositorySettings targets a vector collection that is additionally
// mirrored into the full-text index during ingestion.
type HybridRepositorySettings struct {
	CollectionID     string  `json:"collection_id"`
	Language         string  `json:"language,omitempty"`
	TextWeight       float64 `json:"text_weight,omitempty"`
	MaxParallelTasks int     `json:"max_parallel_tasks,omitempty"`
}

func (s HybridRepositorySettings) Kind() string       { return "hybrid" }
func (s HybridRepositorySettings) Collection() string { return s.CollectionID }
func (s HybridRepositorySettings) MaxParallel() int   { return s.MaxParallelTasks }

var settingsDecoders = map[string]func(json.RawMessage) (RepositorySettings, error){
	"vector": func(raw json.RawMessage) (RepositorySettings, error) {
		var s VectorRepositorySettings
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode vector repository settings: %w", err)
		}
		return s, nil
	},
	"hybrid": func(raw json.RawMessage) (RepositorySettings, error) {
		var s HybridRepositorySettings
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode hybrid repository settings: %w", err)
		}
		return s, nil
	},
}

// DecodeRepositorySettings parses a {"type": ..., "settings": {...}} envelope.
func DecodeRepositorySettings(raw []byte) (RepositorySettings, error) {
	var envelope struct {
		Type     string          `json:"type"`
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode repository settings envelope: %w", err)
	}
	decode, ok := settingsDecoders[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown repository settings type %q", ErrInvalidInput, envelope.Type)
	}
	if len(envelope.Settings) == 0 {
		envelope.Settings = json.RawMessage("{}")
	}
	return decode(envelope.Settings)
}
