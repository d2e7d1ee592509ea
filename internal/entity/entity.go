// Package entity defines the pluggable entity-extraction strategy.
//
// Extraction is currently disabled: the default Noop extractor returns no
// entities and the entities table stays empty. The interface exists so a
// real extractor can be selected by configuration without touching callers.
package entity

import "context"

// Entity is one extracted mention within a piece of text.
type Entity struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Extractor finds entities in text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// Noop is the default extractor. It returns no entities.
type Noop struct{}

func (Noop) Extract(ctx context.Context, text string) ([]Entity, error) {
	return nil, nil
}
