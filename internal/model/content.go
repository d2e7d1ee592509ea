// Package model defines the core content and source data types.
package model

import "time"

// SourceKind identifies the logical owner type of a content unit.
type SourceKind string

const (
	KindConversation SourceKind = "conversation"
	KindDocument     SourceKind = "document"
	KindWebpage      SourceKind = "webpage"
	KindEmail        SourceKind = "email"
)

// ValidKinds are the allowed source kinds.
var ValidKinds = map[SourceKind]bool{
	KindConversation: true,
	KindDocument:     true,
	KindWebpage:      true,
	KindEmail:        true,
}

// ContentUnit is one retrievable fragment (a conversation message or a
// document chunk) plus its embedding and position. Immutable once written;
// re-insertion under the same (SourceKind, SourceID, Position) key replaces
// the stored row.
type ContentUnit struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Embedding   []float32  `json:"-"`
	Timestamp   time.Time  `json:"timestamp"`
	SourceKind  SourceKind `json:"source_kind"`
	SourceID    string     `json:"source_id"`
	Position    int        `json:"position"`
	IsUser      bool       `json:"is_user"`
	EntityCount int        `json:"entity_count,omitempty"`
	ContentHash string     `json:"content_hash,omitempty"`
	Metadata    string     `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Source is the logical owner of content units: one conversation or one
// imported document.
type Source struct {
	ID          string     `json:"id"`
	Kind        SourceKind `json:"kind"`
	DisplayName string     `json:"display_name"`
	PathOrURL   string     `json:"path_or_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ChunkCount  int        `json:"chunk_count"`
	EntityCount int        `json:"entity_count"`
	ContentHash string     `json:"content_hash,omitempty"`
	Size        int64      `json:"size"`
	Metadata    string     `json:"meta,omitempty"`
}

// Message is a conversation message reconstructed from stored content units.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// RoleFor maps the stored is_user flag to a message role.
func RoleFor(isUser bool) string {
	if isUser {
		return "user"
	}
	return "assistant"
}
