// Package vector provides interfaces and implementations for vector storage.
// Leo mirrors saved URLs and chat messages into a vector store so they can be
// searched by meaning as well as by text.
package vector

import (
	"context"
	"strconv"
)

// Document kinds mirrored from relational storage.
const (
	KindURL                = "url"
	KindChatMessage        = "chat_message"
	KindContextURL         = "context_url"
	KindContextChatMessage = "context_chat_message"
)

// Document represents a stored item with its embedding and the metadata
// needed to resolve it back to a storage row.
type Document struct {
	// ID is a unique identifier for the document, see DocID.
	ID string

	// UserID owns the source row. Queries are always filtered by owner.
	UserID int64

	// Kind is one of the Kind constants.
	Kind string

	// SourceID is the primary key of the source row.
	SourceID int64

	// ProfileID is set for profile-scoped rows.
	ProfileID int64

	// Text is the content that was embedded.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// DocID returns the document id for a storage row.
func DocID(kind string, sourceID int64) string {
	return kind + ":" + strconv.FormatInt(sourceID, 10)
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Filter restricts a query. UserID is required; an empty Kind matches every
// kind.
type Filter struct {
	UserID int64
	Kind   string
}

// Matches reports whether doc satisfies the filter.
func (f Filter) Matches(doc Document) bool {
	return doc.UserID == f.UserID && (f.Kind == "" || doc.Kind == f.Kind)
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK documents matching filter that are most similar to
	// the given embedding.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
