// Package store implements the dual store: a relational store R
// (documents/chapters/sections/articles/chunks, no vectors) and a vector
// store V (chunk_id -> vector), written and reconciled together.
package store

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentType string

const (
	DocumentTypeLaw        DocumentType = "law"
	DocumentTypeRegulation DocumentType = "regulation"
	DocumentTypeCase       DocumentType = "case"
)

type Document struct {
	ID           string
	ContentHash  string
	DisplayName  string
	DocType      DocumentType
	Jurisdiction string
	IssueDate    *time.Time
	UploadedAt   time.Time
	Status       DocumentStatus
	ErrorMessage string
}

type Chapter struct {
	ID         string
	DocumentID string
	Index      int
	Label      string
	Title      string
}

type Section struct {
	ID         string
	DocumentID string
	ChapterID  string
	Index      int
	Label      string
	Title      string
}

type Article struct {
	ID         string
	DocumentID string
	ChapterID  *string
	SectionID  *string
	Number     string
	Title      string
	Body       string
	OrderIndex int
}

// Chunk is the relational-store view: no vector. VectorRecord below is the
// vector-store view of the same chunk_id.
type Chunk struct {
	ID            string
	DocumentID    string
	ArticleID     string
	ChunkIndex    int
	Text          string
	TokenCount    int
	VectorModelID string
	Metadata      map[string]any
}

type VectorRecord struct {
	ChunkID       string
	DocumentID    string
	Vector        []float32
	VectorModelID string
}

// EnrichedChunk is what the search service returns: a Chunk joined with its
// Article and, when present, Section/Chapter/Document. Absent parents are
// nil, not omitted.
type EnrichedChunk struct {
	Chunk    Chunk
	Article  *Article
	Section  *Section
	Chapter  *Chapter
	Document *Document
	Score    float64
}

// Status is the dual store's status() result.
type Status struct {
	SQLChunks        int
	VectorChunks     int
	DivergentIDsSample []string
}
