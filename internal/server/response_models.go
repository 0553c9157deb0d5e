package server

import "github.com/qanoon/halp/pkg/search"

// FilterPayload mirrors the recognized search filter set on the wire.
type FilterPayload struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Jurisdiction string `json:"jurisdiction"`
}

func (f FilterPayload) toFilters() search.Filters {
	return search.Filters{DocumentID: f.DocumentID, DocumentType: f.DocumentType, Jurisdiction: f.Jurisdiction}
}

type SemanticSearchRequest struct {
	Query     string        `json:"query" binding:"required"`
	TopK      int           `json:"top_k"`
	Threshold float64       `json:"threshold"`
	Filters   FilterPayload `json:"filters"`
}

type SimilarChunksRequest struct {
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

type HybridSearchRequest struct {
	Query          string        `json:"query" binding:"required"`
	TopK           int           `json:"top_k"`
	SemanticWeight float64       `json:"semantic_weight"`
	Filters        FilterPayload `json:"filters"`
}

// DocumentRef, ChapterRef, SectionRef, ArticleRef are the hit shape's
// nested metadata: absent parents are null, never omitted.
type DocumentRef struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	DocType      string `json:"doc_type"`
	Jurisdiction string `json:"jurisdiction"`
}

type ChapterRef struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Title string `json:"title"`
}

type SectionRef struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Title string `json:"title"`
}

type ArticleRef struct {
	Number     string `json:"number"`
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
}

// Hit is one enriched search result on the wire.
type Hit struct {
	ChunkID     string       `json:"chunk_id"`
	Content     string       `json:"content"`
	Similarity  float64      `json:"similarity"`
	Document    *DocumentRef `json:"document"`
	Chapter     *ChapterRef  `json:"chapter"`
	Section     *SectionRef  `json:"section"`
	Article     *ArticleRef  `json:"article"`
	RerankScore *float64     `json:"rerank_score,omitempty"`
}

func toHit(r search.Result) Hit {
	hit := Hit{
		ChunkID:     r.Chunk.ID,
		Content:     r.Chunk.Text,
		Similarity:  r.Score,
		RerankScore: r.RerankScore,
	}
	if r.Document != nil {
		hit.Document = &DocumentRef{ID: r.Document.ID, DisplayName: r.Document.DisplayName, DocType: string(r.Document.DocType), Jurisdiction: r.Document.Jurisdiction}
	}
	if r.Chapter != nil {
		hit.Chapter = &ChapterRef{Index: r.Chapter.Index, Label: r.Chapter.Label, Title: r.Chapter.Title}
	}
	if r.Section != nil {
		hit.Section = &SectionRef{Index: r.Section.Index, Label: r.Section.Label, Title: r.Section.Title}
	}
	if r.Article != nil {
		hit.Article = &ArticleRef{Number: r.Article.Number, Title: r.Article.Title, OrderIndex: r.Article.OrderIndex}
	}
	return hit
}

// SearchResponse is the shared envelope for all three search routes: every
// list response carries total_results, the applied threshold, and the
// echoed normalized query.
type SearchResponse struct {
	Results         []Hit   `json:"results"`
	TotalResults    int     `json:"total_results"`
	Threshold       float64 `json:"threshold"`
	NormalizedQuery string  `json:"normalized_query"`
}

type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// IngestRequest is the ingest_document payload.
type IngestRequest struct {
	DisplayName  string `json:"display_name" binding:"required"`
	DocType      string `json:"doc_type" binding:"required,oneof=law regulation case"`
	Jurisdiction string `json:"jurisdiction"`
	IssueDate    string `json:"issue_date"`
	Text         string `json:"text" binding:"required"`
}

type IngestResponse struct {
	DocumentID    string   `json:"document_id"`
	Status        string   `json:"status"`
	ChunksCreated int      `json:"chunks_created"`
	Diagnostics   []string `json:"diagnostics"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
