package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qanoon/halp/pkg/ingest"
	"github.com/qanoon/halp/pkg/search"
	"github.com/qanoon/halp/pkg/store"
	"github.com/qanoon/halp/pkg/textnorm"
)

const (
	defaultTopK   = 10
	defaultWeight = 0.5
)

func normalizedEcho(query string) string {
	return textnorm.NormalizeString(query, textnorm.DefaultSearchOptions())
}

func buildSearchResponse(results []search.Result, query string, threshold float64) SearchResponse {
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = toHit(r)
	}
	return SearchResponse{
		Results:         hits,
		TotalResults:    len(hits),
		Threshold:       threshold,
		NormalizedQuery: normalizedEcho(query),
	}
}

// SemanticSearch handles POST /search/semantic.
func (s *Server) SemanticSearch(c *gin.Context) {
	var req SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	results, err := s.Search.SemanticSearch(c.Request.Context(), req.Query, topK, req.Threshold, req.Filters.toFilters())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildSearchResponse(results, req.Query, req.Threshold))
}

// SimilarChunks handles POST /search/similar-to/:chunk_id.
func (s *Server) SimilarChunks(c *gin.Context) {
	chunkID := c.Param("chunk_id")
	if chunkID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "chunk_id is required"})
		return
	}
	var req SimilarChunksRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	results, err := s.Search.SimilarChunks(c.Request.Context(), chunkID, topK, req.Threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildSearchResponse(results, "", req.Threshold))
}

// HybridSearch handles POST /search/hybrid.
func (s *Server) HybridSearch(c *gin.Context) {
	var req HybridSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	weight := req.SemanticWeight
	if weight == 0 {
		weight = defaultWeight
	}

	results, err := s.Search.HybridSearch(c.Request.Context(), req.Query, topK, weight, req.Filters.toFilters())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildSearchResponse(results, req.Query, 0))
}

// Suggest handles GET /search/suggest?prefix=...&limit=...
func (s *Server) Suggest(c *gin.Context) {
	prefix := c.Query("prefix")
	limit := defaultTopK
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	suggestions, err := s.Search.Suggest(c.Request.Context(), prefix, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// IngestDocument handles the ingest_document inbound operation.
func (s *Server) IngestDocument(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var issueDate *time.Time
	if req.IssueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.IssueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "issue_date must be YYYY-MM-DD"})
			return
		}
		issueDate = &parsed
	}

	result, err := s.Ingest.Ingest(c.Request.Context(), ingest.Request{
		DisplayName:  req.DisplayName,
		DocType:      store.DocumentType(req.DocType),
		Jurisdiction: req.Jurisdiction,
		IssueDate:    issueDate,
		SourceText:   req.Text,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	diagnostics := make([]string, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		diagnostics[i] = d.Reason
	}
	c.JSON(http.StatusCreated, IngestResponse{
		DocumentID:    result.DocumentID,
		Status:        string(store.StatusProcessed),
		ChunksCreated: result.ChunkCount,
		Diagnostics:   diagnostics,
	})
}
