// Package search implements semantic_search, similar_chunks, hybrid_search,
// and suggest, with caching and Chunk->Article->Section?->Chapter?->Document
// enrichment.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/qanoon/halp/pkg/clients/embedding"
	"github.com/qanoon/halp/pkg/clients/rerank"
	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/coreerr"
	"github.com/qanoon/halp/pkg/logger"
	"github.com/qanoon/halp/pkg/redis"
	"github.com/qanoon/halp/pkg/store"
	"github.com/qanoon/halp/pkg/textnorm"
)

// Filters mirrors the three recognized filter keys. Unknown keys are
// rejected by the HTTP layer before reaching this package.
type Filters struct {
	DocumentID   string
	DocumentType string
	Jurisdiction string
}

// Result is one enriched, scored hit.
type Result struct {
	store.EnrichedChunk
	RerankScore *float64 // non-authoritative annotation; nil if reranker unavailable
}

type VectorSearcher interface {
	Search(ctx context.Context, query []float32, topK int, exclude []string, filters store.SearchFilters) ([]store.ScoredChunk, error)
	Get(ctx context.Context, chunkID string) (*store.VectorRecord, error)
}

type Enricher interface {
	EnrichChunks(ctx context.Context, chunkIDs []string) (map[string]store.EnrichedChunk, error)
	DocumentIDsByFilter(ctx context.Context, docType, jurisdiction string) ([]string, error)
	ArticleTitlesByPrefix(ctx context.Context, normalizedPrefix string, limit int) ([]string, error)
	GetChunk(ctx context.Context, chunkID string) (*store.Chunk, error)
}

// Embedder is the slice of the embedding service this package needs.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string, immediate bool) (embedding.Vector, error)
}

// Reranker is the slice of the rerank client this package needs; nil is a
// valid value meaning "no reranker configured".
type Reranker interface {
	Rerank(query string, documents []string) (*rerank.Response, error)
}

type Service struct {
	vectors  VectorSearcher
	rel      Enricher
	embedder Embedder
	reranker Reranker
	cache    redis.RedisClient
	cfg      config.SearchConfig

	log *zap.Logger
}

func NewService(vectors VectorSearcher, rel Enricher, embedder Embedder, reranker Reranker, cache redis.RedisClient, cfg config.SearchConfig) *Service {
	return &Service{vectors: vectors, rel: rel, embedder: embedder, reranker: reranker, cache: cache, cfg: cfg, log: logger.Get()}
}

// SemanticSearch returns up to topK chunks with similarity >= threshold,
// enriched and ordered.
func (s *Service) SemanticSearch(ctx context.Context, query string, topK int, threshold float64, filters Filters) ([]Result, error) {
	cacheKey := s.cacheKey("semantic", query, topK, threshold, filters)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query, true)
	if err != nil {
		return nil, coreerr.New(coreerr.KindEmbeddingFailed, "semantic_search", err)
	}

	docIDs, err := s.resolveDocumentIDs(ctx, filters)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, vec, topK, nil, store.SearchFilters{DocumentIDs: docIDs})
	if err != nil {
		return nil, coreerr.New(coreerr.KindVectorWriteFailed, "semantic_search", err)
	}
	hits = filterByThreshold(hits, threshold)

	results, err := s.enrich(ctx, hits)
	if err != nil {
		return nil, err
	}
	results = s.annotateRerank(query, results)
	s.writeCache(ctx, cacheKey, results)
	return results, nil
}

// SimilarChunks uses chunkID's stored vector as the query, excluding the
// source chunk itself from the results.
func (s *Service) SimilarChunks(ctx context.Context, chunkID string, topK int, threshold float64) ([]Result, error) {
	rec, err := s.vectors.Get(ctx, chunkID)
	if err != nil {
		return nil, coreerr.New(coreerr.KindVectorWriteFailed, "similar_chunks", err)
	}
	if rec == nil {
		return nil, coreerr.New(coreerr.KindNotFound, "similar_chunks", fmt.Errorf("chunk %s has no stored vector", chunkID))
	}

	hits, err := s.vectors.Search(ctx, rec.Vector, topK, []string{chunkID}, store.SearchFilters{})
	if err != nil {
		return nil, coreerr.New(coreerr.KindVectorWriteFailed, "similar_chunks", err)
	}
	hits = filterByThreshold(hits, threshold)

	return s.enrich(ctx, hits)
}

// HybridSearch combines semantic similarity with a BM25 lexical score:
// score = w*s + (1-w)*l, w = semanticWeight.
func (s *Service) HybridSearch(ctx context.Context, query string, topK int, semanticWeight float64, filters Filters) ([]Result, error) {
	if semanticWeight < 0 || semanticWeight > 1 {
		return nil, coreerr.New(coreerr.KindInvalidInput, "hybrid_search", fmt.Errorf("semantic_weight must be in [0,1], got %f", semanticWeight))
	}

	cacheKey := s.cacheKey("hybrid", query, topK, semanticWeight, filters)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	vec, err := s.embedder.EmbedQuery(ctx, query, true)
	if err != nil {
		return nil, coreerr.New(coreerr.KindEmbeddingFailed, "hybrid_search", err)
	}

	docIDs, err := s.resolveDocumentIDs(ctx, filters)
	if err != nil {
		return nil, err
	}

	// Over-fetch so reordering by the fused score doesn't starve results
	// that ranked lower semantically but score highly lexically.
	const fanOut = 4
	hits, err := s.vectors.Search(ctx, vec, topK*fanOut, nil, store.SearchFilters{DocumentIDs: docIDs})
	if err != nil {
		return nil, coreerr.New(coreerr.KindVectorWriteFailed, "hybrid_search", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	enriched, err := s.rel.EnrichChunks(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("hybrid_search enrich: %w", err)
	}

	docTokens := make(map[string][]string, len(hits))
	semantic := make(map[string]float64, len(hits))
	for _, h := range hits {
		ec, ok := enriched[h.ChunkID]
		if !ok {
			s.log.Warn("dangling_chunk", zap.String("chunk_id", h.ChunkID))
			continue
		}
		docTokens[h.ChunkID] = tokenize(ec.Chunk.Text)
		semantic[h.ChunkID] = h.Similarity
	}

	queryTokens := tokenize(query)
	stats := buildCorpusStats(docTokens)
	lexical := make(map[string]float64, len(docTokens))
	for id, tokens := range docTokens {
		lexical[id] = stats.score(queryTokens, tokens)
	}
	lexicalNorm := normalizeScores(lexical)

	type scored struct {
		id    string
		score float64
	}
	fused := make([]scored, 0, len(docTokens))
	for id := range docTokens {
		fused = append(fused, scored{id: id, score: semanticWeight*semantic[id] + (1-semanticWeight)*lexicalNorm[id]})
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		ec := enriched[f.id]
		ec.Score = f.score
		results = append(results, Result{EnrichedChunk: ec})
	}
	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}

	results = s.annotateRerank(query, results)
	s.writeCache(ctx, cacheKey, results)
	return results, nil
}

// Suggest returns up to limit Article-title continuations of prefix.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	normalized := textnorm.NormalizeString(prefix, textnorm.DefaultSearchOptions())
	titles, err := s.rel.ArticleTitlesByPrefix(ctx, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return titles, nil
}

// ClearCache deletes the cached search result stored under key. Results
// cached under other keys are left in place until their TTL expires.
func (s *Service) ClearCache(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

func (s *Service) resolveDocumentIDs(ctx context.Context, filters Filters) ([]string, error) {
	if filters.DocumentID != "" {
		return []string{filters.DocumentID}, nil
	}
	if filters.DocumentType == "" && filters.Jurisdiction == "" {
		return nil, nil
	}
	ids, err := s.rel.DocumentIDsByFilter(ctx, filters.DocumentType, filters.Jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("resolve filters: %w", err)
	}
	return ids, nil
}

func filterByThreshold(hits []store.ScoredChunk, threshold float64) []store.ScoredChunk {
	out := hits[:0]
	for _, h := range hits {
		if h.Similarity >= threshold {
			out = append(out, h)
		}
	}
	return out
}

// enrich joins hits to their Article/Section/Chapter/Document, dropping
// and logging any chunk with no owning article as dangling_chunk.
func (s *Service) enrich(ctx context.Context, hits []store.ScoredChunk) ([]Result, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	chunkIDs := make([]string, len(hits))
	for i, h := range hits {
		chunkIDs[i] = h.ChunkID
	}
	enriched, err := s.rel.EnrichChunks(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		ec, ok := enriched[h.ChunkID]
		if !ok {
			s.log.Warn("dangling_chunk", zap.String("chunk_id", h.ChunkID))
			continue
		}
		ec.Score = h.Similarity
		results = append(results, Result{EnrichedChunk: ec})
	}
	sortResults(results)
	return results, nil
}

// sortResults applies the ordering law: score desc, ties broken by
// (document_id asc, article_order_index asc, chunk_index asc).
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.DocumentID != b.Chunk.DocumentID {
			return a.Chunk.DocumentID < b.Chunk.DocumentID
		}
		if a.Article != nil && b.Article != nil && a.Article.OrderIndex != b.Article.OrderIndex {
			return a.Article.OrderIndex < b.Article.OrderIndex
		}
		return a.Chunk.ChunkIndex < b.Chunk.ChunkIndex
	})
}

// annotateRerank scores each result against query with the cross-encoder
// reranker and attaches it as a non-authoritative field; it never reorders
// results.
func (s *Service) annotateRerank(query string, results []Result) []Result {
	if s.reranker == nil || len(results) == 0 {
		return results
	}
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Chunk.Text
	}
	resp, err := s.reranker.Rerank(query, docs)
	if err != nil {
		s.log.Warn("rerank annotation failed, leaving results unscored", zap.Error(err))
		return results
	}
	for _, rr := range resp.Results {
		if rr.Index < 0 || rr.Index >= len(results) {
			continue
		}
		score := rr.RelevanceScore
		results[rr.Index].RerankScore = &score
	}
	return results
}

func (s *Service) cacheKey(op, query string, topK int, a any, filters Filters) string {
	normalized := textnorm.NormalizeString(query, textnorm.DefaultSearchOptions())
	return fmt.Sprintf("search:%s:%s:%d:%v:%s:%s:%s", op, normalized, topK, a, filters.DocumentID, filters.DocumentType, filters.Jurisdiction)
}

func (s *Service) readCache(ctx context.Context, key string) ([]Result, bool) {
	var results []Result
	ok, err := s.cache.GetJSON(ctx, key, &results)
	if err != nil {
		s.log.Warn("search cache read failed", zap.Error(err))
		return nil, false
	}
	return results, ok
}

func (s *Service) writeCache(ctx context.Context, key string, results []Result) {
	ttl := time.Duration(s.cfg.CacheTTLSeconds) * time.Second
	if err := s.cache.SetJSON(ctx, key, results, ttl); err != nil {
		s.log.Warn("search cache write failed", zap.Error(err))
	}
}
