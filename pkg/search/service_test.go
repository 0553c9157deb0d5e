package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qanoon/halp/pkg/clients/embedding"
	"github.com/qanoon/halp/pkg/clients/rerank"
	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/store"
)

type fakeVectors struct {
	hits []store.ScoredChunk
	recs map[string]*store.VectorRecord
}

func (f *fakeVectors) Search(ctx context.Context, query []float32, topK int, exclude []string, filters store.SearchFilters) ([]store.ScoredChunk, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	var out []store.ScoredChunk
	for _, h := range f.hits {
		if excluded[h.ChunkID] {
			continue
		}
		out = append(out, h)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeVectors) Get(ctx context.Context, chunkID string) (*store.VectorRecord, error) {
	return f.recs[chunkID], nil
}

type fakeEnricher struct {
	chunks map[string]store.EnrichedChunk
	titles []string
}

func (f *fakeEnricher) EnrichChunks(ctx context.Context, chunkIDs []string) (map[string]store.EnrichedChunk, error) {
	out := make(map[string]store.EnrichedChunk, len(chunkIDs))
	for _, id := range chunkIDs {
		if ec, ok := f.chunks[id]; ok {
			out[id] = ec
		}
	}
	return out, nil
}

func (f *fakeEnricher) DocumentIDsByFilter(ctx context.Context, docType, jurisdiction string) ([]string, error) {
	return nil, nil
}

func (f *fakeEnricher) ArticleTitlesByPrefix(ctx context.Context, normalizedPrefix string, limit int) ([]string, error) {
	return f.titles, nil
}

func (f *fakeEnricher) GetChunk(ctx context.Context, chunkID string) (*store.Chunk, error) {
	if ec, ok := f.chunks[chunkID]; ok {
		return &ec.Chunk, nil
	}
	return nil, nil
}

type fakeEmbedder struct{ vec embedding.Vector }

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string, immediate bool) (embedding.Vector, error) {
	return f.vec, nil
}

type noopCache struct{ store map[string]string }

func newNoopCache() *noopCache { return &noopCache{store: make(map[string]string)} }

func (n *noopCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	n.store[key] = value
	return nil
}
func (n *noopCache) Get(ctx context.Context, key string) (string, error) { return n.store[key], nil }
func (n *noopCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(n.store, k)
	}
	return nil
}
func (n *noopCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := n.store[key]
	return ok, nil
}
func (n *noopCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (n *noopCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}
func (n *noopCache) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return "", true, nil
}
func (n *noopCache) Unlock(ctx context.Context, key, token string) error { return nil }
func (n *noopCache) AppendRepairLog(ctx context.Context, entry string) error { return nil }
func (n *noopCache) ListRepairLog(ctx context.Context, limit int64) ([]string, error) {
	return nil, nil
}
func (n *noopCache) Ping(ctx context.Context) error { return nil }
func (n *noopCache) Close()                         {}

func article(number string, order int) *store.Article {
	return &store.Article{Number: number, OrderIndex: order}
}

func TestSemanticSearch_OrdersByScore(t *testing.T) {
	hits := []store.ScoredChunk{
		{ChunkID: "c1", DocumentID: "d1", Similarity: 0.5},
		{ChunkID: "c2", DocumentID: "d1", Similarity: 0.9},
	}
	chunks := map[string]store.EnrichedChunk{
		"c1": {Chunk: store.Chunk{ID: "c1", DocumentID: "d1", ChunkIndex: 0}, Article: article("1", 1)},
		"c2": {Chunk: store.Chunk{ID: "c2", DocumentID: "d1", ChunkIndex: 0}, Article: article("2", 2)},
	}

	svc := NewService(&fakeVectors{hits: hits}, &fakeEnricher{chunks: chunks}, &fakeEmbedder{vec: embedding.Vector{1, 0}}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})

	results, err := svc.SemanticSearch(context.Background(), "سؤال", 10, 0, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].Chunk.ID)
	assert.Equal(t, "c1", results[1].Chunk.ID)
}

func TestSemanticSearch_FiltersBelowThreshold(t *testing.T) {
	hits := []store.ScoredChunk{
		{ChunkID: "c1", DocumentID: "d1", Similarity: 0.2},
		{ChunkID: "c2", DocumentID: "d1", Similarity: 0.9},
	}
	chunks := map[string]store.EnrichedChunk{
		"c1": {Chunk: store.Chunk{ID: "c1", DocumentID: "d1"}, Article: article("1", 1)},
		"c2": {Chunk: store.Chunk{ID: "c2", DocumentID: "d1"}, Article: article("2", 2)},
	}
	svc := NewService(&fakeVectors{hits: hits}, &fakeEnricher{chunks: chunks}, &fakeEmbedder{vec: embedding.Vector{1, 0}}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})

	results, err := svc.SemanticSearch(context.Background(), "سؤال", 10, 0.5, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].Chunk.ID)
}

func TestSemanticSearch_DanglingChunkDropped(t *testing.T) {
	hits := []store.ScoredChunk{{ChunkID: "ghost", DocumentID: "d1", Similarity: 0.9}}
	svc := NewService(&fakeVectors{hits: hits}, &fakeEnricher{chunks: map[string]store.EnrichedChunk{}}, &fakeEmbedder{vec: embedding.Vector{1, 0}}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})

	results, err := svc.SemanticSearch(context.Background(), "سؤال", 10, 0, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilarChunks_ExcludesSource(t *testing.T) {
	vectors := &fakeVectors{
		recs: map[string]*store.VectorRecord{"c1": {ChunkID: "c1", Vector: []float32{1, 0}}},
		hits: []store.ScoredChunk{
			{ChunkID: "c1", DocumentID: "d1", Similarity: 1.0},
			{ChunkID: "c2", DocumentID: "d1", Similarity: 0.8},
		},
	}
	chunks := map[string]store.EnrichedChunk{
		"c2": {Chunk: store.Chunk{ID: "c2", DocumentID: "d1"}, Article: article("2", 2)},
	}
	svc := NewService(vectors, &fakeEnricher{chunks: chunks}, &fakeEmbedder{}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})

	results, err := svc.SimilarChunks(context.Background(), "c1", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].Chunk.ID)
}

func TestHybridSearch_RejectsOutOfRangeWeight(t *testing.T) {
	svc := NewService(&fakeVectors{}, &fakeEnricher{}, &fakeEmbedder{}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})
	_, err := svc.HybridSearch(context.Background(), "سؤال", 10, 1.5, Filters{})
	require.Error(t, err)
}

func TestSuggest_ReturnsArticleTitles(t *testing.T) {
	svc := NewService(&fakeVectors{}, &fakeEnricher{titles: []string{"عنوان المادة الأولى"}}, &fakeEmbedder{}, nil, newNoopCache(), config.SearchConfig{CacheTTLSeconds: 300})
	titles, err := svc.Suggest(context.Background(), "عنوان", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"عنوان المادة الأولى"}, titles)
}

func TestAnnotateRerank_NeverReorders(t *testing.T) {
	results := []Result{
		{EnrichedChunk: store.EnrichedChunk{Chunk: store.Chunk{ID: "c1", Text: "a"}, Score: 0.9}},
		{EnrichedChunk: store.EnrichedChunk{Chunk: store.Chunk{ID: "c2", Text: "b"}, Score: 0.8}},
	}
	svc := &Service{reranker: fakeReranker{}, log: noopLogger()}
	annotated := svc.annotateRerank("q", results)
	require.Len(t, annotated, 2)
	assert.Equal(t, "c1", annotated[0].Chunk.ID)
	assert.Equal(t, "c2", annotated[1].Chunk.ID)
	require.NotNil(t, annotated[0].RerankScore)
	assert.InDelta(t, 0.1, *annotated[0].RerankScore, 1e-9)
}

func noopLogger() *zap.Logger { return zap.NewNop() }

type fakeReranker struct{}

func (fakeReranker) Rerank(query string, documents []string) (*rerank.Response, error) {
	return &rerank.Response{Results: []rerank.Result{
		{Index: 1, RelevanceScore: 0.99},
		{Index: 0, RelevanceScore: 0.1},
	}}, nil
}
