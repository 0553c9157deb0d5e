package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/coreerr"
	"github.com/qanoon/halp/pkg/logger"
	"github.com/qanoon/halp/pkg/textnorm"
)

// Service implements the embed/embed_query/similarity contract on top
// of a RawEmbedder: text normalization, LRU caching keyed by
// (model_id, sha256(normalized_text)), batching with a latency flush, and
// per-item failure isolation within a batch.
type Service struct {
	raw     RawEmbedder
	cache   *lruCache
	batcher *batcher

	modelID string
	dim     int

	log *zap.Logger
}

// ItemResult is one element of a batch embed() call: either a Vector or an
// error, isolated from the failure of any other item in the same batch.
type ItemResult struct {
	Vector Vector
	Err    error
}

func NewService(raw RawEmbedder, cfg config.EmbeddingConfig) *Service {
	s := &Service{
		raw:     raw,
		cache:   newLRUCache(cfg.CacheSize),
		modelID: cfg.VectorModelID,
		dim:     cfg.Dim,
		log:     logger.Get(),
	}
	if s.dim == 0 {
		s.dim = GetDefaultDimension(s.modelID)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	latencyMS := cfg.BatchLatencyMS
	if latencyMS <= 0 {
		latencyMS = 50
	}
	s.batcher = newBatcher(batchSize, msToDuration(latencyMS), s.embedUncached)
	return s
}

func msToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Embed embeds a batch of texts, preserving input order. Each element's
// failure is isolated: one bad item never fails its siblings.
func (s *Service) Embed(ctx context.Context, texts []string) []ItemResult {
	results := make([]ItemResult, len(texts))
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = textnorm.NormalizeString(t, textnorm.DefaultSearchOptions())
	}

	var misses []int
	var missTexts []string
	for i, n := range normalized {
		key := cacheKey(s.modelID, n)
		if v, ok := s.cache.get(key); ok {
			results[i] = ItemResult{Vector: v}
			continue
		}
		misses = append(misses, i)
		missTexts = append(missTexts, n)
	}

	if len(missTexts) == 0 {
		return results
	}

	vectors, errs := s.embedUncached(ctx, missTexts)
	for j, idx := range misses {
		if j < len(errs) && errs[j] != nil {
			results[idx] = ItemResult{Err: errs[j]}
			continue
		}
		v := vectors[j]
		results[idx] = ItemResult{Vector: v}
		s.cache.set(cacheKey(s.modelID, normalized[idx]), v)
	}
	return results
}

// EmbedQuery embeds a single query string. immediate=true bypasses the
// coalescing batcher and calls the raw embedder directly.
func (s *Service) EmbedQuery(ctx context.Context, text string, immediate bool) (Vector, error) {
	normalized := textnorm.NormalizeString(text, textnorm.DefaultSearchOptions())
	key := cacheKey(s.modelID, normalized)
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}

	var v Vector
	var err error
	if immediate {
		vectors, errs := s.embedUncached(ctx, []string{normalized})
		if len(errs) > 0 && errs[0] != nil {
			err = errs[0]
		} else {
			v = vectors[0]
		}
	} else {
		v, err = s.batcher.submit(ctx, normalized)
	}
	if err != nil {
		return nil, err
	}
	s.cache.set(key, v)
	return v, nil
}

// embedUncached calls the raw embedder for texts known not to be cached,
// validates the returned dimension, and L2-normalizes each vector. A
// request-level failure (the whole HTTP call erroring) fails every item in
// this sub-batch; that sub-batch is independent of any other batch the
// caller may have submitted concurrently, which is what preserves the
// per-item isolation the contract promises at the Embed() level.
func (s *Service) embedUncached(ctx context.Context, texts []string) ([]Vector, []error) {
	vectors := make([]Vector, len(texts))
	errs := make([]error, len(texts))

	resp, err := s.raw.CreateBatchEmbedding(s.modelID, texts)
	if err != nil {
		wrapped := coreerr.New(coreerr.KindEmbeddingFailed, "embed_batch", err)
		s.log.Error("embedding batch failed", zap.Error(err), zap.Int("batch_size", len(texts)))
		for i := range errs {
			errs[i] = wrapped
		}
		return vectors, errs
	}

	byIndex := make(map[int]Vector, len(resp.Data))
	for _, d := range resp.Data {
		byIndex[d.Index] = toFloat32(d.Embedding)
	}

	for i := range texts {
		v, ok := byIndex[i]
		if !ok {
			errs[i] = coreerr.New(coreerr.KindEmbeddingFailed, "embed_item", fmt.Errorf("missing embedding at index %d", i))
			continue
		}
		if s.dim > 0 && len(v) != s.dim {
			errs[i] = coreerr.New(coreerr.KindDimensionMismatch, "embed_item",
				fmt.Errorf("expected dimension %d, got %d", s.dim, len(v)))
			continue
		}
		vectors[i] = l2Normalize(v)
	}
	return vectors, errs
}

func toFloat32(in []float64) Vector {
	out := make(Vector, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}

func l2Normalize(v Vector) Vector {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Similarity computes cosine similarity between two L2-normalized vectors,
// which reduces to a plain dot product.
func Similarity(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, coreerr.New(coreerr.KindDimensionMismatch, "similarity",
			fmt.Errorf("vector dimensions differ: %d vs %d", len(a), len(b)))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// HitRate exposes the cache's running hit rate for observability.
func (s *Service) HitRate() float64 { return s.cache.HitRate() }

// InvalidateCache clears all cached vectors, used when vector_model_id
// rotates: old vectors are no longer comparable to new ones.
func (s *Service) InvalidateCache() { s.cache.Reset() }
