package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/coreerr"
)

type fakeEmbedder struct {
	calls   int
	dim     int
	failIdx map[int]bool // index within the *texts slice passed to CreateBatchEmbedding*
	failAll bool
}

func (f *fakeEmbedder) CreateBatchEmbedding(model string, texts []string) (*Response, error) {
	f.calls++
	if f.failAll {
		return nil, errors.New("upstream unavailable")
	}
	resp := &Response{Model: model}
	for i := range texts {
		if f.failIdx[i] {
			continue // simulate a missing entry for this index
		}
		vec := make([]float64, f.dim)
		for d := range vec {
			vec[d] = float64(i + 1)
		}
		resp.Data = append(resp.Data, Data{Object: "embedding", Embedding: vec, Index: i})
	}
	return resp, nil
}

func testConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		ServiceConfig: config.ServiceConfig{BaseURL: "http://example", Model: "test"},
		BatchSize:     32,
		BatchLatencyMS: 50,
		CacheSize:     100,
		Dim:           4,
		VectorModelID: "test-model",
	}
}

func TestService_Embed_CachesAndNormalizesLength(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	svc := NewService(fake, testConfig())

	results := svc.Embed(context.Background(), []string{"مرحبا", "مرحبا"})
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Len(t, results[0].Vector, 4)

	// Both texts miss the cache (nothing is cached before this batch) and
	// are sent upstream together in a single embedding call.
	assert.Equal(t, 1, fake.calls)
}

func TestService_Embed_PartialFailureIsolated(t *testing.T) {
	fake := &fakeEmbedder{dim: 4, failIdx: map[int]bool{1: true}}
	svc := NewService(fake, testConfig())

	results := svc.Embed(context.Background(), []string{"واحد", "اثنان", "ثلاثة"})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestService_Embed_DimensionMismatch(t *testing.T) {
	fake := &fakeEmbedder{dim: 8}
	cfg := testConfig()
	cfg.Dim = 4
	svc := NewService(fake, cfg)

	results := svc.Embed(context.Background(), []string{"نص"})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	kind, ok := coreerr.Of(results[0].Err)
	require.True(t, ok)
	assert.Equal(t, coreerr.KindDimensionMismatch, kind)
}

func TestService_Embed_UpstreamFailureWrapsCoreError(t *testing.T) {
	fake := &fakeEmbedder{dim: 4, failAll: true}
	svc := NewService(fake, testConfig())

	results := svc.Embed(context.Background(), []string{"نص"})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	kind, ok := coreerr.Of(results[0].Err)
	require.True(t, ok)
	assert.Equal(t, coreerr.KindEmbeddingFailed, kind)
}

func TestService_EmbedQuery_Immediate(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	svc := NewService(fake, testConfig())

	v, err := svc.EmbedQuery(context.Background(), "استعلام", true)
	require.NoError(t, err)
	assert.Len(t, v, 4)
}

func TestSimilarity_IdenticalVectorsMaxScore(t *testing.T) {
	v := Vector{0.6, 0.8}
	sim, err := Similarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-6)
}

func TestSimilarity_DimensionMismatch(t *testing.T) {
	_, err := Similarity(Vector{1, 0}, Vector{1, 0, 0})
	require.Error(t, err)
	kind, ok := coreerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, coreerr.KindDimensionMismatch, kind)
}

func TestService_InvalidateCache_ResetsHitRate(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	svc := NewService(fake, testConfig())

	svc.Embed(context.Background(), []string{"نص"})
	svc.Embed(context.Background(), []string{"نص"})
	assert.Greater(t, svc.HitRate(), 0.0)

	svc.InvalidateCache()
	assert.Equal(t, 0.0, svc.HitRate())
}
