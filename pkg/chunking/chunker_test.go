package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "كلمة"
		if i%12 == 11 {
			words[i] = "كلمة."
		}
	}
	return strings.Join(words, " ")
}

func TestChunkArticle_EmptyBody(t *testing.T) {
	_, err := ChunkArticle("", ArticleMeta{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestChunkArticle_SingleChunkWhenShort(t *testing.T) {
	chunks, err := ChunkArticle("نص قصير لمادة واحدة لا يحتاج إلى أي تقسيم على الإطلاق.", ArticleMeta{DocumentID: "d1"}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunkArticle_IndicesMonotonic(t *testing.T) {
	body := repeatWords(3000)
	chunks, err := ChunkArticle(body, ArticleMeta{DocumentID: "d1", ArticleOrderIdx: 4}, DefaultConfig())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, c.TokenCount, DefaultConfig().MaxTokens)
		assert.Equal(t, "d1", c.Metadata["document_id"])
		assert.Equal(t, 4, c.Metadata["article_order_index"])
	}
}

func TestChunkArticle_RespectsHardMax(t *testing.T) {
	// No sentence boundaries at all: must hard-split at MaxTokens.
	words := make([]string, 2000)
	for i := range words {
		words[i] = "كلمة"
	}
	body := strings.Join(words, " ")
	chunks, err := ChunkArticle(body, ArticleMeta{}, DefaultConfig())
	require.NoError(t, err)
	for _, c := range chunks[:len(chunks)-1] {
		assert.Equal(t, DefaultConfig().MaxTokens, c.TokenCount)
	}
}

func TestChunkArticle_Overlap(t *testing.T) {
	body := repeatWords(3000)
	cfg := DefaultConfig()
	chunks, err := ChunkArticle(body, ArticleMeta{}, cfg)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	firstWords := strings.Fields(chunks[0].Text)
	secondWords := strings.Fields(chunks[1].Text)
	overlapCandidate := firstWords[len(firstWords)-cfg.OverlapTokens:]
	assert.Equal(t, overlapCandidate, secondWords[:len(overlapCandidate)])
}
