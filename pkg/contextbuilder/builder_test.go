package contextbuilder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_OrdersCitationsWithHits(t *testing.T) {
	hits := []Hit{
		{DocumentID: "d1", ArticleNumber: "5", ChunkText: "نص المادة الخامسة"},
		{DocumentID: "d1", ArticleNumber: "6", ChapterTitle: "الباب الثاني", ChunkText: "نص المادة السادسة"},
	}
	payload := Build("ما حكم المادة الخامسة؟", hits)

	require.Len(t, payload.Citations, 2)
	assert.Equal(t, "5", payload.Citations[0].ArticleNumber)
	assert.Equal(t, "6", payload.Citations[1].ArticleNumber)

	require.Len(t, payload.Messages, 2)
	assert.Equal(t, "system", payload.Messages[0].Role)
	assert.Equal(t, "user", payload.Messages[1].Role)
	assert.True(t, strings.Contains(payload.Messages[1].Content, "نص المادة الخامسة"))
	assert.True(t, strings.Contains(payload.Messages[1].Content, "الباب الثاني"))
}

func TestBuild_EmptyHits(t *testing.T) {
	payload := Build("سؤال بلا نتائج", nil)
	assert.Empty(t, payload.Citations)
	assert.Len(t, payload.Messages, 2)
}
