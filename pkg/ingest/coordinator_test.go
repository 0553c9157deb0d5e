package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qanoon/halp/pkg/classifier"
)

func TestHashNormalized_StableAcrossDiacritics(t *testing.T) {
	withDiacritics := "الْمَادَّةُ الأولى"
	without := "الماده الاولي"
	assert.Equal(t, hashNormalized(without), hashNormalized(withDiacritics))
}

func TestHashNormalized_DiffersOnContent(t *testing.T) {
	assert.NotEqual(t, hashNormalized("نص أول"), hashNormalized("نص ثان"))
}

func TestClassifyLines_PreservesLineCount(t *testing.T) {
	source := "الباب الأول\nالمادة الأولى\nنص المادة"
	lines := classifyLines(source)
	assert.Len(t, lines, 3)
	assert.Equal(t, classifier.LabelChapter, lines[0].Label)
	assert.Equal(t, classifier.LabelArticle, lines[1].Label)
}

func TestSectionKey_DistinctPerChapter(t *testing.T) {
	assert.NotEqual(t, sectionKey(1, 1), sectionKey(2, 1))
}
