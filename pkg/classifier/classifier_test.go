package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLine_Chapter(t *testing.T) {
	a := ClassifyLine(0, "الباب الأول")
	assert.Equal(t, LabelChapter, a.Label)
	assert.Equal(t, 1, a.Meta["index"])
}

func TestClassifyLine_Section(t *testing.T) {
	a := ClassifyLine(0, "الفصل الثاني")
	assert.Equal(t, LabelSection, a.Label)
	assert.Equal(t, 2, a.Meta["index"])
}

func TestClassifyLine_ArticleFeminineOrdinal(t *testing.T) {
	a := ClassifyLine(0, "المادة الأولى")
	assert.Equal(t, LabelArticle, a.Label)
	assert.Equal(t, 1, a.Meta["index"])
	assert.Equal(t, false, a.Meta["ends_with_trailing_integer"])
}

func TestClassifyLine_ArticleNumeric(t *testing.T) {
	for _, line := range []string{"المادة 15", "المادة: ١٥", "مادة رقم 15"} {
		a := ClassifyLine(0, line)
		assert.Equal(t, LabelArticle, a.Label, "line=%q", line)
		assert.Equal(t, 15, a.Meta["index"], "line=%q", line)
	}
}

func TestClassifyLine_ArticleWithTrailingPageNumber(t *testing.T) {
	a := ClassifyLine(0, "المادة الأولى 14")
	assert.Equal(t, LabelArticle, a.Label)
	assert.Equal(t, true, a.Meta["ends_with_trailing_integer"])
	assert.Equal(t, 14, a.Meta["trailing_integer"])
	assert.Equal(t, 1, a.Meta["index"])
}

func TestClassifyLine_ChapterPrefixToc(t *testing.T) {
	a := ClassifyLine(0, "Chapter الباب السابع عشر 47")
	assert.Equal(t, LabelIgnore, a.Label)
	assert.Equal(t, "chapter_prefix_toc", a.Meta["reason"])
}

func TestClassifyLine_Content(t *testing.T) {
	a := ClassifyLine(0, "يجب على كل موظف الالتزام بأحكام هذا النظام فيما يخص واجباته.")
	assert.Equal(t, LabelContent, a.Label)
}

func TestClassifyLine_TooShortIgnored(t *testing.T) {
	a := ClassifyLine(0, "ج")
	assert.Equal(t, LabelIgnore, a.Label)
	assert.Equal(t, "too_short", a.Meta["reason"])
}

func TestClassifyLine_Purity(t *testing.T) {
	a := ClassifyLine(3, "المادة الأولى")
	b := ClassifyLine(99, "المادة الأولى")
	assert.Equal(t, a.Label, b.Label)
	assert.Equal(t, a.Meta["index"], b.Meta["index"])
}

func TestClassifyLine_UnknownOrdinalFallsBackNull(t *testing.T) {
	a := ClassifyLine(0, "الباب الفلاني")
	assert.Equal(t, LabelChapter, a.Label)
	assert.Nil(t, a.Meta["index"])
	assert.Less(t, a.Confidence, 1.0)
}
