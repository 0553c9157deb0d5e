package hierarchy

import (
	"testing"

	"github.com/qanoon/halp/pkg/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(lines []string) []classifier.LineAnalysis {
	return classifier.ClassifyLines(lines)
}

func TestReconstruct_OrphanArticles(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"المادة الأولى",
		"يلتزم كل موظف بتنفيذ أحكام هذا النظام وتطبيق اللوائح المرتبطة به فورا.",
		"المادة الثانية",
		"تسري أحكام هذا النظام على جميع الموظفين العاملين في الجهات الحكومية كافة.",
	}))

	require.Len(t, doc.Articles, 2)
	assert.Equal(t, ParentDocument, doc.Articles[0].ParentKind)
	assert.Equal(t, 1, doc.Articles[0].OrderIndex)
	assert.Equal(t, ParentDocument, doc.Articles[1].ParentKind)
	assert.Equal(t, 2, doc.Articles[1].OrderIndex)
	assert.NotEmpty(t, doc.Articles[0].Body)
}

func TestReconstruct_ChapterSectionArticleNesting(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"الباب الأول",
		"الفصل الأول",
		"المادة الأولى",
		"نص المادة الأولى الكامل هنا يوضح الالتزامات المطلوبة من جميع الأطراف المعنية.",
	}))

	require.Len(t, doc.Chapters, 1)
	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Articles, 1)
	assert.Equal(t, ParentSection, doc.Articles[0].ParentKind)
	assert.Equal(t, 1, doc.Articles[0].SectionIndex)
	assert.Equal(t, 1, doc.Articles[0].ChapterIndex)
}

func TestReconstruct_SectionWithoutChapterCreatesAnonymous(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"الفصل الأول",
		"المادة الأولى",
		"نص المادة الأولى الكامل هنا يوضح الالتزامات المطلوبة من جميع الأطراف المعنية.",
	}))

	require.Len(t, doc.Chapters, 1)
	assert.True(t, doc.Chapters[0].Anonymous)
}

func TestReconstruct_AdjacentChaptersDiscardFirst(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"الباب الأول",
		"الباب الثاني",
		"المادة الأولى",
		"نص المادة الأولى الكامل هنا يوضح الالتزامات المطلوبة من جميع الأطراف المعنية.",
	}))

	require.Len(t, doc.Chapters, 1)
	assert.Equal(t, 2, doc.Chapters[0].Index)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "chapter_without_content", doc.Diagnostics[0].Reason)
}

func TestReconstruct_DuplicateArticleNumberFlagged(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"المادة الأولى",
		"نص أول يوضح الالتزامات المطلوبة من جميع الأطراف المعنية بشكل كامل وواضح.",
		"المادة الأولى",
		"نص ثان مكرر يوضح التزامات إضافية مطلوبة من جميع الأطراف المعنية كذلك.",
	}))

	require.Len(t, doc.Articles, 2)
	assert.Contains(t, doc.Articles[1].Warnings, "duplicate_article_number")
}

func TestReconstruct_DroppedContentBeforeAnyArticle(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"نص تمهيدي لا ينتمي لأي مادة محددة بعد وسيُسقط كتشخيص وليس كخطأ فادح.",
	}))
	require.Len(t, doc.Articles, 0)
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "dropped_content", doc.Diagnostics[0].Reason)
}

func TestReconstruct_OrderIndexMonotonic(t *testing.T) {
	doc := Reconstruct(classify([]string{
		"الباب الأول",
		"المادة الأولى",
		"نص أول يوضح الالتزامات المطلوبة من جميع الأطراف المعنية بشكل كامل وواضح.",
		"الباب الثاني",
		"المادة الثانية",
		"نص ثان يوضح التزامات إضافية مطلوبة من جميع الأطراف المعنية كذلك تماما.",
	}))
	require.Len(t, doc.Articles, 2)
	assert.Less(t, doc.Articles[0].OrderIndex, doc.Articles[1].OrderIndex)
}
