package toc

import (
	"fmt"
	"testing"

	"github.com/qanoon/halp/pkg/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTOCDocument builds a heading followed by a list of chapter/article
// markers each ending with a page number, then at line 80 the real Article 1
// with a body and no trailing page number.
func buildTOCDocument() []string {
	lines := []string{"جدول المحتويات"}
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("الباب %s ... %d", ordinalWord(i), i))
	}
	lines = append(lines, "المادة الأولى ... 14")
	for len(lines) < 79 {
		lines = append(lines, "") // padding lines, trivially IGNORE (too short)
	}
	lines = append(lines, "المادة الأولى")
	lines = append(lines, "يلتزم كل موظف بتنفيذ أحكام هذا النظام وتطبيق اللوائح المرتبطة به فورا.")
	return lines
}

func ordinalWord(n int) string {
	words := map[int]string{1: "الأول", 2: "الثاني", 3: "الثالث", 4: "الرابع", 5: "الخامس",
		6: "السادس", 7: "السابع", 8: "الثامن", 9: "التاسع", 10: "العاشر"}
	return words[n]
}

func TestDetect_TOCSuppressionScenario(t *testing.T) {
	lines := buildTOCDocument()
	analyzed := classifier.ClassifyLines(lines)
	result := Detect(analyzed, DefaultConfig())

	// The heading itself opens the region at line+1; everything from there
	// through the TOC's "المادة الأولى ... 14" line is IGNORE.
	for i := 1; i <= 11; i++ {
		assert.Equal(t, classifier.LabelIgnore, result[i].Label, "line %d should be suppressed", i)
	}

	// The real Article 1 at the end (no trailing page number) must survive
	// as ARTICLE, closing the TOC region.
	lastArticleIdx := len(result) - 2
	require.Equal(t, classifier.LabelArticle, result[lastArticleIdx].Label)
	assert.Equal(t, 1, result[lastArticleIdx].Meta["index"])

	lastContentIdx := len(result) - 1
	assert.Equal(t, classifier.LabelContent, result[lastContentIdx].Label)
}

func TestDetect_PreservesPreTOCLabel(t *testing.T) {
	lines := buildTOCDocument()
	analyzed := classifier.ClassifyLines(lines)
	result := Detect(analyzed, DefaultConfig())
	assert.Equal(t, classifier.LabelChapter, result[1].Meta["pre_toc_label"])
}

func TestDetect_ChapterPrefixAlwaysIgnoredEvenOutsideTOC(t *testing.T) {
	lines := []string{
		"يلتزم كل موظف بتنفيذ أحكام هذا النظام وتطبيق اللوائح المرتبطة به فورا.",
		"Chapter الباب السابع عشر 47",
		"يلتزم كل موظف بتنفيذ أحكام هذا النظام مرة أخرى بشكل كامل وواضح تماما.",
	}
	analyzed := classifier.ClassifyLines(lines)
	result := Detect(analyzed, DefaultConfig())
	assert.Equal(t, classifier.LabelIgnore, result[1].Label)
	assert.Equal(t, "chapter_prefix_toc", result[1].Meta["reason"])
}

func TestDetect_NoTOCLeavesDocumentUntouched(t *testing.T) {
	lines := []string{
		"الباب الأول",
		"المادة الأولى",
		"يلتزم كل موظف بتنفيذ أحكام هذا النظام وتطبيق اللوائح المرتبطة به فورا.",
	}
	analyzed := classifier.ClassifyLines(lines)
	result := Detect(analyzed, DefaultConfig())
	assert.Equal(t, classifier.LabelChapter, result[0].Label)
	assert.Equal(t, classifier.LabelArticle, result[1].Label)
	assert.Equal(t, classifier.LabelContent, result[2].Label)
}
