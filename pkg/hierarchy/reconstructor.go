package hierarchy

import (
	"fmt"

	"github.com/qanoon/halp/pkg/classifier"
)

type containerState struct {
	chapterPos  int // index into doc.Chapters, -1 if none
	sectionPos  int // index into doc.Sections, -1 if none
	articlePos  int // index into doc.Articles, -1 if none
}

// Reconstruct runs a single pass over a TOC-suppressed line sequence
// and builds the Document tree.
func Reconstruct(lines []classifier.LineAnalysis) *Document {
	doc := &Document{}
	st := containerState{chapterPos: -1, sectionPos: -1, articlePos: -1}

	nextChapterIndex := 1
	nextArticleOrder := 1
	seenArticleNumbers := map[string]bool{}

	for _, l := range lines {
		switch l.Label {
		case classifier.LabelIgnore:
			continue

		case classifier.LabelChapter:
			nextChapterIndex = maybeDiscardEmptyChapter(doc, &st, nextChapterIndex)
			idx := markerIndex(l, nextChapterIndex)
			doc.Chapters = append(doc.Chapters, Chapter{
				Index:      idx,
				Label:      l.Normalized,
				Title:      metaMarkerText(l),
				SourceLine: l.LineNo,
			})
			st.chapterPos = len(doc.Chapters) - 1
			st.sectionPos = -1
			st.articlePos = -1
			nextChapterIndex = idx + 1

		case classifier.LabelSection:
			if st.chapterPos == -1 {
				doc.Chapters = append(doc.Chapters, Chapter{
					Index:      nextChapterIndex,
					Label:      "anonymous",
					Anonymous:  true,
					SourceLine: l.LineNo,
				})
				st.chapterPos = len(doc.Chapters) - 1
				nextChapterIndex++
				doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
					Line: l.LineNo, Reason: "anonymous_chapter_created",
				})
			}
			chapterIdx := doc.Chapters[st.chapterPos].Index
			nextSectionIndex := 1 + countSections(doc, chapterIdx)
			idx := markerIndex(l, nextSectionIndex)
			doc.Sections = append(doc.Sections, Section{
				Index:        idx,
				ChapterIndex: chapterIdx,
				Label:        l.Normalized,
				Title:        metaMarkerText(l),
				SourceLine:   l.LineNo,
			})
			st.sectionPos = len(doc.Sections) - 1
			st.articlePos = -1

		case classifier.LabelArticle:
			article := Article{
				Number:       metaMarkerText(l),
				OrdinalIndex: markerIndex(l, 0),
				OrderIndex:   nextArticleOrder,
				SourceLine:   l.LineNo,
			}
			nextArticleOrder++

			switch {
			case st.sectionPos != -1:
				article.ParentKind = ParentSection
				article.HasSection = true
				article.SectionIndex = doc.Sections[st.sectionPos].Index
				article.HasChapter = true
				article.ChapterIndex = doc.Sections[st.sectionPos].ChapterIndex
			case st.chapterPos != -1:
				article.ParentKind = ParentChapter
				article.HasChapter = true
				article.ChapterIndex = doc.Chapters[st.chapterPos].Index
			default:
				article.ParentKind = ParentDocument
			}

			if article.Number != "" && seenArticleNumbers[article.Number] {
				article.Warnings = append(article.Warnings, "duplicate_article_number")
			}
			if article.Number != "" {
				seenArticleNumbers[article.Number] = true
			}

			doc.Articles = append(doc.Articles, article)
			st.articlePos = len(doc.Articles) - 1

		case classifier.LabelContent:
			if st.articlePos == -1 {
				doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
					Line: l.LineNo, Reason: "dropped_content", Detail: truncate(l.Normalized, 80),
				})
				continue
			}
			a := &doc.Articles[st.articlePos]
			if a.Body == "" {
				a.Body = l.Normalized
			} else {
				a.Body += " " + l.Normalized
			}
		}
	}

	return doc
}

// maybeDiscardEmptyChapter implements the "two adjacent CHAPTER markers with
// no intervening ARTICLE" tie-break: the previous chapter is discarded if it
// never received a Section or Article, and its index is reused.
func maybeDiscardEmptyChapter(doc *Document, st *containerState, nextChapterIndex int) int {
	if st.chapterPos == -1 {
		return nextChapterIndex
	}
	chapterIdx := doc.Chapters[st.chapterPos].Index
	if countSections(doc, chapterIdx) > 0 || countArticlesUnderChapter(doc, chapterIdx) > 0 {
		return nextChapterIndex
	}
	doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
		Line: doc.Chapters[st.chapterPos].SourceLine, Reason: "chapter_without_content",
	})
	discardedIndex := doc.Chapters[st.chapterPos].Index
	doc.Chapters = doc.Chapters[:st.chapterPos]
	if discardedIndex < nextChapterIndex {
		return discardedIndex
	}
	return nextChapterIndex
}

func countSections(doc *Document, chapterIndex int) int {
	n := 0
	for _, s := range doc.Sections {
		if s.ChapterIndex == chapterIndex {
			n++
		}
	}
	return n
}

func countArticlesUnderChapter(doc *Document, chapterIndex int) int {
	n := 0
	for _, a := range doc.Articles {
		if a.HasChapter && a.ChapterIndex == chapterIndex {
			n++
		}
	}
	return n
}

// markerIndex returns the resolved ordinal if classify_line found one,
// otherwise the fallback (next sequential index): "a marker with null
// numeric index still opens a container, using the next sequential index".
func markerIndex(l classifier.LineAnalysis, fallback int) int {
	if idx, ok := l.Meta["index"].(int); ok {
		return idx
	}
	return fallback
}

func metaMarkerText(l classifier.LineAnalysis) string {
	if v, ok := l.Meta["marker_text"].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + fmt.Sprintf("…(+%d)", len(r)-n)
}
