// Package classifier implements a pure, pattern-based function that
// assigns each line of a document one label from {CHAPTER, SECTION,
// ARTICLE, CONTENT, IGNORE}.
package classifier

import (
	"regexp"
	"strings"

	"github.com/qanoon/halp/pkg/textnorm"
)

// Label is one of the five line classifications.
type Label string

const (
	LabelChapter Label = "CHAPTER"
	LabelSection Label = "SECTION"
	LabelArticle Label = "ARTICLE"
	LabelContent Label = "CONTENT"
	LabelIgnore  Label = "IGNORE"
)

// MinContentLength is the "small threshold" distinct from the TOC
// detector's content_threshold (default 40).
const MinContentLength = 3

// LineAnalysis is the per-line output of classify_line.
type LineAnalysis struct {
	LineNo     int
	Original   string
	Normalized string
	Label      Label
	Confidence float64
	Meta       map[string]any
}

var (
	// RE2's \b is an ASCII word boundary ([0-9A-Za-z_] vs not); Arabic
	// letters never match \w, so \b right after an Arabic token never
	// matches and silently fails the whole pattern. Anchors/\s* alone
	// delimit the marker, so these patterns carry none.
	chapterRe = regexp.MustCompile(`^الباب\s*(.*)$`)
	sectionRe = regexp.MustCompile(`^الفصل\s*(.*)$`)
	// "الماده" (مادة normalized) or the bare "ماده" form, optionally
	// followed by "رقم" ("مادة رقم 15").
	articleRe = regexp.MustCompile(`^(?:الماده|ماده)\s*(?:رقم\s*)?:?\s*(.*)$`)

	// explicit Latin "Chapter" prefix immediately followed by an Arabic
	// chapter/section marker — always IGNORE regardless of TOC detection.
	chapterPrefixRe = regexp.MustCompile(`(?i)^chapter\s+(الباب|الفصل)`)

	trailingIntRe = regexp.MustCompile(`(\d+)\s*$`)
	leadingPunct  = regexp.MustCompile(`^[:\-–—\s]+`)
)

// ClassifyLine is a pure function: its output depends only on the line's
// own text, never on surrounding lines or position.
func ClassifyLine(lineNo int, original string) LineAnalysis {
	norm := textnorm.NormalizeString(original, textnorm.DefaultSearchOptions())
	meta := map[string]any{}

	if chapterPrefixRe.MatchString(norm) {
		meta["reason"] = "chapter_prefix_toc"
		return LineAnalysis{
			LineNo: lineNo, Original: original, Normalized: norm,
			Label: LabelIgnore, Confidence: 1.0, Meta: meta,
		}
	}

	if m := chapterRe.FindStringSubmatch(norm); m != nil {
		return buildMarker(lineNo, original, norm, LabelChapter, m[1])
	}
	if m := sectionRe.FindStringSubmatch(norm); m != nil {
		return buildMarker(lineNo, original, norm, LabelSection, m[1])
	}
	if m := articleRe.FindStringSubmatch(norm); m != nil {
		return buildMarker(lineNo, original, norm, LabelArticle, m[1])
	}

	if len(norm) > MinContentLength {
		return LineAnalysis{
			LineNo: lineNo, Original: original, Normalized: norm,
			Label: LabelContent, Confidence: 1.0, Meta: meta,
		}
	}

	meta["reason"] = "too_short"
	return LineAnalysis{
		LineNo: lineNo, Original: original, Normalized: norm,
		Label: LabelIgnore, Confidence: 0.5, Meta: meta,
	}
}

// ClassifyLines runs ClassifyLine over an ordered sequence of raw lines.
func ClassifyLines(lines []string) []LineAnalysis {
	out := make([]LineAnalysis, len(lines))
	for i, l := range lines {
		out[i] = ClassifyLine(i, l)
	}
	return out
}

func buildMarker(lineNo int, original, norm string, label Label, remainder string) LineAnalysis {
	remainder = leadingPunct.ReplaceAllString(strings.TrimSpace(remainder), "")

	endsWithInt, pageNo := EndsWithTrailingInteger(remainder)
	ordinalPart := remainder
	if endsWithInt {
		ordinalPart = strings.TrimSpace(trailingIntRe.ReplaceAllString(remainder, ""))
		if ordinalPart == "" {
			// A bare number ("المادة 15") is the marker's own number, not a
			// trailing page number.
			ordinalPart = remainder
			endsWithInt = false
		}
	}

	idx, resolved := ResolveOrdinal(cleanOrdinalPart(ordinalPart))
	if !resolved {
		idx, resolved = ResolveOrdinal(ordinalPart)
	}
	confidence := 1.0
	meta := map[string]any{
		"ends_with_trailing_integer": endsWithInt,
		"marker_text":                remainder,
	}
	if endsWithInt {
		meta["trailing_integer"] = pageNo
	}
	if resolved {
		meta["index"] = idx
	} else {
		meta["index"] = nil
		confidence = 0.5
	}

	return LineAnalysis{
		LineNo: lineNo, Original: original, Normalized: norm,
		Label: label, Confidence: confidence, Meta: meta,
	}
}

// nonOrdinalNoise strips punctuation (ellipses, dashes, colons) that
// separates an ordinal word from a trailing page number in TOC lines, e.g.
// "الأول ... 5" -> "الاول".
var nonOrdinalNoise = regexp.MustCompile(`[^ا-ي ]+`)

func cleanOrdinalPart(s string) string {
	s = nonOrdinalNoise.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// EndsWithTrailingInteger reports whether the (already marker-stripped)
// remainder of a line ends with an integer — the page-number signal used
// both by classify_line's ordinal resolution and by the TOC detector (S2).
func EndsWithTrailingInteger(s string) (bool, int) {
	m := trailingIntRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false, 0
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return true, n
}
