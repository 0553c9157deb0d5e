// Package toc implements the table-of-contents detector: it identifies
// contiguous line ranges belonging to a Table of Contents and rewrites
// their labels to IGNORE so the hierarchy reconstructor never builds
// entities from them.
package toc

import (
	"strconv"
	"strings"

	"github.com/qanoon/halp/pkg/classifier"
)

// Config mirrors the relevant options for TOC detection.
type Config struct {
	SubstantialRun   int // toc_substantial_run, default 3
	ContentThreshold int // content_threshold, default 40
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{SubstantialRun: 3, ContentThreshold: 40}
}

var headingMarkers = []string{"الفهرس", "جدول المحتويات", "المحتويات", "فهرس"}

// Detect scans the classified line sequence and rewrites every line inside
// a detected TOC region to IGNORE, preserving the original label in
// meta["pre_toc_label"]. The input slice is not mutated; a new slice is
// returned.
func Detect(lines []classifier.LineAnalysis, cfg Config) []classifier.LineAnalysis {
	out := make([]classifier.LineAnalysis, len(lines))
	copy(out, lines)

	i := 0
	for i < len(out) {
		start, found := findOpenSignal(out, i, cfg)
		if !found {
			break
		}
		end := findClose(out, start, cfg)
		suppressRange(out, start, end)
		i = end
		if i <= start {
			i = start + 1
		}
	}
	return out
}

// findOpenSignal scans forward from `from` for the earliest of S1/S2/S3.
func findOpenSignal(lines []classifier.LineAnalysis, from int, cfg Config) (int, bool) {
	for idx := from; idx < len(lines); idx++ {
		if isHeading(lines[idx].Normalized) {
			if idx+1 < len(lines) {
				return idx + 1, true
			}
			return len(lines), true // heading is the last line; nothing to suppress
		}
		if start, ok := matchS2Window(lines, idx); ok {
			return start, true
		}
		if start, ok := matchS3Window(lines, idx, cfg); ok {
			return start, true
		}
	}
	return 0, false
}

func isHeading(normalized string) bool {
	for _, h := range headingMarkers {
		if strings.Contains(normalized, h) {
			return true
		}
	}
	return false
}

func isMarker(l classifier.LineAnalysis) bool {
	return l.Label == classifier.LabelChapter || l.Label == classifier.LabelSection || l.Label == classifier.LabelArticle
}

// matchS2Window implements S2: within any 15-line window, >=3 lines match a
// chapter/section/article marker AND end with a trailing page number.
func matchS2Window(lines []classifier.LineAnalysis, from int) (int, bool) {
	end := from + 15
	if end > len(lines) {
		end = len(lines)
	}
	var matches []int
	for j := from; j < end; j++ {
		if isMarker(lines[j]) {
			if ends, _ := lines[j].Meta["ends_with_trailing_integer"].(bool); ends {
				matches = append(matches, j)
			}
		}
	}
	if len(matches) >= 3 {
		return matches[0], true
	}
	return 0, false
}

// matchS3Window implements S3: within any 10-line window, >=5 distinct
// chapter markers appear and no line carries substantial content.
func matchS3Window(lines []classifier.LineAnalysis, from int, cfg Config) (int, bool) {
	end := from + 10
	if end > len(lines) {
		end = len(lines)
	}
	seen := map[string]bool{}
	var firstChapter = -1
	for j := from; j < end; j++ {
		l := lines[j]
		if l.Label == classifier.LabelChapter {
			key := ordinalKey(l)
			if !seen[key] {
				seen[key] = true
				if firstChapter == -1 {
					firstChapter = j
				}
			}
		}
		if l.Label == classifier.LabelContent && len(l.Normalized) > cfg.ContentThreshold {
			return 0, false // substantial content present, S3 does not fire
		}
	}
	if len(seen) >= 5 {
		return firstChapter, true
	}
	return 0, false
}

func ordinalKey(l classifier.LineAnalysis) string {
	if idx, ok := l.Meta["index"].(int); ok {
		return strconv.Itoa(idx)
	}
	return l.Normalized
}

// findClose applies the E1/E2/E3 tie-breaks in order, scanning forward from
// start. Returns the exclusive end of the TOC region.
func findClose(lines []classifier.LineAnalysis, start int, cfg Config) int {
	run := 0
	runStart := -1
	for j := start; j < len(lines); j++ {
		l := lines[j]

		// E1: definitive close — Article 1 marker with no trailing page number.
		if l.Label == classifier.LabelArticle {
			idx, _ := l.Meta["index"].(int)
			ends, _ := l.Meta["ends_with_trailing_integer"].(bool)
			if idx == 1 && !ends {
				return j
			}
		}

		// E2: a run of substantial CONTENT lines.
		if l.Label == classifier.LabelContent && len(l.Normalized) > cfg.ContentThreshold {
			if run == 0 {
				runStart = j
			}
			run++
			if run >= cfg.SubstantialRun {
				return runStart
			}
		} else {
			run = 0
			runStart = -1
		}
	}
	return len(lines) // E3: end of document
}

func suppressRange(lines []classifier.LineAnalysis, start, end int) {
	for j := start; j < end && j < len(lines); j++ {
		if lines[j].Label == classifier.LabelIgnore {
			continue
		}
		preLabel := lines[j].Label
		meta := make(map[string]any, len(lines[j].Meta)+1)
		for k, v := range lines[j].Meta {
			meta[k] = v
		}
		meta["pre_toc_label"] = preLabel
		lines[j].Label = classifier.LabelIgnore
		lines[j].Meta = meta
	}
}
