package search

import (
	"math"
	"strings"

	"github.com/qanoon/halp/pkg/textnorm"
)

// BM25 parameters left unspecified by the source; k1=1.5, b=0.75 are the
// standard Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// tokenize normalizes and whitespace-splits text for lexical scoring.
func tokenize(text string) []string {
	normalized := textnorm.NormalizeString(text, textnorm.DefaultSearchOptions())
	return strings.Fields(normalized)
}

// corpusStats is the subset of a BM25 corpus's aggregate statistics needed
// to score one document against a query: per-term document frequency and
// the corpus average length and document count. The scored document's own
// term frequencies and length are computed in score().
type corpusStats struct {
	docFreq  map[string]int
	avgDocLen float64
	numDocs  int
}

func buildCorpusStats(docs map[string][]string) *corpusStats {
	stats := &corpusStats{docFreq: make(map[string]int), numDocs: len(docs)}
	var totalLen int
	for _, tokens := range docs {
		totalLen += len(tokens)
		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			if !seen[t] {
				stats.docFreq[t]++
				seen[t] = true
			}
		}
	}
	if stats.numDocs > 0 {
		stats.avgDocLen = float64(totalLen) / float64(stats.numDocs)
	}
	return stats
}

// score computes the BM25 score of docTokens against queryTokens.
func (s *corpusStats) score(queryTokens, docTokens []string) float64 {
	if len(docTokens) == 0 {
		return 0
	}
	termFreq := make(map[string]int, len(docTokens))
	for _, t := range docTokens {
		termFreq[t]++
	}
	docLen := float64(len(docTokens))

	var total float64
	for _, qt := range queryTokens {
		tf := float64(termFreq[qt])
		if tf == 0 {
			continue
		}
		df := s.docFreq[qt]
		idf := math.Log(1 + (float64(s.numDocs)-float64(df)+0.5)/(float64(df)+0.5))
		denom := tf + bm25K1*(1-bm25B+bm25B*docLen/maxF(s.avgDocLen, 1))
		total += idf * (tf * (bm25K1 + 1)) / denom
	}
	return total
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// normalizeScores min-max normalizes a score map to [0,1] so it can be
// fused with a cosine-similarity score; an all-zero or single-value input
// normalizes to zero, not a divide-by-zero NaN.
func normalizeScores(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make(map[string]float64, len(scores))
	if max == min {
		for k := range scores {
			out[k] = 0
		}
		return out
	}
	for k, v := range scores {
		out[k] = (v - min) / (max - min)
	}
	return out
}
