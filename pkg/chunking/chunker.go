// Package chunking splits an Article's body into overlapping,
// bounded-length chunks, preferring sentence boundaries.
package chunking

import (
	"errors"
	"strings"
)

// Config mirrors the chunking options.
type Config struct {
	TargetTokens  int // chunk_target_tokens, default 500
	MaxTokens     int // chunk_max_tokens, default 800
	OverlapTokens int // chunk_overlap_tokens, default 20
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{TargetTokens: 500, MaxTokens: 800, OverlapTokens: 20}
}

// ErrEmptyBody is returned when ChunkArticle is called with an empty body;
// an Article with empty body owns zero Chunks, so callers should check
// for this and skip rather than treat it as a hard failure.
var ErrEmptyBody = errors.New("chunking: article body is empty")

// Chunk is a retrieval unit.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
	Metadata   map[string]any
}

// ArticleMeta carries the identifying fields every chunk's metadata must
// include: {document_id, article_order_index, chapter_index?, section_index?}.
type ArticleMeta struct {
	DocumentID       string
	ArticleNumber    string
	ArticleOrderIdx  int
	ChapterIndex     *int
	SectionIndex     *int
}

var sentenceEnders = map[byte]bool{
	'.': true, '!': true, '?': true,
}

// isSentenceEnd reports whether a whitespace-delimited token ends a
// sentence: Arabic full stop "۔", Arabic question mark "؟", or the ASCII
// '.', '!', '?'.
func isSentenceEnd(token string) bool {
	if token == "" {
		return false
	}
	if strings.HasSuffix(token, "۔") || strings.HasSuffix(token, "؟") {
		return true
	}
	last := token[len(token)-1]
	return sentenceEnders[last]
}

// ChunkArticle splits body into an ordered, non-overlapping-index sequence
// of chunks. chunk_index starts at 0 and increases strictly.
func ChunkArticle(body string, meta ArticleMeta, cfg Config) ([]Chunk, error) {
	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return nil, ErrEmptyBody
	}
	if cfg.TargetTokens <= 0 {
		cfg = DefaultConfig()
	}

	var chunks []Chunk
	start := 0
	idx := 0

	for start < len(tokens) {
		end := nextBoundary(tokens, start, cfg)
		text := strings.Join(tokens[start:end], " ")

		m := map[string]any{
			"document_id":         meta.DocumentID,
			"article_number":      meta.ArticleNumber,
			"article_order_index": meta.ArticleOrderIdx,
			"chunk_index":          idx,
		}
		if meta.ChapterIndex != nil {
			m["chapter_index"] = *meta.ChapterIndex
		}
		if meta.SectionIndex != nil {
			m["section_index"] = *meta.SectionIndex
		}

		chunks = append(chunks, Chunk{
			Index:      idx,
			Text:       text,
			TokenCount: end - start,
			Metadata:   m,
		})
		idx++

		if end >= len(tokens) {
			break
		}

		nextStart := end - cfg.OverlapTokens
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks, nil
}

// nextBoundary picks the end index (exclusive) of the next chunk. It
// prefers the closest sentence boundary at or after TargetTokens but at or
// before MaxTokens; if none exists, it hard-splits at the nearest whitespace
// boundary, i.e. MaxTokens (tokens are already whitespace-delimited so this
// is always a valid split point).
func nextBoundary(tokens []string, start int, cfg Config) int {
	hardMax := start + cfg.MaxTokens
	if hardMax > len(tokens) {
		hardMax = len(tokens)
	}
	target := start + cfg.TargetTokens
	if target >= hardMax {
		return hardMax
	}

	// Search outward from target for the nearest sentence boundary within
	// [start+1, hardMax], preferring boundaries at or after target.
	for i := target; i < hardMax; i++ {
		if isSentenceEnd(tokens[i]) {
			return i + 1
		}
	}
	for i := target - 1; i > start; i-- {
		if isSentenceEnd(tokens[i]) {
			return i + 1
		}
	}
	return hardMax
}
