// Package contextbuilder assembles retrieved search hits into an
// LLM-ready context payload. Only this retrieval contract is in scope;
// answer generation itself is not.
package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/qanoon/halp/pkg/clients/openai"
)

// Hit is the minimal citation-bearing unit this package needs from a
// search result. pkg/search does not produce it; a caller fills it from
// its own search result type.
type Hit struct {
	DocumentID   string
	ArticleNumber string
	ChapterTitle string // empty if the article has no chapter
	SectionTitle string // empty if the article has no section
	ChunkText    string
	Score        float64
}

const systemPrompt = `You answer questions about Arabic legal documents using only the
provided excerpts. Cite the article number for every claim. If the excerpts do not contain
an answer, say so instead of guessing.`

// Payload is the fully-formed context ready to hand to an LLM client.
type Payload struct {
	Messages []openai.Message
	// Citations lists, in the same order as they appear in the built
	// context, the (document, article) pairs a caller can render as
	// footnotes alongside whatever the LLM returns.
	Citations []Citation
}

type Citation struct {
	DocumentID    string
	ArticleNumber string
}

// Build renders hits into a single user message carrying numbered
// excerpts, preceded by a fixed system prompt. Hits are rendered in the
// order given: callers that care about ranking must sort before calling.
func Build(query string, hits []Hit) Payload {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nExcerpts:\n")

	citations := make([]Citation, 0, len(hits))
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] (المادة %s", i+1, h.ArticleNumber)
		if h.ChapterTitle != "" {
			fmt.Fprintf(&b, ", %s", h.ChapterTitle)
		}
		if h.SectionTitle != "" {
			fmt.Fprintf(&b, ", %s", h.SectionTitle)
		}
		b.WriteString(")\n")
		b.WriteString(h.ChunkText)
		b.WriteString("\n\n")
		citations = append(citations, Citation{DocumentID: h.DocumentID, ArticleNumber: h.ArticleNumber})
	}

	return Payload{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: b.String()},
		},
		Citations: citations,
	}
}
