package llm

import (
	"context"
	"fmt"
	"strings"

	"anticlaw/internal/meta"
	"anticlaw/internal/provider"
)

const askSystem = "You answer questions about the user's own work history " +
	"using only the provided context. If the context does not contain the " +
	"answer, say so. Cite sources by their [n] markers."

// Answerer runs retrieval-grounded question answering over the search
// index.
type Answerer struct {
	index   *meta.DB
	llm     provider.LLMProvider
	maxHits int
}

// NewAnswerer creates an Answerer using at most maxHits retrieved sources
// per question.
func NewAnswerer(index *meta.DB, llm provider.LLMProvider, maxHits int) *Answerer {
	if maxHits <= 0 {
		maxHits = 5
	}
	return &Answerer{index: index, llm: llm, maxHits: maxHits}
}

// Ask retrieves context for question across all kinds and completes an
// answer. The retrieved hits are returned alongside for attribution.
func (a *Answerer) Ask(ctx context.Context, question string) (string, []meta.SearchResult, error) {
	hits, err := a.index.QueryUnified(question, nil, a.maxHits)
	if err != nil {
		return "", nil, fmt.Errorf("retrieving context: %w", err)
	}
	if len(hits) == 0 {
		return "No indexed material matches that question.", nil, nil
	}
	answer, err := a.llm.Complete(ctx, askSystem, BuildContext(question, hits))
	if err != nil {
		return "", hits, fmt.Errorf("answering: %w", err)
	}
	return strings.TrimSpace(answer), hits, nil
}

// BuildContext assembles the retrieval prompt: numbered sources followed by
// the question. Pure string work, no I/O.
func BuildContext(question string, hits []meta.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.ID
		}
		fmt.Fprintf(&b, "[%d] (%s) %s\n%s\n\n", i+1, h.Kind, title, h.Snippet)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
