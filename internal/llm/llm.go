// Package llm builds prompts from indexed knowledge and runs them through a
// configured completion provider. Prompt assembly is pure so it can be
// tested without a live backend.
package llm

import (
	"context"
	"fmt"
	"strings"

	"anticlaw/internal/provider"
)

const summarizeSystem = "You are a precise technical summarizer. " +
	"Summarize the conversation in 2-4 sentences, keeping concrete names " +
	"of files, tools and decisions. No preamble."

const tagSystem = "You extract topic tags. Reply with a comma-separated " +
	"list of at most 5 short lowercase tags and nothing else."

// Summarize produces a short summary of text.
func Summarize(ctx context.Context, p provider.LLMProvider, text string) (string, error) {
	out, err := p.Complete(ctx, summarizeSystem, text)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// SuggestTags asks the provider for topic tags and normalizes the reply.
func SuggestTags(ctx context.Context, p provider.LLMProvider, text string) ([]string, error) {
	out, err := p.Complete(ctx, tagSystem, text)
	if err != nil {
		return nil, fmt.Errorf("suggesting tags: %w", err)
	}
	return ParseTags(out), nil
}

// ParseTags splits a model reply into clean tags: comma or newline
// separated, lowercased, deduplicated, at most 5.
func ParseTags(reply string) []string {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	seen := make(map[string]bool)
	tags := []string{}
	for _, f := range fields {
		tag := strings.ToLower(strings.Trim(f, " \t.-*\"'"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == 5 {
			break
		}
	}
	return tags
}
