// Package digest produces an optional short LLM summary of the fetched
// pages. It is strictly best-effort: any failure is logged and the run's
// output is unchanged.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/webresearch/internal/llm"
)

// ErrEmptyDigest means the model returned no usable text.
var ErrEmptyDigest = errors.New("empty digest")

// Summarizer asks a chat model for a compact digest of the fetched content.
type Summarizer struct {
	Client llm.Client
	Model  string
	// MaxExcerptChars bounds how much of each page is sent. Zero means 1500.
	MaxExcerptChars int
}

const systemPrompt = "You summarize web research results. Write a concise digest " +
	"(at most three paragraphs) of the key facts across the provided pages. " +
	"Plain prose, no preamble."

// Source is one fetched page offered to the model.
type Source struct {
	URL     string
	Title   string
	Content string
}

// Summarize returns a short digest of the sources for the given query.
func (s *Summarizer) Summarize(ctx context.Context, query string, sources []Source) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("summarizer not configured")
	}
	if len(sources) == 0 {
		return "", ErrEmptyDigest
	}
	capChars := s.MaxExcerptChars
	if capChars <= 0 {
		capChars = 1500
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, src := range sources {
		excerpt := src.Content
		if len(excerpt) > capChars {
			excerpt = excerpt[:capChars]
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n%s\n\n", i+1, src.Title, src.URL, excerpt)
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyDigest
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyDigest
	}
	return out, nil
}
