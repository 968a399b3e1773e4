package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/tokens"
)

const (
	geminiModel    = "gemini-1.5-flash"
	maxPromptChars = 6000
)

// Generated is one model completion plus its token accounting.
type Generated struct {
	Text         string
	TotalTokens  int
	InputTokens  int
	OutputTokens int
}

// Generator produces a digest of a keyword's articles.
type Generator interface {
	Summarize(ctx context.Context, keyword string, items []articles.Article) (Generated, error)
}

// GeminiGenerator talks to the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *GeminiGenerator) Summarize(ctx context.Context, keyword string, items []articles.Article) (Generated, error) {
	prompt := buildPrompt(keyword, items)
	model := g.client.GenerativeModel(geminiModel)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Generated{}, fmt.Errorf("generating summary: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return Generated{}, fmt.Errorf("generating summary: empty completion")
	}

	gen := Generated{Text: text}
	if resp.UsageMetadata != nil {
		gen.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		gen.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		gen.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	if gen.TotalTokens == 0 {
		gen.InputTokens = tokens.EstimateTokens(prompt)
		gen.OutputTokens = tokens.EstimateTokens(text)
		gen.TotalTokens = gen.InputTokens + gen.OutputTokens
	}
	return gen, nil
}

func buildPrompt(keyword string, items []articles.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the recent news coverage of %q in under 1500 characters.\n", keyword)
	b.WriteString("Group related stories, name the outlets, and call out the dominant tone.\n")
	b.WriteString("Do not open with filler like \"This news is about\".\n\nARTICLES:\n")
	for i, a := range items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, a.Source, a.Title)
		if a.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", collapse(a.Snippet))
		}
	}
	return truncate(b.String(), maxPromptChars)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	trimmed := string(runes[:maxChars])
	if idx := strings.LastIndex(trimmed, "\n"); idx > maxChars/2 {
		trimmed = trimmed[:idx]
	}
	return trimmed + "\n[TRUNCATED]"
}

func extractText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
