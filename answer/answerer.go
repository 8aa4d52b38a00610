// Package answer turns a question plus retrieved chunks into a grounded,
// cited answer from a hosted LLM.
package answer

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"sportsrag/types"
)

// NoContextText is returned verbatim when retrieval produced nothing
// relevant. The LLM is never called without grounding context.
const NoContextText = "I don't have information about that in my current news sources."

const systemPrompt = `You are a sports news assistant. Answer questions based ONLY on the provided context.

Rules:
1. Only use information from the provided context
2. If the context doesn't contain the answer, say "` + NoContextText + `"
3. Be concise and direct
4. Cite every fact with the bracketed number of its source, e.g. [1]
5. Don't make up information not in the context`

// Generator abstracts the hosted LLM.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// TokenCounter measures prompt text against the model's context budget.
type TokenCounter interface {
	Count(text string) int
}

// Answerer builds bounded prompts, calls the LLM, and verifies citations.
type Answerer struct {
	generator Generator
	counter   TokenCounter
	budget    int
}

// New creates an Answerer. budget is the maximum number of context tokens
// packed into a prompt; <= 0 disables truncation.
func New(generator Generator, counter TokenCounter, budget int) *Answerer {
	return &Answerer{generator: generator, counter: counter, budget: budget}
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Answer generates a cited answer for the question from the retrieval
// result. Results must already be ordered by descending relevance.
func (a *Answerer) Answer(ctx context.Context, question string, results types.RetrievalResult) (*types.Answer, error) {
	if len(results) == 0 {
		return &types.Answer{
			Question: question,
			Text:     NoContextText,
			Sources:  []types.Source{},
		}, nil
	}

	used := a.fitToBudget(results)
	prompt := buildPrompt(question, used)

	text, err := a.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &types.Answer{
		Question:    question,
		Text:        text,
		Sources:     citedSources(text, used),
		ContextUsed: len(used),
	}, nil
}

// fitToBudget drops the lowest-relevance chunks until the combined context
// fits the token budget. At least one chunk always survives.
func (a *Answerer) fitToBudget(results types.RetrievalResult) types.RetrievalResult {
	if a.budget <= 0 || a.counter == nil {
		return results
	}

	used := results
	total := 0
	for _, sc := range used {
		total += a.counter.Count(sc.Chunk.Text)
	}
	for total > a.budget && len(used) > 1 {
		dropped := used[len(used)-1]
		total -= a.counter.Count(dropped.Chunk.Text)
		used = used[:len(used)-1]
	}
	if len(used) < len(results) {
		log.Printf("context over budget, dropped %d low-relevance chunks", len(results)-len(used))
	}
	return used
}

// buildPrompt formats the retrieved chunks into numbered source blocks
// followed by the question.
func buildPrompt(question string, results types.RetrievalResult) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	for i, sc := range results {
		fmt.Fprintf(&b, "[Source %d: %s]\n%s\n", i+1, sc.Chunk.Title, sc.Chunk.Text)
		if i < len(results)-1 {
			b.WriteString("\n---\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer the question based on the context above. Cite your sources with bracketed numbers.")
	return b.String()
}

// citedSources keeps only sources whose numbered block the model actually
// cited; every survivor is by construction one of the chunks the model was
// given. When the model produced no parsable markers, all context sources
// are returned, unless the model declined to answer: a no-context refusal
// cites nothing.
func citedSources(text string, results types.RetrievalResult) []types.Source {
	cited := make(map[int]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(results) {
			continue
		}
		cited[n-1] = true
	}
	if len(cited) == 0 && strings.Contains(text, NoContextText) {
		return []types.Source{}
	}

	seen := make(map[string]bool)
	var sources []types.Source
	for i, sc := range results {
		if len(cited) > 0 && !cited[i] {
			continue
		}
		key := sc.Chunk.URL
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, types.Source{Title: sc.Chunk.Title, URL: sc.Chunk.URL})
	}
	if sources == nil {
		sources = []types.Source{}
	}
	return sources
}
