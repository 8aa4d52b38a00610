package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sportsrag/types"
)

// fakeGenerator returns a canned answer and records the prompts it saw.
type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	lastMsg string
}

func (f *fakeGenerator) Generate(_ context.Context, _, user string) (string, error) {
	f.calls++
	f.lastMsg = user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// wordCounter approximates tokens as whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func scored(title, url, text string, relevance float32) types.ScoredChunk {
	return types.ScoredChunk{
		Chunk:     types.Chunk{Title: title, URL: url, Text: text, Source: "espn"},
		Relevance: relevance,
	}
}

func TestAnswerEmptyResultShortCircuits(t *testing.T) {
	gen := &fakeGenerator{reply: "should never be used"}
	answerer := New(gen, wordCounter{}, 100)

	got, err := answerer.Answer(context.Background(), "How did the Lakers do?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if gen.calls != 0 {
		t.Error("LLM was called with no grounding context")
	}
	if got.Text != NoContextText {
		t.Errorf("answer = %q, want the explicit no-context response", got.Text)
	}
	if len(got.Sources) != 0 || got.ContextUsed != 0 {
		t.Errorf("no-context answer carries sources: %+v", got)
	}
}

func TestAnswerRefusalCitesNothing(t *testing.T) {
	gen := &fakeGenerator{reply: NoContextText}
	answerer := New(gen, wordCounter{}, 100)

	results := types.RetrievalResult{scored("Match report", "https://example.com/m", "Team A won.", 0.9)}
	got, err := answerer.Answer(context.Background(), "what about the weather", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Text != NoContextText {
		t.Fatalf("answer = %q", got.Text)
	}
	if len(got.Sources) != 0 {
		t.Errorf("no-context refusal cites sources: %+v", got.Sources)
	}
}

func TestAnswerSurfacesLLMFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("service unavailable")}
	answerer := New(gen, wordCounter{}, 100)

	results := types.RetrievalResult{scored("Match report", "https://example.com/m", "Team A won.", 0.9)}
	if _, err := answerer.Answer(context.Background(), "who won", results); err == nil {
		t.Fatal("LLM failure must surface as an error, not a silent empty answer")
	}
}

func TestAnswerPromptContainsNumberedSources(t *testing.T) {
	gen := &fakeGenerator{reply: "Team A won 3-1 [1]."}
	answerer := New(gen, wordCounter{}, 0)

	results := types.RetrievalResult{
		scored("Match report", "https://example.com/m", "Team A beat Team B 3-1.", 0.9),
		scored("Preview", "https://example.com/p", "Team A hosts Team B on Saturday.", 0.5),
	}
	if _, err := answerer.Answer(context.Background(), "what was the score", results); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	for _, want := range []string{"[Source 1: Match report]", "[Source 2: Preview]", "Team A beat Team B 3-1.", "what was the score"} {
		if !strings.Contains(gen.lastMsg, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnswerKeepsOnlyCitedSources(t *testing.T) {
	gen := &fakeGenerator{reply: "Team A won 3-1 [1]. The rematch is next month [3]."}
	answerer := New(gen, wordCounter{}, 0)

	results := types.RetrievalResult{
		scored("Match report", "https://example.com/m", "Team A beat Team B 3-1.", 0.9),
		scored("Preview", "https://example.com/p", "Team A hosts Team B.", 0.6),
		scored("Schedule", "https://example.com/s", "The rematch is in June.", 0.4),
	}
	got, err := answerer.Answer(context.Background(), "score?", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if len(got.Sources) != 2 {
		t.Fatalf("got %d sources, want the 2 cited ones: %+v", len(got.Sources), got.Sources)
	}
	if got.Sources[0].URL != "https://example.com/m" || got.Sources[1].URL != "https://example.com/s" {
		t.Errorf("cited sources = %+v", got.Sources)
	}
	if got.ContextUsed != 3 {
		t.Errorf("ContextUsed = %d, want 3", got.ContextUsed)
	}
}

func TestAnswerIgnoresOutOfRangeCitations(t *testing.T) {
	// A marker pointing outside the provided context can never become a
	// citation: every returned source must be grounded in the retrieval
	// result.
	gen := &fakeGenerator{reply: "Something happened [7] according to [1]."}
	answerer := New(gen, wordCounter{}, 0)

	results := types.RetrievalResult{
		scored("Match report", "https://example.com/m", "Team A beat Team B 3-1.", 0.9),
	}
	got, err := answerer.Answer(context.Background(), "score?", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(got.Sources) != 1 || got.Sources[0].URL != "https://example.com/m" {
		t.Errorf("sources = %+v, want only the in-context citation", got.Sources)
	}
}

func TestAnswerFallsBackToAllSourcesWithoutMarkers(t *testing.T) {
	gen := &fakeGenerator{reply: "Team A won three one."}
	answerer := New(gen, wordCounter{}, 0)

	results := types.RetrievalResult{
		scored("Match report", "https://example.com/m", "Team A beat Team B 3-1.", 0.9),
		scored("Preview", "https://example.com/p", "Team A hosts Team B.", 0.6),
	}
	got, err := answerer.Answer(context.Background(), "score?", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Errorf("got %d sources, want all context sources as fallback", len(got.Sources))
	}
}

func TestAnswerDropsLowestRelevanceFirstWhenOverBudget(t *testing.T) {
	gen := &fakeGenerator{reply: "answer [1]"}
	// Each chunk below is 6 words; budget of 13 fits only two chunks.
	answerer := New(gen, wordCounter{}, 13)

	results := types.RetrievalResult{
		scored("One", "https://example.com/1", "one two three four five six", 0.9),
		scored("Two", "https://example.com/2", "one two three four five six", 0.6),
		scored("Three", "https://example.com/3", "one two three four five six", 0.3),
	}
	got, err := answerer.Answer(context.Background(), "q", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if got.ContextUsed != 2 {
		t.Errorf("ContextUsed = %d, want 2 after truncation", got.ContextUsed)
	}
	if strings.Contains(gen.lastMsg, "[Source 3:") {
		t.Error("lowest-relevance chunk was not dropped from the prompt")
	}
	if !strings.Contains(gen.lastMsg, "[Source 1: One]") || !strings.Contains(gen.lastMsg, "[Source 2: Two]") {
		t.Error("higher-relevance chunks missing from the prompt")
	}
}

func TestAnswerBudgetKeepsAtLeastOneChunk(t *testing.T) {
	gen := &fakeGenerator{reply: "answer [1]"}
	answerer := New(gen, wordCounter{}, 1)

	results := types.RetrievalResult{
		scored("One", "https://example.com/1", "one two three four five six", 0.9),
	}
	got, err := answerer.Answer(context.Background(), "q", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.ContextUsed != 1 {
		t.Errorf("ContextUsed = %d, want 1", got.ContextUsed)
	}
}

func TestAnswerDeduplicatesSourcesByURL(t *testing.T) {
	gen := &fakeGenerator{reply: "answer [1][2]"}
	answerer := New(gen, wordCounter{}, 0)

	results := types.RetrievalResult{
		scored("Match report", "https://example.com/m", "First half summary.", 0.9),
		scored("Match report", "https://example.com/m", "Second half summary.", 0.8),
	}
	got, err := answerer.Answer(context.Background(), "q", results)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(got.Sources) != 1 {
		t.Errorf("got %d sources, want 1 after URL dedup", len(got.Sources))
	}
}
