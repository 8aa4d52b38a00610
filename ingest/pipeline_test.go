package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sportsrag/types"
)

type fakeFetcher struct {
	articles map[string][]*types.Article
	fail     map[string]bool
}

func (f *fakeFetcher) FetchFeed(ctx context.Context, source, feedURL string, maxCount int) ([]*types.Article, error) {
	if f.fail[source] {
		return nil, errors.New("feed unreachable")
	}
	return f.articles[source], nil
}

type fakeStore struct {
	records map[string]types.VectorRecord
	deletes []map[string]interface{}
	failUp  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]types.VectorRecord)}
}

func (s *fakeStore) Upsert(ctx context.Context, records []types.VectorRecord) error {
	if s.failUp {
		return errors.New("store down")
	}
	for _, r := range records {
		s.records[r.Chunk.ID()] = r
	}
	return nil
}

func (s *fakeStore) DeleteWhere(ctx context.Context, where map[string]interface{}) error {
	s.deletes = append(s.deletes, where)
	return nil
}

type fakeEmbedder struct {
	calls    int
	failText string
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failText != "" && strings.Contains(t, f.failText) {
			return nil, errors.New("embedding failed")
		}
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

func longArticle(url, title string) *types.Article {
	return &types.Article{
		ID:     types.GenerateID(url),
		Title:  title,
		URL:    url,
		Source: "espn",
		Text:   strings.Repeat("The home side controlled the match from the opening whistle. ", 20),
	}
}

func newTestPipeline(fetcher *fakeFetcher, store *fakeStore, embedder *fakeEmbedder) *Pipeline {
	return NewPipeline(fetcher, nil, embedder, store, Config{
		Feeds:        []string{"espn"},
		MaxPerFeed:   10,
		ChunkSize:    500,
		ChunkOverlap: 50,
	})
}

func TestPipelineStoresChunks(t *testing.T) {
	fetcher := &fakeFetcher{articles: map[string][]*types.Article{
		"espn": {longArticle("https://example.com/a", "Match Report")},
	}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.FeedsFetched != 1 || report.Articles != 1 {
		t.Errorf("report = %+v, want 1 feed and 1 article", report)
	}
	if report.ChunksStored == 0 || len(store.records) != report.ChunksStored {
		t.Errorf("stored %d records, report says %d", len(store.records), report.ChunksStored)
	}
	for _, r := range store.records {
		if r.Chunk.URL != "https://example.com/a" || r.Chunk.Title != "Match Report" {
			t.Errorf("record missing citation metadata: %+v", r.Chunk)
		}
		if len(r.Embedding) == 0 {
			t.Error("record stored without embedding")
		}
	}
}

func TestPipelineReingestIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{articles: map[string][]*types.Article{
		"espn": {longArticle("https://example.com/a", "Match Report")},
	}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{})

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := len(store.records)

	if _, err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(store.records) != before {
		t.Errorf("re-ingesting unchanged article grew the store from %d to %d records", before, len(store.records))
	}
}

func TestPipelinePrunesStaleTailChunks(t *testing.T) {
	fetcher := &fakeFetcher{articles: map[string][]*types.Article{
		"espn": {longArticle("https://example.com/a", "Match Report")},
	}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(store.deletes) != 1 {
		t.Fatalf("expected one prune call, got %d", len(store.deletes))
	}

	and, ok := store.deletes[0]["$and"].([]interface{})
	if !ok || len(and) != 2 {
		t.Fatalf("prune filter = %v, want $and with two clauses", store.deletes[0])
	}
	idx := and[1].(map[string]interface{})["chunk_index"].(map[string]interface{})
	if idx["$gte"] != report.ChunksStored {
		t.Errorf("prune $gte = %v, want %d", idx["$gte"], report.ChunksStored)
	}
}

func TestPipelineFeedFailureDoesNotBlockOthers(t *testing.T) {
	fetcher := &fakeFetcher{
		articles: map[string][]*types.Article{
			"cbs": {longArticle("https://example.com/b", "Trade News")},
		},
		fail: map[string]bool{"espn": true},
	}
	store := newFakeStore()
	pipeline := NewPipeline(fetcher, nil, &fakeEmbedder{}, store, Config{
		Feeds:        []string{"espn", "cbs"},
		MaxPerFeed:   10,
		ChunkSize:    500,
		ChunkOverlap: 50,
	})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.FeedsFailed != 1 || report.FeedsFetched != 1 {
		t.Errorf("report = %+v, want one failed and one fetched feed", report)
	}
	if report.Articles != 1 || len(store.records) == 0 {
		t.Error("healthy feed was not ingested after a failing one")
	}
}

func TestPipelineArticleFailureIsSkipped(t *testing.T) {
	bad := longArticle("https://example.com/bad", "Broken")
	bad.Text = strings.Repeat("unembeddable text about nothing at all in particular today. ", 10)
	fetcher := &fakeFetcher{articles: map[string][]*types.Article{
		"espn": {bad, longArticle("https://example.com/good", "Fine")},
	}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{failText: "unembeddable"})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.ArticlesFailed != 1 || report.Articles != 1 {
		t.Errorf("report = %+v, want one failed and one stored article", report)
	}
	for _, r := range store.records {
		if r.Chunk.URL == "https://example.com/bad" {
			t.Error("failed article left records in the store")
		}
	}
}

func TestPipelineSkipsUnextractedArticles(t *testing.T) {
	thin := &types.Article{
		ID:    types.GenerateID("https://example.com/thin"),
		URL:   "https://example.com/thin",
		Title: "Thin",
		Text:  "too short",
	}
	fetcher := &fakeFetcher{articles: map[string][]*types.Article{"espn": {thin}}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{})

	report, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Articles != 0 || len(store.records) != 0 {
		t.Errorf("article below extraction threshold was ingested: %+v", report)
	}
}

func TestPipelineRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{articles: map[string][]*types.Article{
		"espn": {longArticle("https://example.com/a", "Match Report")},
	}}
	store := newFakeStore()
	pipeline := newTestPipeline(fetcher, store, &fakeEmbedder{})

	if _, err := pipeline.Run(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(store.records) != 0 {
		t.Error("cancelled run still wrote records")
	}
}
