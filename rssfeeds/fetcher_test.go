package rssfeeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sportsrag/types"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Sports</title>
    <item>
      <title>Team A beat Team B 3-1</title>
      <link>https://example.com/match-report</link>
      <description>Full time report from Saturday's game.</description>
      <pubDate>Sat, 29 Aug 2026 18:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Injury news ahead of the derby</title>
      <link>https://example.com/injury-news</link>
      <description>Two starters doubtful.</description>
    </item>
    <item>
      <title>Item without a link</title>
      <description>Should be skipped.</description>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchFeedParsesArticles(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, sampleRSS)
	fetcher := NewFetcher()

	articles, err := fetcher.FetchFeed(context.Background(), "test", server.URL, 10)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (linkless item skipped)", len(articles))
	}

	first := articles[0]
	if first.Title != "Team A beat Team B 3-1" {
		t.Errorf("title = %q", first.Title)
	}
	if first.URL != "https://example.com/match-report" {
		t.Errorf("url = %q", first.URL)
	}
	if first.Source != "test" {
		t.Errorf("source = %q", first.Source)
	}
	if first.ID != types.GenerateID(first.URL) {
		t.Error("article ID is not derived from the URL")
	}
	if first.PublishedAt.IsZero() {
		t.Error("published date not parsed")
	}
}

func TestFetchFeedHonorsMaxCount(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, sampleRSS)
	fetcher := NewFetcher()

	articles, err := fetcher.FetchFeed(context.Background(), "test", server.URL, 1)
	if err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
}

func TestFetchFeedErrorIsReturnedNotFatal(t *testing.T) {
	server := newFeedServer(t, http.StatusInternalServerError, "boom")
	fetcher := NewFetcher()

	if _, err := fetcher.FetchFeed(context.Background(), "test", server.URL, 10); err == nil {
		t.Fatal("expected error from failing feed")
	}
}

func TestFetchFeedMalformedXML(t *testing.T) {
	server := newFeedServer(t, http.StatusOK, "<rss><channel><item>")
	fetcher := NewFetcher()

	if _, err := fetcher.FetchFeed(context.Background(), "test", server.URL, 10); err == nil {
		t.Fatal("expected error from malformed feed")
	}
}

func TestResolveFeedURL(t *testing.T) {
	if got := ResolveFeedURL("espn"); got != FeedPresets["espn"] {
		t.Errorf("preset not resolved: %q", got)
	}
	direct := "https://example.com/custom.rss"
	if got := ResolveFeedURL(direct); got != direct {
		t.Errorf("direct URL mangled: %q", got)
	}
}

func TestUsable(t *testing.T) {
	long := make([]byte, MinArticleLength)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name    string
		article types.Article
		want    bool
	}{
		{"extracted", types.Article{Text: string(long)}, true},
		{"too short", types.Article{Text: "stub"}, false},
		{"failed extraction", types.Article{Text: string(long), ExtractionError: "boom"}, false},
	}
	for _, tc := range cases {
		if got := Usable(&tc.article); got != tc.want {
			t.Errorf("%s: Usable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
