package rssfeeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sportsrag/types"

	"github.com/mmcdole/gofeed"
)

const (
	fetchTimeout = 10 * time.Second

	// Some sports sites reject requests with the default Go User-Agent.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Fetcher retrieves and parses RSS/Atom feeds into article metadata.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher() *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: fetchTimeout}
	return &Fetcher{parser: parser}
}

// FetchFeed parses one feed and returns up to maxCount articles carrying
// metadata only; full text is filled in by the extractor.
func (f *Fetcher) FetchFeed(ctx context.Context, source, feedURL string, maxCount int) ([]*types.Article, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", feedURL, err)
	}

	count := len(feed.Items)
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}

	articles := make([]*types.Article, 0, count)
	for i := 0; i < count; i++ {
		item := feed.Items[i]
		if item.Link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		articles = append(articles, &types.Article{
			ID:          types.GenerateID(item.Link),
			Title:       item.Title,
			URL:         item.Link,
			Source:      source,
			PublishedAt: publishedAt,
			FetchedAt:   time.Now(),
			Summary:     summary,
			Author:      author,
			Categories:  append([]string(nil), item.Categories...),
		})
	}

	return articles, nil
}
