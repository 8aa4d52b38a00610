// Package ingest runs the write path: fetch feeds, extract article text,
// chunk, embed, and upsert into the vector store. It runs as a batch job,
// periodically or on demand, and never blocks query serving.
package ingest

import (
	"context"
	"fmt"
	"log"

	"sportsrag/chunker"
	"sportsrag/embeddings"
	"sportsrag/rssfeeds"
	"sportsrag/types"
)

// FeedFetcher retrieves article metadata from one feed.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, source, feedURL string, maxCount int) ([]*types.Article, error)
}

// Extractor fills in full article text in place.
type Extractor func(articles []*types.Article)

// Store is the slice of the vector store the pipeline writes to.
type Store interface {
	Upsert(ctx context.Context, records []types.VectorRecord) error
	DeleteWhere(ctx context.Context, where map[string]interface{}) error
}

// Archiver persists raw article snapshots. Optional.
type Archiver interface {
	Archive(ctx context.Context, article *types.Article) error
}

// Publisher emits an event for each newly stored article. Optional.
type Publisher interface {
	PublishArticle(ctx context.Context, article *types.Article) error
}

// Config holds the pipeline tunables.
type Config struct {
	Feeds        []string
	MaxPerFeed   int
	ChunkSize    int
	ChunkOverlap int
}

// Report summarizes one pipeline run.
type Report struct {
	FeedsFetched   int `json:"feeds_fetched"`
	FeedsFailed    int `json:"feeds_failed"`
	Articles       int `json:"articles"`
	ArticlesFailed int `json:"articles_failed"`
	ChunksStored   int `json:"chunks_stored"`
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	fetcher   FeedFetcher
	extract   Extractor
	embedder  embeddings.Provider
	store     Store
	archiver  Archiver
	publisher Publisher
	cfg       Config
}

func NewPipeline(fetcher FeedFetcher, extract Extractor, embedder embeddings.Provider, store Store, cfg Config) *Pipeline {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = rssfeeds.DefaultFeeds
	}
	return &Pipeline{
		fetcher:  fetcher,
		extract:  extract,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

// WithArchiver attaches an optional raw-article archive.
func (p *Pipeline) WithArchiver(a Archiver) *Pipeline {
	p.archiver = a
	return p
}

// WithPublisher attaches an optional article event publisher.
func (p *Pipeline) WithPublisher(pub Publisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run executes one full ingestion pass. One feed failing never blocks the
// others; per-article failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	for _, feed := range p.cfg.Feeds {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		feedURL := rssfeeds.ResolveFeedURL(feed)
		articles, err := p.fetcher.FetchFeed(ctx, feed, feedURL, p.cfg.MaxPerFeed)
		if err != nil {
			report.FeedsFailed++
			log.Printf("skipping feed %s: %v", feed, err)
			continue
		}
		report.FeedsFetched++

		if p.extract != nil {
			p.extract(articles)
		}

		for _, article := range articles {
			if !rssfeeds.Usable(article) {
				continue
			}
			stored, err := p.ingestArticle(ctx, article)
			if err != nil {
				report.ArticlesFailed++
				log.Printf("skipping article %s: %v", article.URL, err)
				continue
			}
			report.Articles++
			report.ChunksStored += stored
		}
	}

	log.Printf("ingestion complete: %d feeds, %d articles, %d chunks stored (%d feed failures, %d article failures)",
		report.FeedsFetched, report.Articles, report.ChunksStored, report.FeedsFailed, report.ArticlesFailed)
	return report, nil
}

// ingestArticle chunks, embeds, and upserts one article, then prunes any
// stale tail chunks left over from a longer previous version.
func (p *Pipeline) ingestArticle(ctx context.Context, article *types.Article) (int, error) {
	chunks := chunker.ChunkArticle(article, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]types.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = types.VectorRecord{Chunk: chunks[i], Embedding: vectors[i]}
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to upsert records: %w", err)
	}

	// A re-fetched article that shrank leaves superseded records beyond
	// the new chunk count; remove them so retrieval never cites them.
	err = p.store.DeleteWhere(ctx, map[string]interface{}{
		"$and": []interface{}{
			map[string]interface{}{"url": map[string]interface{}{"$eq": article.URL}},
			map[string]interface{}{"chunk_index": map[string]interface{}{"$gte": len(chunks)}},
		},
	})
	if err != nil {
		log.Printf("failed to prune stale chunks for %s: %v", article.URL, err)
	}

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, article); err != nil {
			log.Printf("archive failed for %s: %v", article.URL, err)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishArticle(ctx, article); err != nil {
			log.Printf("event publish failed for %s: %v", article.URL, err)
		}
	}

	return len(records), nil
}
