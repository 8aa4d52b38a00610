package rssfeeds

import (
	"fmt"
	"log"
	"sync"
	"time"

	"sportsrag/types"

	readability "github.com/go-shiori/go-readability"
)

const (
	// WorkerCount bounds concurrent article fetches so we stay polite to
	// the news sites.
	WorkerCount      = 5
	extractorTimeout = 30 * time.Second

	// MinArticleLength filters out pages where extraction found nothing
	// usable (paywalls, video-only pages).
	MinArticleLength = 200
)

// ExtractAllContent fetches and extracts full text for all articles using
// a worker pool. Failures are recorded on the article, never fatal.
func ExtractAllContent(articles []*types.Article) {
	var wg sync.WaitGroup
	articleChan := make(chan *types.Article, len(articles))

	for i := 0; i < WorkerCount; i++ {
		go func(workerID int) {
			for article := range articleChan {
				if err := extractContent(article); err != nil {
					article.ExtractionError = err.Error()
					log.Printf("[worker %d] failed to extract %s: %v", workerID, article.URL, err)
				}
				wg.Done()
			}
		}(i)
	}

	for _, article := range articles {
		wg.Add(1)
		articleChan <- article
	}

	wg.Wait()
	close(articleChan)
}

// extractContent fetches one article page and extracts its readable text.
func extractContent(article *types.Article) error {
	if article.URL == "" {
		return fmt.Errorf("article URL is empty")
	}

	extracted, err := readability.FromURL(article.URL, extractorTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	if len(extracted.TextContent) < MinArticleLength {
		return fmt.Errorf("insufficient content (%d chars)", len(extracted.TextContent))
	}

	article.Text = extracted.TextContent
	if article.Author == "" {
		article.Author = extracted.Byline
	}
	return nil
}

// Usable reports whether an article survived extraction with enough text
// to be worth chunking.
func Usable(article *types.Article) bool {
	return article.ExtractionError == "" && len(article.Text) >= MinArticleLength
}
