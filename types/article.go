package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article represents a single news article with metadata and extracted content
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	PublishedAt     time.Time `json:"published_at"`
	FetchedAt       time.Time `json:"fetched_at"`
	Summary         string    `json:"summary,omitempty"`
	Author          string    `json:"author,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
	Text            string    `json:"text"`
	ExtractionError string    `json:"extraction_error,omitempty"`
}

// FeedResult is the top-level wrapper for a single feed fetch
type FeedResult struct {
	FeedURL      string     `json:"feed_url"`
	FetchedAt    time.Time  `json:"fetched_at"`
	ArticleCount int        `json:"article_count"`
	Articles     []*Article `json:"articles"`
}

// GenerateID creates a unique article ID from its URL
func GenerateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
