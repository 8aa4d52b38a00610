package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a bounded text segment cut from one article, the unit of
// embedding and retrieval. Start and End are character offsets into the
// article text, so a chunk sequence can be checked for full coverage.
type Chunk struct {
	ArticleID string `json:"article_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// ID returns the stable identifier used as the vector store upsert key.
// It depends only on the article URL and the chunk position, so
// re-ingesting the same article writes to the same records.
func (c Chunk) ID() string {
	return ChunkID(c.URL, c.Index)
}

// ChunkID derives a stable chunk identifier from an article URL and a
// chunk index.
func ChunkID(url string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", url, index)))
	return hex.EncodeToString(hash[:])[:32]
}

// VectorRecord is a chunk paired with its embedding, as persisted in the
// vector store.
type VectorRecord struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// ScoredChunk is one retrieval hit: a stored chunk plus its relevance to
// the query, where relevance = max(0, 1 - cosine distance).
type ScoredChunk struct {
	Chunk     Chunk   `json:"chunk"`
	Relevance float32 `json:"relevance"`
}

// RetrievalResult is an ordered sequence of hits, highest relevance first.
type RetrievalResult []ScoredChunk

// Relevance converts a cosine distance reported by the vector store into a
// 0..1 relevance score (higher = more similar).
func Relevance(distance float32) float32 {
	r := 1 - distance
	if r < 0 {
		return 0
	}
	return r
}
