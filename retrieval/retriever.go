// Package retrieval answers "which stored chunks are most similar to this
// question" by embedding the query and running a nearest-neighbor search
// against the vector store.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"sportsrag/chroma"
	"sportsrag/embeddings"
	"sportsrag/types"
)

// Store describes the vector store functionality the retriever needs.
type Store interface {
	Query(ctx context.Context, vector []float32, k int) ([]chroma.QueryHit, error)
	Count(ctx context.Context) (int, error)
}

// Retriever embeds query text and returns the top-k most relevant stored
// chunks. The embedder must be the same instance used at ingestion time;
// mixing models makes similarity scores meaningless.
type Retriever struct {
	embedder embeddings.Provider
	store    Store
}

func New(embedder embeddings.Provider, store Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Search returns up to k chunks with relevance >= minRelevance, ordered by
// descending relevance. An empty store yields an empty result, not an
// error.
func (r *Retriever) Search(ctx context.Context, query string, k int, minRelevance float32) (types.RetrievalResult, error) {
	vector, err := embeddings.EmbedQuery(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector store query failed: %w", err)
	}

	result := make(types.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		relevance := types.Relevance(hit.Distance)
		if relevance < minRelevance {
			continue
		}
		result = append(result, types.ScoredChunk{
			Chunk:     chunkFromHit(hit),
			Relevance: relevance,
		})
	}

	// Chroma reports hits closest first, but sort anyway so the ordering
	// invariant holds regardless of the backing store.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Relevance > result[j].Relevance
	})
	return result, nil
}

// Stats reports the number of stored chunks.
func (r *Retriever) Stats(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// chunkFromHit rebuilds a chunk from a stored document and its metadata;
// everything a citation needs travels with the hit.
func chunkFromHit(hit chroma.QueryHit) types.Chunk {
	chunk := types.Chunk{Text: hit.Document}
	if hit.Metadata == nil {
		return chunk
	}
	chunk.ArticleID = metaString(hit.Metadata, "article_id")
	chunk.Title = metaString(hit.Metadata, "title")
	chunk.URL = metaString(hit.Metadata, "url")
	chunk.Source = metaString(hit.Metadata, "source")
	chunk.Index = metaInt(hit.Metadata, "chunk_index")
	chunk.Start = metaInt(hit.Metadata, "start")
	chunk.End = metaInt(hit.Metadata, "end")
	return chunk
}

func metaString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(metadata map[string]interface{}, key string) int {
	switch v := metadata[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
