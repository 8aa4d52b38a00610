// Package chroma is a thin client for the Chroma vector database REST API
// (v2). Embeddings are always supplied by the caller; the collection is
// created with cosine distance so scores line up with what the embedding
// models are tuned for.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"sportsrag/types"
)

// Config holds connection settings for a Chroma instance.
type Config struct {
	Host           string
	Port           int
	CollectionName string
	Timeout        time.Duration
}

// Client wraps one Chroma collection.
type Client struct {
	baseURL        string
	tenant         string
	database       string
	collectionName string
	collectionID   string
	httpClient     *http.Client
}

// QueryHit is one raw nearest-neighbor match returned by Query.
type QueryHit struct {
	ID       string
	Document string
	Metadata map[string]interface{}
	Distance float32
}

type queryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Distances [][]float32                `json:"distances"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Documents [][]string                 `json:"documents"`
}

// New connects to Chroma and gets or creates the configured collection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:        fmt.Sprintf("http://%s:%d/api/v2", cfg.Host, cfg.Port),
		tenant:         "default_tenant",
		database:       "default_database",
		collectionName: cfg.CollectionName,
		httpClient:     &http.Client{Timeout: timeout},
	}

	id, err := c.getOrCreateCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	c.collectionID = id
	return c, nil
}

// Collection returns the name of the collection the client talks to.
func (c *Client) Collection() string { return c.collectionName }

func (c *Client) collectionsURL() string {
	return fmt.Sprintf("%s/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/%s", c.collectionsURL(), c.collectionID)
}

// getOrCreateCollection resolves the collection ID, creating the
// collection on first use. The distance space is pinned to cosine here:
// Chroma's default is L2, which silently degrades relevance for models
// tuned for cosine similarity.
func (c *Client) getOrCreateCollection(ctx context.Context) (string, error) {
	payload := map[string]interface{}{
		"name": c.collectionName,
		"metadata": map[string]interface{}{
			"hnsw:space":  "cosine",
			"description": "sports news chunks for retrieval",
		},
		"get_or_create": true,
	}

	body, err := c.postJSON(ctx, c.collectionsURL(), payload)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse collection response: %w, body: %s", err, string(body))
	}
	if result.ID == "" {
		return "", fmt.Errorf("collection response has no id: %s", string(body))
	}
	return result.ID, nil
}

// Upsert writes records keyed by their stable chunk IDs. Re-sending an
// unchanged record overwrites it in place, so repeated ingestion never
// duplicates chunks.
func (c *Client) Upsert(ctx context.Context, records []types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	documents := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]interface{}, len(records))

	for i, rec := range records {
		ids[i] = rec.Chunk.ID()
		documents[i] = rec.Chunk.Text
		embeddings[i] = rec.Embedding
		metadatas[i] = map[string]interface{}{
			"article_id":  rec.Chunk.ArticleID,
			"title":       rec.Chunk.Title,
			"url":         rec.Chunk.URL,
			"source":      rec.Chunk.Source,
			"chunk_index": rec.Chunk.Index,
			"start":       rec.Chunk.Start,
			"end":         rec.Chunk.End,
		}
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}

	if _, err := c.postJSON(ctx, c.collectionURL()+"/upsert", payload); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

// Query returns the k nearest stored chunks to the given vector, closest
// first as reported by Chroma.
func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]QueryHit, error) {
	if k <= 0 {
		return nil, nil
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{vector},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	body, err := c.postJSON(ctx, c.collectionURL()+"/query", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	var result queryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}
	if len(result.IDs) == 0 {
		return nil, nil
	}

	hits := make([]QueryHit, 0, len(result.IDs[0]))
	for i, id := range result.IDs[0] {
		hit := QueryHit{ID: id}
		if len(result.Documents) > 0 && i < len(result.Documents[0]) {
			hit.Document = result.Documents[0][i]
		}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			hit.Metadata = result.Metadatas[0][i]
		}
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			hit.Distance = result.Distances[0][i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteWhere removes records matching a metadata filter. Used to prune
// stale tail chunks when a re-fetched article got shorter.
func (c *Client) DeleteWhere(ctx context.Context, where map[string]interface{}) error {
	payload := map[string]interface{}{"where": where}
	if _, err := c.postJSON(ctx, c.collectionURL()+"/delete", payload); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (c *Client) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL()+"/count", nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("failed to count records (status %d): %s", resp.StatusCode, string(body))
	}

	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Reset drops and recreates the collection.
func (c *Client) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/%s", c.collectionsURL(), c.collectionName), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	id, err := c.getOrCreateCollection(ctx)
	if err != nil {
		return err
	}
	c.collectionID = id
	log.Printf("collection %s reset", c.collectionName)
	return nil
}

// postJSON sends a JSON POST and returns the response body for 2xx
// statuses.
func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
