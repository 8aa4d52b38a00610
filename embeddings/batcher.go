package embeddings

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	// DefaultMaxBatch is the largest number of texts sent in one API call.
	DefaultMaxBatch = 100

	defaultMaxRetries  = 3
	defaultBaseBackoff = 2 * time.Second
	defaultMaxBackoff  = 32 * time.Second
)

// Batcher wraps a Provider with batching and failure isolation. Inputs are
// embedded in batches of at most maxBatch texts. When a batch fails it is
// bisected and each half retried separately, so one bad request does not
// force the whole batch to be re-sent against the paid API.
type Batcher struct {
	provider    Provider
	maxBatch    int
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewBatcher creates a Batcher around provider. maxBatch <= 0 selects
// DefaultMaxBatch.
func NewBatcher(provider Provider, maxBatch int) *Batcher {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Batcher{
		provider:    provider,
		maxBatch:    maxBatch,
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
	}
}

func (b *Batcher) ModelName() string { return b.provider.ModelName() }

// EmbedQuery passes a single query through to the wrapped provider;
// batching and bisection do not apply to one text.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return EmbedQuery(ctx, b.provider, text)
}

// EmbedTexts embeds all texts, preserving input order.
func (b *Batcher) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.maxBatch {
		end := start + b.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := b.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch embeds one batch, bisecting on failure so only the failing
// sub-batch is retried.
func (b *Batcher) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := b.provider.EmbedTexts(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if len(texts) == 1 {
		return b.embedSingle(ctx, texts[0], err)
	}

	log.Printf("embedding batch of %d failed, splitting: %v", len(texts), err)
	mid := len(texts) / 2

	left, err := b.embedBatch(ctx, texts[:mid])
	if err != nil {
		return nil, err
	}
	right, err := b.embedBatch(ctx, texts[mid:])
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// embedSingle retries one text with exponential backoff for transient
// errors. Persistent failures surface to the caller.
func (b *Batcher) embedSingle(ctx context.Context, text string, lastErr error) ([][]float32, error) {
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if !isTransient(lastErr) {
			break
		}

		backoff := b.baseBackoff << (attempt - 1)
		if backoff > b.maxBackoff {
			backoff = b.maxBackoff
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		vectors, err := b.provider.EmbedTexts(ctx, []string{text})
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed: %w", lastErr)
}

// isTransient reports whether an API error is worth retrying: rate limits,
// timeouts, and 5xx responses.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "timeout", "deadline exceeded", "500", "502", "503", "504", "connection reset", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
