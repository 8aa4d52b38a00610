// Package embeddings turns chunk and query text into fixed-dimensional
// vectors through a hosted embedding model, with batching and a
// content-hash cache in front of the provider.
package embeddings

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Provider abstracts a text->embedding generator. Implementations return
// one vector per input text, in input order.
type Provider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// QueryEmbedder is implemented by providers whose models distinguish
// query-time input from document input. Embedding a query as a document
// silently degrades relevance, so the retriever must use this path when
// the provider offers it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery embeds one query string, taking the provider's query-specific
// path when it has one and falling back to EmbedTexts otherwise.
func EmbedQuery(ctx context.Context, p Provider, text string) ([]float32, error) {
	if qe, ok := p.(QueryEmbedder); ok {
		return qe.EmbedQuery(ctx, text)
	}
	vectors, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// ProviderConfig selects and configures a hosted embeddings provider.
type ProviderConfig struct {
	// Provider is "openai" or "cohere"; empty falls back to whichever
	// credential is present, OpenAI first.
	Provider  string
	OpenAIKey string
	CohereKey string
	Model     string
}

// NewProvider returns the configured embeddings provider. The query path
// and the ingestion path must share the returned instance so both sides
// embed with the same model.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "cohere" {
		if cfg.CohereKey == "" {
			return nil, errors.New("cohere embeddings selected but COHERE_API_KEY is not set")
		}
		model := cfg.Model
		if model == "" {
			model = "embed-english-v3.0"
		}
		return NewCohereProvider(cfg.CohereKey, model), nil
	}
	if cfg.OpenAIKey != "" {
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIProvider(cfg.OpenAIKey, model), nil
	}
	if cfg.CohereKey != "" {
		model := cfg.Model
		if model == "" {
			model = "embed-english-v3.0"
		}
		return NewCohereProvider(cfg.CohereKey, model), nil
	}
	return nil, errors.New("no embeddings provider configured: set OPENAI_API_KEY or COHERE_API_KEY")
}

// OpenAIProvider implements Provider using the official OpenAI client.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (o *OpenAIProvider) ModelName() string { return o.model }

// EmbedTexts generates one embedding per input text in a single API call.
func (o *OpenAIProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// CohereProvider implements Provider using the Cohere Embed API v2.
type CohereProvider struct {
	client *cohereclient.Client
	model  string
}

// NewCohereProvider creates a Cohere-backed provider. The HTTP client
// forces HTTP/1.1 to avoid HTTP/2 protocol errors seen against the Cohere
// endpoint.
func NewCohereProvider(apiKey, model string) *CohereProvider {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	return &CohereProvider{
		client: cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(httpClient),
		),
		model: model,
	}
}

func (c *CohereProvider) ModelName() string { return c.model }

func (c *CohereProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, cohere.EmbedInputTypeSearchDocument)
}

// EmbedQuery embeds query text with the search_query input type; Cohere v3
// models are trained with asymmetric query/document embeddings.
func (c *CohereProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, cohere.EmbedInputTypeSearchQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *CohereProvider) embed(ctx context.Context, texts []string, inputType cohere.EmbedInputType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      inputType,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
