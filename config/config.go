package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default tunables for the retrieval pipeline. All of them can be
// overridden through the environment; none are hard-coded elsewhere.
const (
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 50
	DefaultTopK           = 5
	DefaultMinRelevance   = 0.3
	DefaultMaxPerFeed     = 5
	DefaultContextBudget  = 3000
	DefaultRatePerMinute  = 10
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultCohereModel    = "embed-english-v3.0"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultCollection     = "sports_news"
	DefaultChromaHost     = "localhost"
	DefaultChromaPort     = 8000
	DefaultPort           = "8080"
)

// Config holds everything read from the environment at startup.
type Config struct {
	// Credentials. The chat model always runs on OpenAI; Cohere is an
	// alternative for embeddings only.
	OpenAIKey string
	CohereKey string

	// EmbeddingProvider selects "openai" (default) or "cohere".
	EmbeddingProvider string

	// Models. Storage-time and query-time embeddings must come from the
	// same model or similarity scores are meaningless.
	EmbeddingModel string
	ChatModel      string

	// Chunking.
	ChunkSize    int
	ChunkOverlap int

	// Retrieval.
	TopK         int
	MinRelevance float32

	// Answer generation.
	ContextTokenBudget int

	// Chroma connection.
	ChromaHost string
	ChromaPort int
	Collection string

	// Ingestion.
	Feeds          []string
	MaxPerFeed     int
	IngestInterval time.Duration

	// Optional integrations; empty means disabled.
	RedisAddr    string
	RedisPass    string
	S3Bucket     string
	S3Region     string
	S3Prefix     string
	KafkaBrokers []string
	KafkaTopic   string

	// HTTP API.
	Port           string
	RequireAuth    bool
	APIKey         string
	AllowedOrigins []string
	RatePerMinute  int
}

// Load reads configuration from the environment (and .env if present) and
// validates it. Configuration errors fail here, at startup, not at first
// request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	embeddingModel := DefaultEmbeddingModel
	if envString("EMBEDDING_PROVIDER", "openai") == "cohere" {
		embeddingModel = DefaultCohereModel
	}

	cfg := &Config{
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		CohereKey:          os.Getenv("COHERE_API_KEY"),
		EmbeddingProvider:  envString("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:     envString("EMBEDDING_MODEL", embeddingModel),
		ChatModel:          envString("CHAT_MODEL", DefaultChatModel),
		ChunkSize:          envInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:       envInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		TopK:               envInt("TOP_K", DefaultTopK),
		MinRelevance:       envFloat32("MIN_RELEVANCE", DefaultMinRelevance),
		ContextTokenBudget: envInt("CONTEXT_TOKEN_BUDGET", DefaultContextBudget),
		ChromaHost:         envString("CHROMA_HOST", DefaultChromaHost),
		ChromaPort:         envInt("CHROMA_PORT", DefaultChromaPort),
		Collection:         envString("CHROMA_COLLECTION", DefaultCollection),
		Feeds:              envList("FEEDS"),
		MaxPerFeed:         envInt("MAX_PER_FEED", DefaultMaxPerFeed),
		IngestInterval:     envDuration("INGEST_INTERVAL", 0),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPass:          os.Getenv("REDIS_PASS"),
		S3Bucket:           strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:           strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Prefix:           strings.TrimSpace(os.Getenv("S3_PREFIX")),
		KafkaBrokers:       envList("KAFKA_BROKERS"),
		KafkaTopic:         envString("KAFKA_TOPIC", "sportsrag.articles"),
		Port:               envString("PORT", DefaultPort),
		RequireAuth:        envBool("REQUIRE_AUTH", false),
		APIKey:             os.Getenv("RAG_API_KEY"),
		AllowedOrigins:     envList("ALLOWED_ORIGINS"),
		RatePerMinute:      envInt("RATE_LIMIT", DefaultRatePerMinute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set: answer generation requires the OpenAI chat API")
	}
	if c.EmbeddingProvider == "cohere" && c.CohereKey == "" {
		return fmt.Errorf("EMBEDDING_PROVIDER=cohere requires COHERE_API_KEY")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.MinRelevance < 0 || c.MinRelevance > 1 {
		return fmt.Errorf("MIN_RELEVANCE must be in [0, 1], got %g", c.MinRelevance)
	}
	if c.RequireAuth && c.APIKey == "" {
		return fmt.Errorf("REQUIRE_AUTH is set but RAG_API_KEY is empty")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
