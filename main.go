package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sportsrag/answer"
	"sportsrag/api"
	"sportsrag/archive"
	"sportsrag/chroma"
	"sportsrag/config"
	"sportsrag/embeddings"
	"sportsrag/events"
	"sportsrag/ingest"
	"sportsrag/retrieval"
	"sportsrag/rssfeeds"
	"sportsrag/tui"
)

const usage = `Usage: sportsrag <command> [flags]

Commands:
  serve    start the HTTP API (and the ingestion scheduler, if configured)
  ingest   run one ingestion pass and exit
  ask      answer a question from the command line
  search   show raw retrieval results for a query
  stats    print the indexed corpus size
  tui      interactive terminal client (talks to a running server)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	// The TUI is a thin client; it needs no credentials or backends.
	if command == "tui" {
		runTUI(args)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	stack, err := buildStack(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	switch command {
	case "serve":
		runServe(cfg, stack)
	case "ingest":
		runIngest(stack)
	case "ask":
		runAsk(cfg, stack, args)
	case "search":
		runSearch(cfg, stack, args)
	case "stats":
		runStats(cfg, stack)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(1)
	}
}

// stack bundles the wired components shared by every command.
type stack struct {
	retriever *retrieval.Retriever
	answerer  *answer.Answerer
	pipeline  *ingest.Pipeline
}

// buildStack wires embeddings, the vector store, retrieval, answering,
// and the ingestion pipeline from configuration.
func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.EmbeddingProvider,
		OpenAIKey: cfg.OpenAIKey,
		CohereKey: cfg.CohereKey,
		Model:     cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}

	// Cache embeddings so re-ingesting unchanged articles costs nothing.
	var cache embeddings.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := embeddings.NewRedisCache(cfg.RedisAddr, cfg.RedisPass, 0, 14*24*time.Hour)
		if err != nil {
			log.Printf("redis unavailable, using in-memory embedding cache: %v", err)
			cache = embeddings.NewMemoryCache()
		} else {
			cache = redisCache
		}
	} else {
		cache = embeddings.NewMemoryCache()
	}
	embedder := embeddings.NewCachedProvider(
		embeddings.NewBatcher(provider, embeddings.DefaultMaxBatch),
		cache,
	)

	store, err := chroma.New(ctx, chroma.Config{
		Host:           cfg.ChromaHost,
		Port:           cfg.ChromaPort,
		CollectionName: cfg.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Chroma: %w", err)
	}

	counter, err := answer.NewTiktokenCounter(cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	pipeline := ingest.NewPipeline(
		rssfeeds.NewFetcher(),
		rssfeeds.ExtractAllContent,
		embedder,
		store,
		ingest.Config{
			Feeds:        cfg.Feeds,
			MaxPerFeed:   cfg.MaxPerFeed,
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
	)
	if cfg.S3Bucket != "" {
		archiver, err := archive.New(ctx, archive.Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
			Prefix: cfg.S3Prefix,
		})
		if err != nil {
			log.Printf("article archive disabled: %v", err)
		} else {
			pipeline.WithArchiver(archiver)
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewPublisher(events.PublisherConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Printf("event publishing disabled: %v", err)
		} else {
			pipeline.WithPublisher(publisher)
		}
	}

	return &stack{
		retriever: retrieval.New(embedder, store),
		answerer:  answer.New(answer.NewOpenAIGenerator(cfg.OpenAIKey, cfg.ChatModel), counter, cfg.ContextTokenBudget),
		pipeline:  pipeline,
	}, nil
}

func runServe(cfg *config.Config, s *stack) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IngestInterval > 0 {
		ingest.NewScheduler(s.pipeline, cfg.IngestInterval).Start(ctx)
	}

	server := api.NewServer(s.retriever, s.answerer, s.pipeline, api.Options{
		RequireAuth:    cfg.RequireAuth,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerMinute:  cfg.RatePerMinute,
		Collection:     cfg.Collection,
		TopK:           cfg.TopK,
		MinRelevance:   cfg.MinRelevance,
	})
	if err := server.Run(cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runIngest(s *stack) {
	report, err := s.pipeline.Run(context.Background())
	if err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}

func runAsk(cfg *config.Config, s *stack, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	topK := fs.Int("k", cfg.TopK, "number of chunks to retrieve")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("usage: sportsrag ask \"<question>\"")
	}
	question := fs.Arg(0)

	ctx := context.Background()
	results, err := s.retriever.Search(ctx, question, *topK, cfg.MinRelevance)
	if err != nil {
		log.Fatalf("retrieval failed: %v", err)
	}
	ans, err := s.answerer.Answer(ctx, question, results)
	if err != nil {
		log.Fatalf("answer generation failed: %v", err)
	}

	fmt.Println(ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range ans.Sources {
			fmt.Printf("  [%d] %s\n      %s\n", i+1, src.Title, src.URL)
		}
	}
}

func runSearch(cfg *config.Config, s *stack, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("k", cfg.TopK, "number of chunks to retrieve")
	minRelevance := fs.Float64("min", float64(cfg.MinRelevance), "minimum relevance score")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("usage: sportsrag search \"<query>\"")
	}

	results, err := s.retriever.Search(context.Background(), fs.Arg(0), *topK, float32(*minRelevance))
	if err != nil {
		log.Fatalf("retrieval failed: %v", err)
	}
	for i, r := range results {
		fmt.Printf("%d. [%.2f] %s (%s)\n   %s\n", i+1, r.Relevance, r.Chunk.Title, r.Chunk.Source, r.Chunk.URL)
	}
	if len(results) == 0 {
		fmt.Println("no results above the relevance threshold")
	}
}

func runStats(cfg *config.Config, s *stack) {
	count, err := s.retriever.Stats(context.Background())
	if err != nil {
		log.Fatalf("stats failed: %v", err)
	}
	fmt.Printf("collection %q: %d chunks\n", cfg.Collection, count)
}

func runTUI(args []string) {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	apiURL := fs.String("url", "http://localhost:8080", "API base URL")
	apiKey := fs.String("key", os.Getenv("RAG_API_KEY"), "API key, if the server requires one")
	fs.Parse(args)

	program := tea.NewProgram(tui.NewModel(*apiURL, *apiKey))
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
