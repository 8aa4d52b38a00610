// Package api exposes the question-answering service over HTTP.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sportsrag/ingest"
	"sportsrag/types"
)

// Searcher finds stored chunks relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int, minRelevance float32) (types.RetrievalResult, error)
	Stats(ctx context.Context) (int, error)
}

// Answerer turns a question plus retrieved context into a grounded answer.
type Answerer interface {
	Answer(ctx context.Context, question string, results types.RetrievalResult) (*types.Answer, error)
}

// Ingestor runs one full ingestion pass.
type Ingestor interface {
	Run(ctx context.Context) (ingest.Report, error)
}

// Options holds the HTTP-facing configuration.
type Options struct {
	RequireAuth    bool
	APIKey         string
	AllowedOrigins []string
	RatePerMinute  int
	Collection     string
	TopK           int
	MinRelevance   float32
}

// Server wires retrieval, answering, and ingestion behind the REST routes.
type Server struct {
	searcher  Searcher
	answerer  Answerer
	ingestor  Ingestor
	opts      Options
	ingesting chan struct{}
}

func NewServer(searcher Searcher, answerer Answerer, ingestor Ingestor, opts Options) *Server {
	return &Server{
		searcher:  searcher,
		answerer:  answerer,
		ingestor:  ingestor,
		opts:      opts,
		ingesting: make(chan struct{}, 1),
	}
}

// NewRouter constructs a Gin engine with all routes and middleware registered.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(s.opts.AllowedOrigins))
	r.Use(rateLimitMiddleware(s.opts.RatePerMinute))

	r.GET("/api/health", s.handleHealth)

	protected := r.Group("/api")
	protected.Use(authMiddleware(s.opts.RequireAuth, s.opts.APIKey))
	protected.POST("/query", s.handleQuery)
	protected.POST("/search", s.handleSearch)
	protected.POST("/ingest", s.handleIngest)
	protected.GET("/stats", s.handleStats)

	return r
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port string) error {
	log.Printf("API listening on :%s", port)
	return s.NewRouter().Run(":" + port)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
