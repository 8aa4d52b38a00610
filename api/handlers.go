package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"sportsrag/types"
)

const (
	minQuestionLen = 3
	maxQuestionLen = 500
	maxTopK        = 20
)

// QueryRequest is the body for POST /api/query and POST /api/search.
// TopK and MinRelevance are optional; the server defaults apply when omitted.
type QueryRequest struct {
	Question     string   `json:"question"`
	TopK         *int     `json:"top_k"`
	MinRelevance *float32 `json:"min_relevance"`
}

// QueryResponse is the body for POST /api/query.
type QueryResponse struct {
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	Sources     []types.Source `json:"sources"`
	ContextUsed int            `json:"context_used"`
}

// SearchRequest is the body for POST /api/search. Retrieval takes a search
// query rather than a question; the same length and range limits apply.
type SearchRequest struct {
	Query        string   `json:"query"`
	TopK         *int     `json:"top_k"`
	MinRelevance *float32 `json:"min_relevance"`
}

// SearchHit is one retrieved chunk, exposed for debugging retrieval quality.
type SearchHit struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Source    string  `json:"source"`
	Text      string  `json:"text"`
	Relevance float32 `json:"relevance"`
}

// validate checks the request and fills in server defaults.
func (r *QueryRequest) validate(defaults Options) (topK int, minRelevance float32, errMsg string) {
	r.Question = strings.TrimSpace(r.Question)
	n := utf8.RuneCountInString(r.Question)
	if n < minQuestionLen || n > maxQuestionLen {
		return 0, 0, "question must be between 3 and 500 characters"
	}

	return checkRanges(r.TopK, r.MinRelevance, defaults)
}

// validate checks the search request and fills in server defaults.
func (r *SearchRequest) validate(defaults Options) (topK int, minRelevance float32, errMsg string) {
	r.Query = strings.TrimSpace(r.Query)
	n := utf8.RuneCountInString(r.Query)
	if n < minQuestionLen || n > maxQuestionLen {
		return 0, 0, "query must be between 3 and 500 characters"
	}
	return checkRanges(r.TopK, r.MinRelevance, defaults)
}

func checkRanges(topKOverride *int, minOverride *float32, defaults Options) (topK int, minRelevance float32, errMsg string) {
	topK = defaults.TopK
	if topKOverride != nil {
		topK = *topKOverride
	}
	if topK < 1 || topK > maxTopK {
		return 0, 0, "top_k must be between 1 and 20"
	}

	minRelevance = defaults.MinRelevance
	if minOverride != nil {
		minRelevance = *minOverride
	}
	if minRelevance < 0 || minRelevance > 1 {
		return 0, 0, "min_relevance must be between 0 and 1"
	}
	return topK, minRelevance, ""
}

// handleQuery answers a question grounded in retrieved news chunks.
// POST /api/query
func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	topK, minRelevance, errMsg := req.validate(s.opts)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Question, topK, minRelevance)
	if err != nil {
		log.Printf("retrieval failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "retrieval backend unavailable"})
		return
	}

	answer, err := s.answerer.Answer(c.Request.Context(), req.Question, results)
	if err != nil {
		log.Printf("answer generation failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "answer generation failed"})
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []types.Source{}
	}
	c.JSON(http.StatusOK, QueryResponse{
		Question:    req.Question,
		Answer:      answer.Text,
		Sources:     sources,
		ContextUsed: answer.ContextUsed,
	})
}

// handleSearch returns raw retrieval results without answer generation.
// POST /api/search
func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	topK, minRelevance, errMsg := req.validate(s.opts)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Query, topK, minRelevance)
	if err != nil {
		log.Printf("retrieval failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "retrieval backend unavailable"})
		return
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			Title:     r.Chunk.Title,
			URL:       r.Chunk.URL,
			Source:    r.Chunk.Source,
			Text:      r.Chunk.Text,
			Relevance: r.Relevance,
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// handleIngest kicks off an ingestion pass in the background and returns
// immediately. Only one pass runs at a time.
// POST /api/ingest
func (s *Server) handleIngest(c *gin.Context) {
	select {
	case s.ingesting <- struct{}{}:
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "ingestion already in progress"})
		return
	}

	go func() {
		defer func() { <-s.ingesting }()
		if _, err := s.ingestor.Run(context.Background()); err != nil {
			log.Printf("background ingestion failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "ingestion started"})
}

// handleStats reports the size of the indexed corpus.
// GET /api/stats
func (s *Server) handleStats(c *gin.Context) {
	count, err := s.searcher.Stats(c.Request.Context())
	if err != nil {
		log.Printf("stats failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "retrieval backend unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"collection": s.opts.Collection,
		"chunks":     count,
	})
}
