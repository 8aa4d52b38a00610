package types

// Source is a citation from a generated answer back to the article that
// supports it.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is the result of a RAG query: generated text plus the sources
// that were actually cited.
type Answer struct {
	Question    string   `json:"question"`
	Text        string   `json:"answer"`
	Sources     []Source `json:"sources"`
	ContextUsed int      `json:"context_used"`
}
