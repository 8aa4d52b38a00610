// Package chunker splits article text into overlapping segments sized for
// embedding. Splitting is deterministic: the same text and parameters
// always produce the same boundaries, which keeps re-ingestion idempotent.
package chunker

import (
	"sportsrag/types"
)

// sentenceSearchWindow is how far back from a chunk boundary we look for a
// sentence end before falling back to a hard cut.
const sentenceSearchWindow = 100

// Span is one segment of the source text. Start and End are rune offsets,
// Text is the exact run of text between them.
type Span struct {
	Start int
	End   int
	Text  string
}

// Split cuts text into overlapping spans of roughly size runes. Boundaries
// prefer to land just after a ". " sentence end within the trailing search
// window. A text no longer than size yields exactly one span covering it.
func Split(text string, size, overlap int) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if n <= size {
		return []Span{{Start: 0, End: n, Text: text}}
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + size
		if end < n {
			if cut := sentenceEnd(runes, start, end); cut > start {
				end = cut
			}
		} else {
			end = n
		}

		spans = append(spans, Span{Start: start, End: end, Text: string(runes[start:end])})
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			// Snapping moved the boundary back past the overlap; advance
			// anyway so the loop always terminates.
			next = end
		}
		start = next
	}
	return spans
}

// sentenceEnd returns the offset just past the last ". " fully contained in
// runes[start:end], restricted to the trailing search window, or -1.
func sentenceEnd(runes []rune, start, end int) int {
	searchStart := end - sentenceSearchWindow
	if searchStart < start {
		searchStart = start
	}
	for i := end - 2; i >= searchStart; i-- {
		if runes[i] == '.' && runes[i+1] == ' ' {
			return i + 1
		}
	}
	return -1
}

// ChunkArticle converts one article into chunks carrying the metadata a
// citation needs (title, URL, source) so retrieval never requires a second
// lookup.
func ChunkArticle(article *types.Article, size, overlap int) []types.Chunk {
	spans := Split(article.Text, size, overlap)

	chunks := make([]types.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, types.Chunk{
			ArticleID: article.ID,
			URL:       article.URL,
			Title:     article.Title,
			Source:    article.Source,
			Index:     i,
			Text:      span.Text,
			Start:     span.Start,
			End:       span.End,
		})
	}
	return chunks
}
