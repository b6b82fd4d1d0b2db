package retrieval

import (
	"strings"

	"github.com/m-tancredi/plai-rag/internal/embedding"
)

// Enrichment is best-effort: a panic or bad input degrades the response to
// zero values, it never aborts the request.

const clusterSimilarity = 0.8

// Span is a [Start,End) rune range inside a result text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (o *Orchestrator) enrichClusters(hits []embedding.Hit) (clusters []int) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("clustering enrichment failed", "panic", r)
			clusters = nil
		}
	}()
	return clusterHits(hits)
}

// clusterHits greedily groups hits whose vectors are close: each hit joins
// the first cluster whose representative scores above clusterSimilarity,
// otherwise it starts a new one. Hits without vectors (lexical fallback)
// each form their own cluster.
func clusterHits(hits []embedding.Hit) []int {
	clusters := make([]int, len(hits))
	var representatives [][]float32

	for i, hit := range hits {
		if len(hit.Vector) == 0 {
			clusters[i] = len(representatives)
			representatives = append(representatives, nil)
			continue
		}

		assigned := -1
		for c, rep := range representatives {
			if rep == nil {
				continue
			}
			if dot32(hit.Vector, rep) >= clusterSimilarity {
				assigned = c
				break
			}
		}
		if assigned < 0 {
			assigned = len(representatives)
			representatives = append(representatives, hit.Vector)
		}
		clusters[i] = assigned
	}
	return clusters
}

func dot32(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func (o *Orchestrator) enrichHighlights(text, query string) (spans []Span) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("highlight enrichment failed", "panic", r)
			spans = nil
		}
	}()
	return highlightSpans(text, query)
}

// highlightSpans marks every occurrence of each query term in the text.
// Offsets are rune positions.
func highlightSpans(text, query string) []Span {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	lower := []rune(strings.ToLower(text))
	var spans []Span
	for _, term := range terms {
		termRunes := []rune(term)
		for i := 0; i+len(termRunes) <= len(lower); i++ {
			if string(lower[i:i+len(termRunes)]) == term {
				spans = append(spans, Span{Start: i, End: i + len(termRunes)})
				i += len(termRunes) - 1
			}
		}
	}
	return spans
}

// classifyIntent tags the query with a coarse intent. Heuristic only; an
// unknown shape falls back to "keyword".
func classifyIntent(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "keyword"
	}

	switch {
	case strings.HasPrefix(q, "how") || strings.HasPrefix(q, "why"):
		return "explanation"
	case strings.HasPrefix(q, "what") || strings.HasPrefix(q, "who") ||
		strings.HasPrefix(q, "when") || strings.HasPrefix(q, "where") ||
		strings.HasPrefix(q, "which") || strings.HasSuffix(q, "?"):
		return "question"
	case strings.HasPrefix(q, "summarize") || strings.HasPrefix(q, "summary") ||
		strings.HasPrefix(q, "list") || strings.HasPrefix(q, "compare"):
		return "command"
	default:
		return "keyword"
	}
}
