package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/model"
)

const exactPhraseBoost = 0.5

// lexicalSearch is the degraded retrieval path: sentence-level keyword
// matching over the raw extracted text of the scope documents. Scores are
// keyword-overlap ratios with an exact-phrase boost, so they stay comparable
// and bounded even without embeddings.
func lexicalSearch(query string, scope []model.Document, topK int) []embedding.Hit {
	terms := tokenize(query)
	if len(terms) == 0 || topK <= 0 {
		return nil
	}

	termSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		termSet[t] = struct{}{}
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))

	var hits []embedding.Hit
	for _, doc := range scope {
		for i, sentence := range splitSentences(doc.ExtractedText) {
			score := overlapScore(sentence, termSet, len(termSet))
			if score <= 0 {
				continue
			}
			if queryLower != "" && strings.Contains(strings.ToLower(sentence), queryLower) {
				score += exactPhraseBoost
			}
			hits = append(hits, embedding.Hit{
				Text:       sentence,
				Score:      score,
				DocumentID: doc.ID,
				ChunkIndex: i,
			})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}

func overlapScore(sentence string, termSet map[string]struct{}, termCount int) float64 {
	if termCount == 0 {
		return 0
	}
	matched := make(map[string]struct{})
	for _, token := range tokenize(sentence) {
		if _, ok := termSet[token]; ok {
			matched[token] = struct{}{}
		}
	}
	return float64(len(matched)) / float64(termCount)
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n', '。', '！', '？':
			flush()
		}
	}
	flush()
	return sentences
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
