package retrieval

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/model"
)

func textDoc(text string) model.Document {
	return model.Document{
		BaseModel:     model.BaseModel{ID: uuid.New()},
		ExtractedText: text,
	}
}

func TestLexicalSearchRanksByOverlap(t *testing.T) {
	doc := textDoc("The cat sat on the mat. Dogs bark loudly at night. A cat and a dog live here.")

	hits := lexicalSearch("cat dog", []model.Document{doc}, 10)
	require.NotEmpty(t, hits)

	// The sentence containing both terms outranks single-term sentences.
	assert.Contains(t, hits[0].Text, "cat and a dog")
	assert.Equal(t, 1.0, hits[0].Score)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestLexicalSearchExactPhraseBoost(t *testing.T) {
	doc := textDoc("Reset the system now. The system reset completed.")

	hits := lexicalSearch("system reset", []model.Document{doc}, 10)
	require.Len(t, hits, 2)

	// Both sentences match both terms; the exact phrase wins on the boost.
	assert.Contains(t, hits[0].Text, "system reset")
	assert.Equal(t, 1.5, hits[0].Score)
	assert.Equal(t, 1.0, hits[1].Score)
}

func TestLexicalSearchNoMatches(t *testing.T) {
	doc := textDoc("Nothing relevant in this text.")

	assert.Empty(t, lexicalSearch("quantum entanglement", []model.Document{doc}, 5))
	assert.Empty(t, lexicalSearch("", []model.Document{doc}, 5))
	assert.Empty(t, lexicalSearch("relevant", []model.Document{doc}, 0))
}

func TestLexicalSearchTopKBound(t *testing.T) {
	doc := textDoc("alpha one. alpha two. alpha three. alpha four. alpha five.")

	hits := lexicalSearch("alpha", []model.Document{doc}, 3)
	assert.Len(t, hits, 3)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First. Second!\nThird? 四つ目。 Fifth")
	assert.Equal(t, []string{"First.", "Second!", "Third?", "四つ目。", "Fifth"}, got)
	assert.Empty(t, splitSentences("   "))
}

func TestOverlapScorePartial(t *testing.T) {
	termSet := map[string]struct{}{"red": {}, "green": {}, "blue": {}, "yellow": {}}

	score := overlapScore("the red and blue flags", termSet, len(termSet))
	assert.Equal(t, 0.5, score)
}

func TestClusterHitsGroupsSimilarVectors(t *testing.T) {
	hits := []embedding.Hit{
		{Vector: []float32{1, 0}},
		{Vector: []float32{0.95, 0.05}},
		{Vector: []float32{0, 1}},
		{Vector: nil},
		{Vector: nil},
	}

	clusters := clusterHits(hits)
	require.Len(t, clusters, 5)
	assert.Equal(t, clusters[0], clusters[1])
	assert.NotEqual(t, clusters[0], clusters[2])

	// Lexical hits without vectors never share a cluster.
	assert.NotEqual(t, clusters[3], clusters[4])
	assert.NotEqual(t, clusters[3], clusters[0])
}

func TestHighlightSpans(t *testing.T) {
	spans := highlightSpans("The Cat chased another cat", "cat")
	assert.Equal(t, []Span{{Start: 4, End: 7}, {Start: 23, End: 26}}, spans)

	assert.Nil(t, highlightSpans("text", ""))
	assert.Empty(t, highlightSpans("no match here", "zebra"))
}

func TestHighlightSpansRuneOffsets(t *testing.T) {
	spans := highlightSpans("héllo wörld wörld", "wörld")
	assert.Equal(t, []Span{{Start: 6, End: 11}, {Start: 12, End: 17}}, spans)
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"how does chunking work", "explanation"},
		{"why is the sky blue", "explanation"},
		{"what is the warranty period", "question"},
		{"is this covered?", "question"},
		{"summarize the report", "command"},
		{"list all payment terms", "command"},
		{"compare plan a and plan b", "command"},
		{"warranty period", "keyword"},
		{"", "keyword"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyIntent(tt.query), "query %q", tt.query)
	}
}
