package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m-tancredi/plai-rag/internal/embedding"
	"github.com/m-tancredi/plai-rag/internal/model"
)

type fakeDocs struct {
	docs       map[uuid.UUID]*model.Document
	searchable []model.Document
	findErr    error
}

func newFakeDocs(docs ...*model.Document) *fakeDocs {
	f := &fakeDocs{docs: make(map[uuid.UUID]*model.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
		f.searchable = append(f.searchable, *d)
	}
	return f
}

func (f *fakeDocs) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return doc, nil
}

func (f *fakeDocs) FindSearchable(ctx context.Context, ownerID uuid.UUID, kbID *uuid.UUID) ([]model.Document, error) {
	return f.searchable, nil
}

type fakeChunks struct {
	chunks map[uuid.UUID][]model.Chunk
}

func (f *fakeChunks) FindByDocumentID(ctx context.Context, docID uuid.UUID, limit, offset int) ([]model.Chunk, int64, error) {
	cs := f.chunks[docID]
	return cs, int64(len(cs)), nil
}

type fakeSearcher struct {
	hits []embedding.Hit
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, docIDs []uuid.UUID, topK int) ([]embedding.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

type fakeGenerator struct {
	answer     string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) ModelName() string { return "fake-llm" }

func searchableDoc(filename, text string) *model.Document {
	return &model.Document{
		BaseModel:         model.BaseModel{ID: uuid.New()},
		OwnerID:           uuid.New(),
		OriginalFilename:  filename,
		ContentType:       "text/plain",
		ExtractedText:     text,
		Status:            model.DocumentStatusProcessed,
		EmbeddingsCreated: true,
	}
}

func TestResolveScopeExplicitIDs(t *testing.T) {
	doc := searchableDoc("a.txt", "content")
	docs := newFakeDocs(doc, searchableDoc("b.txt", "other"))
	o := NewOrchestrator(docs, &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})

	scope, err := o.ResolveScope(context.Background(), doc.OwnerID, []uuid.UUID{doc.ID}, nil)
	require.NoError(t, err)
	require.Len(t, scope, 1)
	assert.Equal(t, doc.ID, scope[0].ID)
}

func TestResolveScopeUnknownIDFails(t *testing.T) {
	docs := newFakeDocs(searchableDoc("a.txt", "content"))
	o := NewOrchestrator(docs, &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})

	_, err := o.ResolveScope(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, nil)
	assert.Error(t, err)
}

func TestResolveScopeDefaultsToSearchable(t *testing.T) {
	docs := newFakeDocs(searchableDoc("a.txt", "x"), searchableDoc("b.txt", "y"))
	o := NewOrchestrator(docs, &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})

	scope, err := o.ResolveScope(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, scope, 2)
}

func TestRetrieveEmptyScope(t *testing.T) {
	o := NewOrchestrator(newFakeDocs(), &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})

	hits, err := o.Retrieve(context.Background(), "query", nil, 5)
	assert.NoError(t, err)
	assert.Nil(t, hits)
}

func TestBuildContextAttributionAndBound(t *testing.T) {
	doc := searchableDoc("report.pdf", "")
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{},
		Config{MaxContextChars: 200})

	hits := []embedding.Hit{
		{Text: "first chunk text", DocumentID: doc.ID, ChunkIndex: 0},
		{Text: "second chunk text", DocumentID: doc.ID, ChunkIndex: 3},
		{Text: strings.Repeat("overflowing ", 40), DocumentID: doc.ID, ChunkIndex: 4},
	}
	docsByID := map[uuid.UUID]model.Document{doc.ID: *doc}

	out, used := o.BuildContext(hits, docsByID)
	assert.Contains(t, out, "[Source: report.pdf, chunk 0]")
	assert.Contains(t, out, "[Source: report.pdf, chunk 3]")
	assert.Contains(t, out, "first chunk text")
	assert.NotContains(t, out, "overflowing")
	assert.LessOrEqual(t, len(out), 200)
	// Only the hits that fit are reported as used.
	require.Len(t, used, 2)
	assert.Equal(t, hits[:2], used)
}

func TestBuildContextUnknownDocumentFallsBackToID(t *testing.T) {
	o := NewOrchestrator(newFakeDocs(), &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})
	id := uuid.New()

	out, _ := o.BuildContext([]embedding.Hit{{Text: "text", DocumentID: id}}, nil)
	assert.Contains(t, out, id.String())
}

func TestChatGrounded(t *testing.T) {
	doc := searchableDoc("notes.txt", "The warranty period is two years.")
	gen := &fakeGenerator{answer: "The warranty lasts two years."}
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "The warranty period is two years.", Score: 0.92, DocumentID: doc.ID, ChunkIndex: 0},
	}}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, gen, Config{})

	resp, err := o.Chat(context.Background(), &ChatRequest{
		OwnerID: doc.OwnerID,
		Query:   "how long is the warranty?",
	})
	require.NoError(t, err)

	assert.Equal(t, "The warranty lasts two years.", resp.Answer)
	assert.False(t, resp.Ungrounded)
	assert.False(t, resp.Fallback)
	assert.Equal(t, "fake-llm", resp.Model)
	require.Len(t, resp.ContextChunks, 1)
	assert.Equal(t, doc.ID, resp.ContextChunks[0].SourceID)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "notes.txt", resp.Sources[0].Filename)
	assert.GreaterOrEqual(t, resp.ProcessingTime, 0.0)

	assert.Contains(t, gen.lastSystem, "provided document context")
	assert.Contains(t, gen.lastUser, "The warranty period is two years.")
	assert.Contains(t, gen.lastUser, "how long is the warranty?")
}

func TestChatUngroundedWhenNoDocuments(t *testing.T) {
	gen := &fakeGenerator{answer: "General knowledge answer."}
	o := NewOrchestrator(newFakeDocs(), &fakeChunks{}, &fakeSearcher{}, gen, Config{})

	resp, err := o.Chat(context.Background(), &ChatRequest{
		OwnerID: uuid.New(),
		Query:   "what is photosynthesis?",
	})
	require.NoError(t, err)

	assert.True(t, resp.Ungrounded)
	assert.NotEmpty(t, resp.Note)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "General knowledge answer.", resp.Answer)
	assert.Contains(t, gen.lastSystem, "No document context is available")
}

func TestChatLexicalFallbackOnSearchFailure(t *testing.T) {
	doc := searchableDoc("manual.txt",
		"Press the reset button to restart. The reset procedure takes a minute. Unrelated sentence about nothing.")
	gen := &fakeGenerator{answer: "Press the reset button."}
	searcher := &fakeSearcher{err: errors.New("index unavailable")}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, gen, Config{})

	resp, err := o.Chat(context.Background(), &ChatRequest{
		OwnerID: doc.OwnerID,
		Query:   "reset button",
	})
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.NotEmpty(t, resp.Note)
	require.NotEmpty(t, resp.ContextChunks)
	assert.Contains(t, resp.ContextChunks[0].Text, "reset")
}

func TestChatContextChunksMatchPrompt(t *testing.T) {
	doc := searchableDoc("a.txt", "text")
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "fits in the prompt", Score: 0.9, DocumentID: doc.ID, ChunkIndex: 0},
		{Text: strings.Repeat("does not fit ", 20), Score: 0.8, DocumentID: doc.ID, ChunkIndex: 1},
	}}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, &fakeGenerator{answer: "a"},
		Config{MaxContextChars: 80})

	resp, err := o.Chat(context.Background(), &ChatRequest{OwnerID: doc.OwnerID, Query: "q"})
	require.NoError(t, err)

	// The second hit overflowed the context bound and was never shown to
	// the model, so it is not reported as a context chunk either.
	require.Len(t, resp.ContextChunks, 1)
	assert.Equal(t, "fits in the prompt", resp.ContextChunks[0].Text)
}

func TestChatGeneratorErrorIsReturned(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	o := NewOrchestrator(newFakeDocs(), &fakeChunks{}, &fakeSearcher{}, gen, Config{})

	_, err := o.Chat(context.Background(), &ChatRequest{OwnerID: uuid.New(), Query: "q"})
	assert.Error(t, err)
}

func TestChatDeduplicatesSources(t *testing.T) {
	doc := searchableDoc("a.txt", "text")
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "one", Score: 0.9, DocumentID: doc.ID, ChunkIndex: 0},
		{Text: "two", Score: 0.8, DocumentID: doc.ID, ChunkIndex: 1},
	}}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, &fakeGenerator{answer: "a"}, Config{})

	resp, err := o.Chat(context.Background(), &ChatRequest{OwnerID: doc.OwnerID, Query: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.ContextChunks, 2)
	assert.Len(t, resp.Sources, 1)
}

func TestSearchThresholdFiltering(t *testing.T) {
	doc := searchableDoc("a.txt", "text")
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "strong match", Score: 0.95, DocumentID: doc.ID, ChunkIndex: 0},
		{Text: "weak match", Score: 0.3, DocumentID: doc.ID, ChunkIndex: 1},
	}}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, &fakeGenerator{}, Config{})

	resp, err := o.Search(context.Background(), &SearchRequest{
		DocumentID:          doc.ID,
		Query:               "match",
		SimilarityThreshold: 0.4,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "strong match", resp.Results[0].Text)
	assert.Equal(t, 0.95, resp.Results[0].Relevance)
	assert.InDelta(t, 0.975, resp.Results[0].Confidence, 1e-9)
}

func TestSearchUnknownDocumentFails(t *testing.T) {
	o := NewOrchestrator(newFakeDocs(), &fakeChunks{}, &fakeSearcher{}, &fakeGenerator{}, Config{})

	_, err := o.Search(context.Background(), &SearchRequest{DocumentID: uuid.New(), Query: "q"})
	assert.Error(t, err)
}

func TestSearchOffsetsAndContextFromChunks(t *testing.T) {
	doc := searchableDoc("a.txt", "text")
	chunks := &fakeChunks{chunks: map[uuid.UUID][]model.Chunk{
		doc.ID: {
			{DocumentID: doc.ID, ChunkIndex: 0, Content: "previous chunk", StartOffset: 0, EndOffset: 14},
			{DocumentID: doc.ID, ChunkIndex: 1, Content: "matched chunk", StartOffset: 14, EndOffset: 27},
			{DocumentID: doc.ID, ChunkIndex: 2, Content: "following chunk", StartOffset: 27, EndOffset: 42},
		},
	}}
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "matched chunk", Score: 0.9, DocumentID: doc.ID, ChunkIndex: 1},
	}}
	o := NewOrchestrator(newFakeDocs(doc), chunks, searcher, &fakeGenerator{}, Config{})

	resp, err := o.Search(context.Background(), &SearchRequest{
		DocumentID:     doc.ID,
		Query:          "matched",
		IncludeContext: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	r := resp.Results[0]
	assert.Equal(t, 14, r.StartOffset)
	assert.Equal(t, 27, r.EndOffset)
	assert.Contains(t, r.Context, "previous chunk")
	assert.Contains(t, r.Context, "following chunk")
}

func TestSearchLexicalFallback(t *testing.T) {
	doc := searchableDoc("a.txt", "The invoice total is due in thirty days. Payment terms vary.")
	searcher := &fakeSearcher{err: errors.New("no index")}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, &fakeGenerator{}, Config{})

	resp, err := o.Search(context.Background(), &SearchRequest{DocumentID: doc.ID, Query: "invoice total"})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Text, "invoice")
}

func TestSearchLexicalFallbackSkipsChunkOffsets(t *testing.T) {
	doc := searchableDoc("a.txt", "The invoice total is due in thirty days. Payment terms vary.")
	chunks := &fakeChunks{chunks: map[uuid.UUID][]model.Chunk{
		doc.ID: {
			{DocumentID: doc.ID, ChunkIndex: 0, Content: "unrelated chunk", StartOffset: 100, EndOffset: 200},
			{DocumentID: doc.ID, ChunkIndex: 1, Content: "another chunk", StartOffset: 200, EndOffset: 300},
		},
	}}
	searcher := &fakeSearcher{err: errors.New("no index")}
	o := NewOrchestrator(newFakeDocs(doc), chunks, searcher, &fakeGenerator{}, Config{})

	resp, err := o.Search(context.Background(), &SearchRequest{
		DocumentID:     doc.ID,
		Query:          "invoice total",
		IncludeContext: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	require.NotEmpty(t, resp.Results)

	// Lexical hits index sentences; chunk rows at the same index are a
	// different thing and must not lend them offsets or context.
	for _, r := range resp.Results {
		assert.Zero(t, r.StartOffset)
		assert.Zero(t, r.EndOffset)
		assert.Empty(t, r.Context)
	}
}

func TestSearchClustering(t *testing.T) {
	doc := searchableDoc("a.txt", "text")
	searcher := &fakeSearcher{hits: []embedding.Hit{
		{Text: "a", Score: 0.9, DocumentID: doc.ID, ChunkIndex: 0, Vector: []float32{1, 0}},
		{Text: "b", Score: 0.8, DocumentID: doc.ID, ChunkIndex: 1, Vector: []float32{0.99, 0.01}},
		{Text: "c", Score: 0.7, DocumentID: doc.ID, ChunkIndex: 2, Vector: []float32{0, 1}},
	}}
	o := NewOrchestrator(newFakeDocs(doc), &fakeChunks{}, searcher, &fakeGenerator{}, Config{})

	resp, err := o.Search(context.Background(), &SearchRequest{
		DocumentID:       doc.ID,
		Query:            "q",
		EnableClustering: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, resp.Results[0].ClusterID, resp.Results[1].ClusterID)
	assert.NotEqual(t, resp.Results[0].ClusterID, resp.Results[2].ClusterID)
}

func TestSnippetTruncation(t *testing.T) {
	long := strings.Repeat("é", 400)
	out := snippet(long, 300)
	assert.Equal(t, 301, len([]rune(out)))
	assert.Equal(t, "short", snippet("short", 300))
}

func TestConfidenceBounds(t *testing.T) {
	assert.Equal(t, 1.0, confidence(1))
	assert.Equal(t, 0.0, confidence(-1))
	assert.Equal(t, 0.5, confidence(0))
	assert.Equal(t, 1.0, confidence(1.5))
	assert.Equal(t, 0.0, confidence(-2))
}

func ExampleOrchestrator_BuildContext() {
	docID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	o := NewOrchestrator(nil, nil, nil, nil, Config{MaxContextChars: 1000})

	out, _ := o.BuildContext([]embedding.Hit{
		{Text: "Chunk body.", DocumentID: docID, ChunkIndex: 2},
	}, map[uuid.UUID]model.Document{
		docID: {BaseModel: model.BaseModel{ID: docID}, OriginalFilename: "guide.md"},
	})
	fmt.Println(out)
	// Output:
	// [Source: guide.md, chunk 2]
	// Chunk body.
}
