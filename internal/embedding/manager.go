package embedding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/storage"
)

// Manager is the embedding facade: it owns the lazily-initialized embedder,
// the per-document artifacts and the cached similarity indices. It is
// explicitly constructed and injected; there is no package-level instance.
type Manager struct {
	cfg       *ProviderConfig
	artifacts *ArtifactStore
	cache     *indexCache
	logger    *slog.Logger

	once     sync.Once
	embedder embedding.Embedder
	initErr  error
}

func NewManager(cfg *ProviderConfig, store storage.Store, indexCacheSize int) *Manager {
	return &Manager{
		cfg:       cfg,
		artifacts: NewArtifactStore(store),
		cache:     newIndexCache(indexCacheSize),
		logger:    slog.Default().With("component", "embedding_manager"),
	}
}

// Model returns the configured embedding model identifier.
func (m *Manager) Model() string {
	return m.cfg.Model
}

// embedderInstance initializes the provider once per process and reuses it.
func (m *Manager) embedderInstance(ctx context.Context) (embedding.Embedder, error) {
	m.once.Do(func() {
		m.logger.Info("initializing embedding provider",
			"provider", m.cfg.Kind, "model", m.cfg.Model)
		m.embedder, m.initErr = NewEmbedder(ctx, m.cfg)
	})
	if m.initErr != nil {
		return nil, &EmbeddingError{Err: m.initErr}
	}
	return m.embedder, nil
}

// CreateEmbeddings returns one vector per input text.
func (m *Manager) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, embeddingFailed("no texts to embed")
	}

	embedder, err := m.embedderInstance(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(raw) != len(texts) {
		return nil, embeddingFailed("provider returned %d vectors for %d texts", len(raw), len(texts))
	}

	vectors := make([][]float32, len(raw))
	for i, vec := range raw {
		if len(vec) == 0 {
			return nil, embeddingFailed("provider returned an empty vector at position %d", i)
		}
		vectors[i] = make([]float32, len(vec))
		for j, v := range vec {
			vectors[i][j] = float32(v)
		}
	}
	return vectors, nil
}

// SaveArtifact persists the per-document embedding artifact.
func (m *Manager) SaveArtifact(docID uuid.UUID, vectors [][]float32, chunks []string, meta ArtifactMetadata) error {
	if meta.Model == "" {
		meta.Model = m.cfg.Model
	}
	return m.artifacts.Save(docID, vectors, chunks, meta)
}

// LoadArtifact retrieves the persisted artifact for a document.
func (m *Manager) LoadArtifact(docID uuid.UUID) (*Artifact, error) {
	return m.artifacts.Load(docID)
}

// DeleteArtifact removes the artifact and drops any cached index whose scope
// contains the document.
func (m *Manager) DeleteArtifact(docID uuid.UUID) error {
	m.cache.invalidate(docID)
	return m.artifacts.Delete(docID)
}

// Invalidate drops cached indices containing the document. Callers that
// mutate documents or embeddings out of band must invoke this.
func (m *Manager) Invalidate(docID uuid.UUID) {
	m.cache.invalidate(docID)
}

// ClearCache drops all cached indices and mappings.
func (m *Manager) ClearCache() {
	m.cache.clear()
}

// BuildIndex loads and concatenates the artifacts for the given documents
// into a similarity index. Documents without artifacts are skipped with a
// warning; an empty result is an error.
func (m *Manager) BuildIndex(ctx context.Context, docIDs []uuid.UUID) (*Index, error) {
	index := newIndex()
	for _, docID := range docIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		artifact, err := m.artifacts.Load(docID)
		if err != nil {
			m.logger.Warn("skipping document without usable embeddings",
				"document_id", docID, "error", err)
			continue
		}
		index.add(docID, artifact.Vectors, artifact.Chunks)
	}

	if index.size() == 0 {
		return nil, ErrNoUsableEmbeddings
	}
	return index, nil
}

// Search embeds the query and runs it against a cached-or-built index keyed
// by the sorted document-id set. Results are in non-increasing score order.
func (m *Manager) Search(ctx context.Context, query string, docIDs []uuid.UUID, topK int) ([]Hit, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	key := cacheKey(docIDs)
	index, ok := m.cache.get(key)
	if !ok {
		built, err := m.BuildIndex(ctx, docIDs)
		if err != nil {
			return nil, err
		}
		m.cache.put(key, docIDs, built)
		index = built
	}

	queryVectors, err := m.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	return index.search(queryVectors[0], topK), nil
}
