package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/m-tancredi/plai-rag/internal/storage"
)

// ErrArtifactNotFound is returned when a document has no persisted artifact.
var ErrArtifactNotFound = errors.New("embedding artifact not found")

// ArtifactMetadata describes the artifact's provenance.
type ArtifactMetadata struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// Artifact is the per-document persisted embedding record: one vector per
// chunk, the parallel chunk-text list, and metadata. Round-trips preserve
// vector shape and chunk list exactly.
type Artifact struct {
	Metadata ArtifactMetadata `json:"metadata"`
	Vectors  [][]float32      `json:"vectors"`
	Chunks   []string         `json:"chunks"`
}

func artifactPath(docID uuid.UUID) string {
	return path.Join("embeddings", docID.String()+".json")
}

// ArtifactStore persists artifacts through the byte storage layer.
type ArtifactStore struct {
	store storage.Store
}

func NewArtifactStore(store storage.Store) *ArtifactStore {
	return &ArtifactStore{store: store}
}

func (s *ArtifactStore) Save(docID uuid.UUID, vectors [][]float32, chunks []string, meta ArtifactMetadata) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("vectors (%d) and chunks (%d) length mismatch", len(vectors), len(chunks))
	}
	meta.DocumentID = docID.String()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&Artifact{Metadata: meta, Vectors: vectors, Chunks: chunks})
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return s.store.Save(artifactPath(docID), data)
}

func (s *ArtifactStore) Load(docID uuid.UUID) (*Artifact, error) {
	data, err := s.store.Read(artifactPath(docID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, docID)
		}
		return nil, err
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("unmarshal artifact %s: %w", docID, err)
	}
	if len(artifact.Vectors) != len(artifact.Chunks) {
		return nil, fmt.Errorf("artifact %s is inconsistent: %d vectors, %d chunks",
			docID, len(artifact.Vectors), len(artifact.Chunks))
	}
	return &artifact, nil
}

func (s *ArtifactStore) Delete(docID uuid.UUID) error {
	return s.store.Delete(artifactPath(docID))
}

func (s *ArtifactStore) Exists(docID uuid.UUID) bool {
	return s.store.Exists(artifactPath(docID))
}
