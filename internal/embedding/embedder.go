// Package embedding computes, persists and searches vector embeddings for
// document chunks.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// EmbeddingError wraps a provider failure or an empty provider result.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

func embeddingFailed(format string, args ...interface{}) error {
	return &EmbeddingError{Err: fmt.Errorf(format, args...)}
}

type ProviderKind string

const (
	ProviderOpenAI     ProviderKind = "openai"
	ProviderCompatible ProviderKind = "openai_compatible"
	ProviderLocal      ProviderKind = "local"
)

// ProviderConfig selects and configures the embedding provider.
type ProviderConfig struct {
	Kind       ProviderKind
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// NewEmbedder builds an eino embedder for the configured provider. The local
// provider needs no network and is used for development and tests.
func NewEmbedder(ctx context.Context, cfg *ProviderConfig) (embedding.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is nil")
	}

	switch cfg.Kind {
	case ProviderOpenAI, ProviderCompatible:
		conf := &openaiembed.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}
		if cfg.Dimensions > 0 {
			dims := cfg.Dimensions
			conf.Dimensions = &dims
		}
		return openaiembed.NewEmbedder(ctx, conf)
	case ProviderLocal:
		return NewLocalEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Kind)
	}
}

// LocalEmbedder produces deterministic token-hash vectors. Not a semantic
// model; it keeps the pipeline runnable without a remote provider.
type LocalEmbedder struct {
	dim int
}

func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &LocalEmbedder{dim: dim}
}

func (e *LocalEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *LocalEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dim)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
