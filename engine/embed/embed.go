// Package embed wraps the OpenAI embeddings API. When no API key is
// configured the service degrades to zero vectors so the rest of the pipeline
// keeps working in development.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/contextgraph/context-graph/pkg/resilience"
)

// Service produces embedding vectors of a fixed dimension.
type Service struct {
	client     openai.Client
	configured bool
	model      string
	dims       int
	limiter    *resilience.Limiter
	log        *slog.Logger
}

// New builds the embedding service. An empty apiKey yields an unconfigured
// service that returns zero vectors.
func New(apiKey, model string, dims int, limiter *resilience.Limiter, log *slog.Logger) *Service {
	s := &Service{model: model, dims: dims, limiter: limiter, log: log}
	if apiKey != "" {
		s.client = openai.NewClient(option.WithAPIKey(apiKey))
		s.configured = true
	} else {
		log.Warn("embedding service unconfigured, using zero vectors")
	}
	return s
}

// Configured reports whether a real provider is behind the service.
func (s *Service) Configured() bool { return s.configured }

// Dimensions returns the vector width.
func (s *Service) Dimensions() int { return s.dims }

// EmbedText embeds a single string.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts embeds a batch, restoring input order from the provider's index
// field.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !s.configured {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = make([]float32, s.dims)
		}
		return out, nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
