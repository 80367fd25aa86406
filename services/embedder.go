package services

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github/itish2003/finrag/config"
)

// Embedder maps text to dense vectors. It matches langchaingo's embeddings.Embedder.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder builds a batching embedder over an Ollama or OpenAI compatible server.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case config.EmbeddingOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("could not create openai embedding client: %w", err)
		}
		client = llm
	default:
		llm, err := ollama.New(ollama.WithServerURL(cfg.BaseURL), ollama.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("could not create ollama embedding client: %w", err)
		}
		client = llm
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("could not create embedder: %w", err)
	}
	return embedder, nil
}
