package embed

import (
	"context"
	"errors"
	"fmt"
	"os"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// VertexEmbedder is the Google Generative AI / Vertex embeddings backend of
// §6.7, adapted from pkg/memory/embeeding_vertex.go.
type VertexEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewVertexEmbedder(ctx context.Context, model string) (*VertexEmbedder, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("vertex embedder: missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("vertex embedder: %w", err)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	return &VertexEmbedder{client: client, model: client.EmbeddingModel(model)}, nil
}

func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := v.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("vertex embedder: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("vertex embedder: empty response")
	}
	return resp.Embedding.Values, nil
}

func (v *VertexEmbedder) Close() error { return v.client.Close() }
