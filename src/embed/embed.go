// Package embed implements the §4.8 Embedder: a pluggable text-to-vector
// provider used at both index-build time (cmd/indexer) and query time (the
// Retriever). Adapted from the teacher's src/memory/embed package: same
// Embedder interface and DummyEmbedder fallback, retargeted from
// conversational-memory embedding onto retrieval query/document embedding,
// with the provider set matching the §6.7 wire-level choices (OpenAI,
// Google Generative AI, Ollama) plus the local ONNX path.
package embed

import "context"

// Embedder is the seam between the core and whichever embeddings provider
// is configured (§6.7).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DummyEmbedder is a deterministic, network-free embedder used to back unit
// tests (§4.8 "a dummy/deterministic embedder backs unit tests").
type DummyEmbedder struct{ Dim int }

func NewDummyEmbedder(dim int) DummyEmbedder {
	if dim <= 0 {
		dim = 1024
	}
	return DummyEmbedder{Dim: dim}
}

func (d DummyEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, d.Dim)
	for i, ch := range []byte(text) {
		vec[i%d.Dim] += float32(ch) / 255.0
	}
	return vec, nil
}
