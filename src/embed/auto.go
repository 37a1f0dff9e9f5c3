package embed

import (
	"context"
	"log"
	"net/url"
	"strings"
)

// NewFromEndpoint selects an Embedder backend from the §6.4
// embeddings.endpoint_url / embeddings.model_name configuration surface,
// mirroring the teacher's AutoEmbedder provider switch
// (src/memory/embed/embed.go) but driven by explicit config rather than
// environment-variable sniffing, since the §6.4 surface is exhaustive and
// configuration-owned.
func NewFromEndpoint(ctx context.Context, endpoint, model, apiKey string, dim int) Embedder {
	if endpoint == "" {
		if e, err := NewFastEmbedder(ctx, ""); err == nil {
			return e
		}
		log.Printf("embed: no endpoint configured and fastembed unavailable; falling back to DummyEmbedder")
		return NewDummyEmbedder(dim)
	}

	host := strings.ToLower(endpoint)
	switch {
	case strings.Contains(host, "generativelanguage.googleapis.com") || strings.Contains(host, "vertex"):
		if e, err := NewVertexEmbedder(ctx, model); err == nil {
			return e
		}
	case strings.Contains(host, "11434") || strings.Contains(host, "ollama"):
		if e, err := NewOllamaEmbedder(model); err == nil {
			return e
		}
	default:
		if u, err := url.Parse(endpoint); err == nil {
			base := u.Scheme + "://" + u.Host
			return NewOpenAIEmbedder(apiKey, base, model)
		}
	}

	log.Printf("embed: could not initialize configured backend for %q; falling back to DummyEmbedder", endpoint)
	return NewDummyEmbedder(dim)
}
