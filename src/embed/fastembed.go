//go:build !fastembed

package embed

import (
	"context"
	"fmt"
)

// FastEmbedder is the in-process ONNX embedder, tried whenever
// embeddings.endpoint_url is empty (§6.7).
// This build is the no-op stub; rebuild with -tags fastembed to link the
// real anush008/fastembed-go + onnxruntime_go implementation in
// fastembed_real.go. Mirrors the teacher's own stub/real split in
// src/memory/embed/fast_embed_stub.go exactly.
type FastEmbedder struct{}

func NewFastEmbedder(ctx context.Context, cacheDir string) (*FastEmbedder, error) {
	return nil, fmt.Errorf("fastembed support not included; rebuild with -tags fastembed")
}

func (FastEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("fastembed support not included")
}

func (FastEmbedder) Close() error { return nil }
