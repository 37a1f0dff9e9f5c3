//go:build fastembed

package embed

import (
	"context"
	"fmt"
	"runtime"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedder is the real, in-process ONNX embedder (requires building
// with -tags fastembed, since fastembed-go pulls in onnxruntime_go's cgo
// bindings). Adapted from pkg/memory/embed/fast_embed.go with the batch
// passage-embedding path dropped: the Retriever only ever embeds one query
// or one chunk at a time through the Embedder interface.
type FastEmbedder struct {
	m  *fastembed.FlagEmbedding
	bs int
}

func NewFastEmbedder(ctx context.Context, cacheDir string) (*FastEmbedder, error) {
	m, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{CacheDir: cacheDir})
	if err != nil {
		return nil, fmt.Errorf("fastembed: %w", err)
	}
	bs := 4 * runtime.GOMAXPROCS(0)
	return &FastEmbedder{m: m, bs: bs}, nil
}

func (e *FastEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.m.QueryEmbed(text)
}

func (e *FastEmbedder) Close() error {
	if e.m != nil {
		e.m.Destroy()
	}
	return nil
}
