package models

import (
	"context"
	"math/rand"
	"time"

	core "github.com/netlab-tutor/tutor-core"
)

const (
	retryBaseline = 250 * time.Millisecond
	retryJitter   = 50 * time.Millisecond
)

// RetryGateway wraps another core.LLMGateway with the §5 backoff policy:
// up to Retries attempts after the first, each delayed by retryBaseline
// plus or minus retryJitter. Only Complete is retried — Stream passes
// through unwrapped, since a mid-stream failure has already delivered
// partial chunks to the caller and retrying would duplicate them.
type RetryGateway struct {
	inner   core.LLMGateway
	retries int
}

func WithRetry(inner core.LLMGateway, retries int) *RetryGateway {
	if retries <= 0 {
		retries = 2
	}
	return &RetryGateway{inner: inner, retries: retries}
}

func (g *RetryGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	var result core.CompletionResult
	var err error
	for attempt := 0; attempt <= g.retries; attempt++ {
		result, err = g.inner.Complete(ctx, messages, tools, params)
		if err == nil {
			return result, nil
		}
		if attempt == g.retries {
			break
		}
		select {
		case <-time.After(retryBaseline + jitter()):
		case <-ctx.Done():
			return core.CompletionResult{}, ctx.Err()
		}
	}
	return core.CompletionResult{}, err
}

func (g *RetryGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	return g.inner.Stream(ctx, messages, tools, params)
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(2*retryJitter))) - retryJitter
}
