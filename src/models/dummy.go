package models

import (
	"context"
	"strings"

	core "github.com/netlab-tutor/tutor-core"
)

// DummyGateway is a deterministic, dependency-free core.LLMGateway: no
// network calls, no API key. cmd/tutor selects it when llm.model_name is
// empty, for demos and tests run without vendor credentials.
type DummyGateway struct {
	Prefix string
}

func NewDummyGateway(prefix string) *DummyGateway {
	if prefix == "" {
		prefix = "Dummy response:"
	}
	return &DummyGateway{Prefix: prefix}
}

func (g *DummyGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	return core.CompletionResult{Text: g.Prefix + " " + lastUserLine(messages)}, nil
}

func (g *DummyGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk, 1)
	errc := make(chan error, 1)
	text := g.Prefix + " " + lastUserLine(messages)
	out <- core.StreamChunk{Kind: core.ChunkText, Delta: text}
	close(out)
	close(errc)
	return out, errc
}

func lastUserLine(messages []core.Message) string {
	if len(messages) == 0 {
		return ""
	}
	content := messages[len(messages)-1].Content
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
