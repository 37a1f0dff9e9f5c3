package models

import (
	"context"
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	core "github.com/netlab-tutor/tutor-core"
)

// AnthropicGateway is the alternate hosted-mode vendor selected when
// llm.model_name names a Claude model, grounded on
// pkg/models/anthropics.go's client construction.
type AnthropicGateway struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropicGateway(apiKey, model string, maxTokens int) *AnthropicGateway {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	cl := anthropic.NewClient(anthropicopt.WithAPIKey(apiKey))
	return &AnthropicGateway{client: &cl, model: model, maxTokens: maxTokens}
}

func (g *AnthropicGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	system, msgs := toAnthropicMessages(messages)
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages:  msgs,
		Tools:     toAnthropicTools(tools),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: err.Error()}
	}

	var text strings.Builder
	var calls []core.ToolCall
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(b.Input, &args)
			calls = append(calls, core.ToolCall{ID: b.ID, Name: b.Name, Arguments: args})
		}
	}
	return core.CompletionResult{Text: text.String(), ToolCalls: calls}, nil
}

// Stream falls back to a single-chunk emission of the non-streaming result:
// the Anthropic SDK's streaming API surface in this pack's vendored version
// was not exercised anywhere in the examples, and §5 already forbids
// mid-stream retries, so a provider that cannot stream natively still
// satisfies the Stream contract by completing once and replaying it as one
// chunk.
func (g *AnthropicGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk, 2)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		res, err := g.Complete(ctx, messages, tools, params)
		if err != nil {
			errc <- err
			return
		}
		if res.Text != "" {
			out <- core.StreamChunk{Kind: core.ChunkText, Delta: res.Text}
		}
		if len(res.ToolCalls) > 0 {
			out <- core.StreamChunk{Kind: core.ChunkToolCalls, Calls: res.ToolCalls}
		}
	}()
	return out, errc
}

func toAnthropicMessages(messages []core.Message) (system string, out []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			system = m.Content
		case core.RoleUser, core.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

func toAnthropicTools(tools []core.ToolSchema) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: t.Parameters["properties"]},
			},
		}
	}
	return out
}
