// Package models implements the §4.6 LLM Gateway against concrete
// providers, grounded on the teacher's pkg/models and src/models: one file
// per vendor SDK, a dispatch function mirroring NewLLMProvider, and a retry
// wrapper for the §5 backoff policy. Complete/Stream replace the teacher's
// single-shot Generate/GenerateStream, since §4.6 additionally threads tool
// schemas and tool-call results through both operations.
package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	core "github.com/netlab-tutor/tutor-core"
)

// OpenAIGateway is the hosted-mode default provider (§6.2), also serving any
// self-hosted endpoint that speaks the OpenAI chat-completions wire format
// (llm.mode=self_hosted with llm.endpoint_url set) since go-openai accepts a
// custom BaseURL.
type OpenAIGateway struct {
	client *openai.Client
	model  string
}

func NewOpenAIGateway(apiKey, baseURL, model string) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGateway{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *OpenAIGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: "empty choices"}
	}
	choice := resp.Choices[0].Message
	return core.CompletionResult{Text: choice.Content, ToolCalls: fromOpenAIToolCalls(choice.ToolCalls)}, nil
}

func (g *OpenAIGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk)
	errc := make(chan error, 1)

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
		Temperature: float32(params.Temperature),
		TopP:        float32(params.TopP),
		MaxTokens:   params.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		close(out)
		errc <- &core.LlmUnavailableError{Reason: err.Error()}
		close(errc)
		return out, errc
	}

	go func() {
		defer close(out)
		defer close(errc)
		defer stream.Close()

		calls := map[int]*core.ToolCall{}
		var order []int

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errc <- &core.LlmUnavailableError{Reason: err.Error()}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				select {
				case out <- core.StreamChunk{Kind: core.ChunkText, Delta: delta.Content}:
				case <-ctx.Done():
					return
				}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				call, seen := calls[idx]
				if !seen {
					call = &core.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: map[string]any{}}
					calls[idx] = call
					order = append(order, idx)
				}
				if tc.Function.Name != "" {
					call.Name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					call.Arguments["__raw"] = fmt.Sprint(call.Arguments["__raw"]) + tc.Function.Arguments
				}
			}
		}

		if len(order) > 0 {
			finalCalls := make([]core.ToolCall, 0, len(order))
			for _, idx := range order {
				call := calls[idx]
				if raw, ok := call.Arguments["__raw"].(string); ok {
					var args map[string]any
					if json.Unmarshal([]byte(raw), &args) == nil {
						call.Arguments = args
					} else {
						delete(call.Arguments, "__raw")
					}
				}
				finalCalls = append(finalCalls, *call)
			}
			select {
			case out <- core.StreamChunk{Kind: core.ChunkToolCalls, Calls: finalCalls}:
			case <-ctx.Done():
			}
		}
	}()

	return out, errc
}

func toOpenAIMessages(messages []core.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolCalls:  toOpenAIToolCalls(m.ToolCalls),
		}
	}
	return out
}

func toOpenAIToolCalls(calls []core.ToolCall) []openai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]openai.ToolCall, len(calls))
	for i, c := range calls {
		args, _ := json.Marshal(c.Arguments)
		out[i] = openai.ToolCall{
			ID:   c.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      c.Name,
				Arguments: string(args),
			},
		}
	}
	return out
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []core.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		var args map[string]any
		_ = json.Unmarshal([]byte(c.Function.Arguments), &args)
		out[i] = core.ToolCall{ID: c.ID, Name: c.Function.Name, Arguments: args}
	}
	return out
}

func toOpenAITools(tools []core.ToolSchema) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
