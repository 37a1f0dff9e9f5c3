package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	ollama "github.com/ollama/ollama/api"

	core "github.com/netlab-tutor/tutor-core"
)

// OllamaGateway is the self-hosted provider (llm.mode=self_hosted), grounded
// on this file's previous OLLAMA_HOST/http.Client construction but rebuilt
// on the chat endpoint rather than the bare completion endpoint, since §4.6
// requires tool-call support the generate endpoint does not offer.
type OllamaGateway struct {
	client *ollama.Client
	model  string
}

func NewOllamaGateway(endpointURL, model string, timeout time.Duration) (*OllamaGateway, error) {
	host := endpointURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama gateway: invalid endpoint %q: %w", host, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := ollama.NewClient(u, &http.Client{Timeout: timeout})
	return &OllamaGateway{client: client, model: model}, nil
}

func (g *OllamaGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	var result core.CompletionResult
	stream := false
	req := &ollama.ChatRequest{
		Model:    g.model,
		Messages: toOllamaMessages(messages),
		Tools:    toOllamaTools(tools),
		Stream:   &stream,
		Options:  toOllamaOptions(params),
	}
	err := g.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		result.Text += resp.Message.Content
		result.ToolCalls = append(result.ToolCalls, fromOllamaToolCalls(resp.Message.ToolCalls)...)
		return nil
	})
	if err != nil {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: err.Error()}
	}
	return result, nil
}

func (g *OllamaGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		stream := true
		req := &ollama.ChatRequest{
			Model:    g.model,
			Messages: toOllamaMessages(messages),
			Tools:    toOllamaTools(tools),
			Stream:   &stream,
			Options:  toOllamaOptions(params),
		}
		err := g.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
			if resp.Message.Content != "" {
				select {
				case out <- core.StreamChunk{Kind: core.ChunkText, Delta: resp.Message.Content}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if calls := fromOllamaToolCalls(resp.Message.ToolCalls); len(calls) > 0 {
				select {
				case out <- core.StreamChunk{Kind: core.ChunkToolCalls, Calls: calls}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			errc <- &core.LlmUnavailableError{Reason: err.Error()}
		}
	}()

	return out, errc
}

func toOllamaMessages(messages []core.Message) []ollama.Message {
	out := make([]ollama.Message, len(messages))
	for i, m := range messages {
		out[i] = ollama.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func toOllamaTools(tools []core.ToolSchema) ollama.Tools {
	if len(tools) == 0 {
		return nil
	}
	out := make(ollama.Tools, len(tools))
	for i, t := range tools {
		out[i] = ollama.Tool{
			Type: "function",
			Function: ollama.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
			},
		}
	}
	return out
}

func fromOllamaToolCalls(calls []ollama.ToolCall) []core.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = core.ToolCall{Name: c.Function.Name, Arguments: map[string]any(c.Function.Arguments)}
	}
	return out
}

func toOllamaOptions(params core.Params) map[string]any {
	opts := map[string]any{}
	if params.Temperature != 0 {
		opts["temperature"] = params.Temperature
	}
	if params.TopP != 0 {
		opts["top_p"] = params.TopP
	}
	if params.MaxTokens != 0 {
		opts["num_predict"] = params.MaxTokens
	}
	return opts
}
