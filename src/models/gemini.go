package models

import (
	"context"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	core "github.com/netlab-tutor/tutor-core"
)

// GeminiGateway is the second alternate hosted vendor, grounded on
// pkg/models/gemini.go's client construction and pkg/memory/embeeding_vertex.go's
// API-key resolution order.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini gateway init: %w", err)
	}
	return &GeminiGateway{client: client, model: model}, nil
}

func (g *GeminiGateway) Complete(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (core.CompletionResult, error) {
	model := g.newModel(tools, params)
	cs := model.StartChat()
	history, last := toGeminiHistory(messages)
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: err.Error()}
	}
	return fromGeminiResponse(resp)
}

func (g *GeminiGateway) Stream(ctx context.Context, messages []core.Message, tools []core.ToolSchema, params core.Params) (<-chan core.StreamChunk, <-chan error) {
	out := make(chan core.StreamChunk)
	errc := make(chan error, 1)

	model := g.newModel(tools, params)
	cs := model.StartChat()
	history, last := toGeminiHistory(messages)
	cs.History = history

	iter := cs.SendMessageStream(ctx, genai.Text(last))

	go func() {
		defer close(out)
		defer close(errc)
		for {
			resp, err := iter.Next()
			if err != nil {
				if err.Error() == "no more items in iterator" {
					return
				}
				errc <- &core.LlmUnavailableError{Reason: err.Error()}
				return
			}
			result, err := fromGeminiResponse(resp)
			if err != nil {
				errc <- err
				return
			}
			if result.Text != "" {
				select {
				case out <- core.StreamChunk{Kind: core.ChunkText, Delta: result.Text}:
				case <-ctx.Done():
					return
				}
			}
			if len(result.ToolCalls) > 0 {
				select {
				case out <- core.StreamChunk{Kind: core.ChunkToolCalls, Calls: result.ToolCalls}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, errc
}

func (g *GeminiGateway) newModel(tools []core.ToolSchema, params core.Params) *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.model)
	model.Temperature = genai.Ptr(float32(params.Temperature))
	model.TopP = genai.Ptr(float32(params.TopP))
	if params.MaxTokens > 0 {
		model.MaxOutputTokens = genai.Ptr(int32(params.MaxTokens))
	}
	for _, t := range tools {
		model.Tools = append(model.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
			}},
		})
	}
	return model
}

func toGeminiHistory(messages []core.Message) (history []*genai.Content, last string) {
	for i, m := range messages {
		if i == len(messages)-1 && m.Role == core.RoleUser {
			last = m.Content
			continue
		}
		role := "user"
		if m.Role == core.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, last
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (core.CompletionResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return core.CompletionResult{}, &core.LlmUnavailableError{Reason: "gemini: empty response"}
	}
	var text string
	var calls []core.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text += string(p)
		case genai.FunctionCall:
			calls = append(calls, core.ToolCall{Name: p.Name, Arguments: p.Args})
		}
	}
	return core.CompletionResult{Text: text, ToolCalls: calls}, nil
}
