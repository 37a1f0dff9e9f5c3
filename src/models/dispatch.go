package models

import (
	"context"
	"fmt"

	core "github.com/netlab-tutor/tutor-core"
)

// Config mirrors the llm.* keys of §6.4: mode selects hosted vs. self_hosted,
// endpoint_url overrides the vendor default (required for self_hosted),
// model_name picks both the vendor (by prefix/name) and the model string
// passed to its SDK.
type Config struct {
	Mode        string
	EndpointURL string
	ModelName   string
	APIKey      string
	MaxTokens   int
	Retries     int
}

// New mirrors the teacher's NewLLMProvider dispatch, retargeted from the old
// Agent.Generate surface onto core.LLMGateway's Complete/Stream, and wrapped
// in the §5 retry policy for every vendor but the deterministic Dummy one.
func New(ctx context.Context, cfg Config) (core.LLMGateway, error) {
	var gw core.LLMGateway
	var err error

	switch vendorOf(cfg.ModelName) {
	case "dummy":
		return NewDummyGateway("dummy"), nil
	case "anthropic":
		gw = NewAnthropicGateway(cfg.APIKey, cfg.ModelName, cfg.MaxTokens)
	case "gemini":
		gw, err = NewGeminiGateway(ctx, cfg.APIKey, cfg.ModelName)
	case "ollama":
		gw, err = NewOllamaGateway(cfg.EndpointURL, cfg.ModelName, 0)
	case "openai":
		gw = NewOpenAIGateway(cfg.APIKey, openAIBaseURL(cfg), cfg.ModelName)
	default:
		return nil, fmt.Errorf("models: unknown provider for model %q", cfg.ModelName)
	}
	if err != nil {
		return nil, fmt.Errorf("models: init %s: %w", cfg.ModelName, err)
	}
	return WithRetry(gw, cfg.Retries), nil
}

func openAIBaseURL(cfg Config) string {
	if cfg.Mode == "self_hosted" {
		return cfg.EndpointURL
	}
	return ""
}

// vendorOf infers the SDK to dial from llm.model_name, the same way the
// teacher's provider string selected a constructor, but derived from the
// model name itself since §6.4 names no separate provider field.
func vendorOf(modelName string) string {
	switch {
	case modelName == "":
		return "dummy"
	case hasAnyPrefix(modelName, "claude"):
		return "anthropic"
	case hasAnyPrefix(modelName, "gemini"):
		return "gemini"
	case hasAnyPrefix(modelName, "llama", "mistral", "qwen", "phi", "gemma"):
		return "ollama"
	case hasAnyPrefix(modelName, "gpt", "o1", "o3", "o4"):
		return "openai"
	default:
		return "openai"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}
