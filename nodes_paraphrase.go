package runtime

import (
	"context"
	"strings"
)

var knownErrorTypes = []string{
	"TYPO_IN_COMMAND", "CIDR_NOT_SUPPORTED", "WRONG_MODE",
	"INCOMPLETE_COMMAND", "AMBIGUOUS_COMMAND", "UNKNOWN_COMMAND",
}

var preamblePrefixes = []string{
	"based on", "looking at", "according to the documentation",
	"based on the", "looking at the",
}

// paraphrase implements §4.4.4: a deterministic cleanup pass over
// feedback_message. On any LLM error or empty response it returns the
// input unchanged, never losing the answer.
func (g *AgentGraph) paraphrase(ctx context.Context, state *TurnState) string {
	input := state.FeedbackMessage
	if strings.TrimSpace(input) == "" {
		return input
	}

	systemPrompt := strings.Join([]string{
		"Rewrite the assistant message below for a student, following these rules exactly:",
		"- Strip any preamble such as \"Based on...\", \"Looking at...\", or \"According to the documentation...\".",
		"- Remove any internal identifier written in ALL_CAPS_SNAKE_CASE and any mention of a tool's name.",
		"- If the entire message is wrapped in quotes, remove the wrapping quotes.",
		"- Preserve code blocks, CLI examples, bullet structure, and any numeric or address content exactly as written.",
		"Return only the rewritten message, nothing else.",
	}, "\n")

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: input},
	}
	params := Params{Temperature: 0.1, TopP: 1, MaxTokens: 500}

	res, err := g.Gateway.Complete(ctx, messages, nil, params)
	if err != nil || strings.TrimSpace(res.Text) == "" {
		return input
	}

	cleaned := stripPreamble(res.Text)
	cleaned = stripErrorTypeTokens(cleaned, knownErrorTypes)
	cleaned = stripWrappingQuotes(cleaned)
	return cleaned
}

func stripPreamble(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, p := range preamblePrefixes {
		if strings.HasPrefix(lower, p) {
			if idx := strings.IndexAny(trimmed, ".:\n"); idx != -1 && idx+1 < len(trimmed) {
				return strings.TrimSpace(trimmed[idx+1:])
			}
		}
	}
	return trimmed
}

func stripWrappingQuotes(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		}
	}
	return trimmed
}
