package runtime

import "fmt"

// Error kinds per SPEC_FULL.md §7. Only LlmUnavailable and PatternLoadError
// ever surface as a user-visible `error` event; the rest are handled
// locally by the node that produced them.

// LlmUnavailableError means the LLM provider failed after the retry policy
// in §5 was exhausted (5xx or timeout).
type LlmUnavailableError struct {
	Reason string
}

func (e *LlmUnavailableError) Error() string {
	return fmt.Sprintf("llm_unavailable: %s", e.Reason)
}

// PatternLoadError names the offending pattern_id/field; fatal at startup.
type PatternLoadError struct {
	PatternID string
	Field     string
	Reason    string
}

func (e *PatternLoadError) Error() string {
	return fmt.Sprintf("pattern load error: pattern_id=%q field=%q: %s", e.PatternID, e.Field, e.Reason)
}

// IndexUnavailableError means the retrieval source is missing/unreadable.
// Non-fatal per turn: the retriever returns an empty list and sets
// RetrievalUnavailable=true instead of propagating this.
type IndexUnavailableError struct {
	Reason string
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("index_unavailable: %s", e.Reason)
}

// ToolTimeoutError / ToolFailureError are never bubbled as a Go error to the
// turn; the tool executor turns them into a "tool_error: <reason>" string
// handed back to the model.
type ToolTimeoutError struct {
	Tool string
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("tool_timeout: %s", e.Tool)
}

type ToolFailureError struct {
	Tool   string
	Reason string
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("tool_failure: %s: %s", e.Tool, e.Reason)
}

// MissingVariableError means a template referenced a group the match did
// not produce; the offending pattern is disabled for that detection call.
type MissingVariableError struct {
	PatternID string
	Variable  string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing_variable: pattern=%q var=%q", e.PatternID, e.Variable)
}

// CancelledError means the transport went away mid-turn.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "cancelled" }
