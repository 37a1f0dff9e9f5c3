package runtime

import "context"

// ToolSpec is the catalog-facing description of a tool, convertible to a
// ToolSchema for the LLM Gateway.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

func (s ToolSpec) Schema() ToolSchema {
	return ToolSchema{Name: s.Name, Description: s.Description, Parameters: s.Parameters}
}

// Tool is a typed, schema-validated dispatcher target (§4.5). Implementations
// never return a Go error to the caller for expected failure modes (timeout,
// simulator 5xx, bad arguments) — those are encoded into the returned string
// as "tool_error: <reason>" so the model can keep going; Execute only
// returns an error for genuinely unexpected situations (e.g. ctx cancelled).
type Tool interface {
	Spec() ToolSpec
	Execute(ctx context.Context, arguments map[string]any) (string, error)
}

// ToolCatalog is the dispatcher's registry contract.
type ToolCatalog interface {
	Lookup(name string) (Tool, ToolSpec, bool)
	Specs() []ToolSpec
	Tools() []Tool
}
