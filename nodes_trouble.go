package runtime

import (
	"context"
	"fmt"
	"strings"

	gotoon "github.com/alpkeskin/gotoon"
)

// cliActivityRow is the compact, TOON-encoded shape of one terminal-activity
// line rendered into the troubleshooting system prompt (§4.4.3
// pre-processing). Using gotoon here mirrors the teacher's own
// `json "github.com/alpkeskin/gotoon"` rendering of structured context into
// prompts, token-efficient compared to pretty-printed JSON.
type cliActivityRow struct {
	Command   string `json:"command"`
	Output    string `json:"output"`
	ErrorType string `json:"error_type,omitempty"`
	Diagnosis string `json:"diagnosis,omitempty"`
	Fix       string `json:"fix,omitempty"`
}

// runDetection runs the Error Detector over the last Limits.CLIHistoryEntries
// CLI entries and fills state.CLIDiagnoses, index-aligned to the window per
// §3's invariant (diagnoses recomputed every turn, per the Open Question
// resolution).
func (g *AgentGraph) runDetection(state *TurnState) []CLIEntry {
	window := RecentCLI(state.CLIHistory, g.Limits.CLIHistoryEntries)
	diagnoses := make([]*DetectionResult, len(window))
	for i, entry := range window {
		diagnoses[i] = g.Detector.Detect(entry.Command, entry.Output)
	}
	state.CLIDiagnoses = diagnoses
	return window
}

func anyDiagnosed(diagnoses []*DetectionResult) bool {
	for _, d := range diagnoses {
		if d != nil && d.Matched {
			return true
		}
	}
	return false
}

func renderTerminalActivity(window []CLIEntry, diagnoses []*DetectionResult) string {
	rows := make([]cliActivityRow, len(window))
	for i, entry := range window {
		row := cliActivityRow{Command: entry.Command, Output: entry.Output}
		if i < len(diagnoses) && diagnoses[i] != nil && diagnoses[i].Matched {
			row.ErrorType = diagnoses[i].ErrorType
			row.Diagnosis = diagnoses[i].Diagnosis
			row.Fix = diagnoses[i].Fix
		}
		rows[i] = row
	}
	encoded, err := gotoon.Encode(rows)
	if err != nil {
		// Encoding a plain slice of scalar-field structs never fails in
		// practice; fall back to a placeholder line rather than panic.
		return "(terminal activity unavailable)"
	}
	return encoded
}

func renderDocsByClass(docs []RetrievedDoc) string {
	byClass := map[DocClass][]RetrievedDoc{}
	var order []DocClass
	for _, d := range docs {
		if _, seen := byClass[d.DocClass]; !seen {
			order = append(order, d.DocClass)
		}
		byClass[d.DocClass] = append(byClass[d.DocClass], d)
	}
	var b strings.Builder
	for _, class := range order {
		fmt.Fprintf(&b, "## %s\n", class)
		b.WriteString(renderDocs(byClass[class]))
	}
	if b.Len() == 0 {
		return "(no retrieved documents)"
	}
	return b.String()
}

func buildTroubleshootingSystemPrompt(state *TurnState, window []CLIEntry, toolsEnabled bool) string {
	var b strings.Builder
	b.WriteString("You are a network-engineering tutor helping a student debug a Cisco IOS CLI session.\n")
	b.WriteString(masteryTone(state.MasteryLevel))
	b.WriteString("\n\nTreat the terminal activity block below as ground truth; never contradict it.\n")
	b.WriteString("Never suggest CIDR notation (e.g. /24) for an IOS subnet mask; always give the dotted-decimal form.\n")
	b.WriteString("If a diagnosis is already present for a command, paraphrase it for the student — do not re-derive it from scratch.\n")
	if toolsEnabled {
		b.WriteString("You may call get_device_running_config if you need to see the device's current configuration.\n")
	}
	b.WriteString("\nTerminal activity:\n")
	b.WriteString(renderTerminalActivity(window, state.CLIDiagnoses))
	b.WriteString("\n\nRetrieved reference material:\n")
	b.WriteString(renderDocsByClass(state.RetrievedDocs))
	if state.RetrievalUnavailable {
		b.WriteString("\n(Retrieval was unavailable this turn; answer from general Cisco IOS knowledge and the terminal activity above.)\n")
	}
	return b.String()
}

// runTroubleshootingFeedback implements §4.4.3. onToolInfo, if non-nil, is
// invoked with an info phase string each time a tool is about to run
// ("tool:get_device_running_config"), for the streaming driver's info
// events.
func (g *AgentGraph) runTroubleshootingFeedback(ctx context.Context, state *TurnState, onToolInfo func(string)) error {
	window := g.runDetection(state)
	toolsEnabled := !anyDiagnosed(state.CLIDiagnoses)

	systemPrompt := buildTroubleshootingSystemPrompt(state, window, toolsEnabled)
	messages := buildMessages(systemPrompt, state, g.Limits)

	var tools []ToolSchema
	if toolsEnabled && g.Tools != nil {
		for _, spec := range g.Tools.Specs() {
			tools = append(tools, spec.Schema())
		}
	}

	params := Params{Temperature: 0.3, TopP: 1, MaxTokens: 600}

	maxIter := g.Limits.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		res, err := g.Gateway.Complete(ctx, messages, tools, params)
		if err != nil {
			return err
		}
		if len(res.ToolCalls) == 0 || !toolsEnabled {
			state.FeedbackMessage = res.Text
			return nil
		}

		assistantMsg := Message{Role: RoleAssistant, Content: res.Text, ToolCalls: res.ToolCalls}
		messages = append(messages, assistantMsg)

		for _, call := range res.ToolCalls {
			if onToolInfo != nil {
				onToolInfo("tool:" + call.Name)
			}
			result := g.executeTool(ctx, state, call)
			messages = append(messages, Message{Role: RoleTool, Content: result, ToolCallID: call.ID})
		}
	}

	// Iteration limit reached without a text completion: one final non-tool
	// streaming call with the accumulated tool outputs (§4.4.3 step 3). The
	// chunks are accumulated into FeedbackMessage, not emitted directly: on
	// the troubleshooting path only the paraphrased final message reaches a
	// content event (StreamingDriver.emitFinalAsContent).
	chunks, errc := g.Gateway.Stream(ctx, messages, nil, params)
	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Kind == ChunkText {
			sb.WriteString(chunk.Delta)
		}
	}
	if err := <-errc; err != nil {
		return err
	}
	state.FeedbackMessage = sb.String()
	return nil
}

// executeTool validates arguments against the declared schema, dispatches
// through the catalog, and always returns a model-consumable string: tool
// failures become "tool_error: <reason>", never a Go error bubbled to the
// turn (§4.5, §7).
func (g *AgentGraph) executeTool(ctx context.Context, state *TurnState, call ToolCall) string {
	invocation := ToolInvocation{Name: call.Name, Arguments: call.Arguments}
	defer func() { state.ToolCallLog = append(state.ToolCallLog, invocation) }()

	if g.Tools == nil {
		invocation.Result = "tool_error: no tools configured"
		return invocation.Result
	}
	tool, spec, ok := g.Tools.Lookup(call.Name)
	if !ok {
		invocation.Result = fmt.Sprintf("tool_error: unknown tool %q", call.Name)
		return invocation.Result
	}
	if err := validateArguments(spec, call.Arguments); err != nil {
		invocation.Result = "tool_error: " + err.Error()
		return invocation.Result
	}

	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		invocation.Err = err
		invocation.Result = "tool_error: " + err.Error()
		return invocation.Result
	}
	invocation.Result = result
	return result
}

// validateArguments checks the call's arguments against the declared
// schema's required parameters before any external call is made (§4.5).
func validateArguments(spec ToolSpec, args map[string]any) error {
	required, _ := spec.Parameters["required"].([]string)
	if required == nil {
		if raw, ok := spec.Parameters["required"].([]any); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	for _, name := range required {
		v, ok := args[name]
		if !ok || v == nil {
			return fmt.Errorf("missing required argument %q", name)
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Errorf("argument %q must not be empty", name)
		}
	}
	return nil
}
