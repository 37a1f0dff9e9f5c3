package runtime

import (
	"context"
	"testing"
)

type fakeRetriever struct{ unavailable bool }

func (r *fakeRetriever) Search(ctx context.Context, q RetrievalQuery) (RetrievalResult, error) {
	if r.unavailable {
		return RetrievalResult{Unavailable: true}, nil
	}
	return RetrievalResult{Query: q.Question}, nil
}

type fakeDetector struct{ result *DetectionResult }

func (d *fakeDetector) Detect(command, output string) *DetectionResult { return d.result }

type scriptedGateway struct {
	completions []CompletionResult
	calls       int
	streamText  string
}

func (g *scriptedGateway) Complete(ctx context.Context, messages []Message, tools []ToolSchema, params Params) (CompletionResult, error) {
	if g.calls >= len(g.completions) {
		return CompletionResult{}, &LlmUnavailableError{Reason: "no more scripted completions"}
	}
	res := g.completions[g.calls]
	g.calls++
	return res, nil
}

func (g *scriptedGateway) Stream(ctx context.Context, messages []Message, tools []ToolSchema, params Params) (<-chan StreamChunk, <-chan error) {
	out := make(chan StreamChunk, 1)
	errc := make(chan error, 1)
	out <- StreamChunk{Kind: ChunkText, Delta: g.streamText}
	close(out)
	close(errc)
	return out, errc
}

type failingGateway struct{ reason string }

func (g *failingGateway) Complete(ctx context.Context, messages []Message, tools []ToolSchema, params Params) (CompletionResult, error) {
	return CompletionResult{}, &LlmUnavailableError{Reason: g.reason}
}

func (g *failingGateway) Stream(ctx context.Context, messages []Message, tools []ToolSchema, params Params) (<-chan StreamChunk, <-chan error) {
	out := make(chan StreamChunk)
	errc := make(chan error, 1)
	close(out)
	errc <- &LlmUnavailableError{Reason: g.reason}
	close(errc)
	return out, errc
}

type fakeDeviceConfigTool struct{ calls []map[string]any }

func (t *fakeDeviceConfigTool) Spec() ToolSpec {
	return ToolSpec{
		Name:       "get_device_running_config",
		Parameters: map[string]any{"type": "object", "required": []string{"device_name"}},
	}
}

func (t *fakeDeviceConfigTool) Execute(ctx context.Context, arguments map[string]any) (string, error) {
	t.calls = append(t.calls, arguments)
	return "interface GigabitEthernet0/0\n ip address 10.0.0.1 255.255.255.0", nil
}

// Scenario 1: pure teaching question, no CLI history.
func TestRunTurnPureTeachingQuestion(t *testing.T) {
	gw := &scriptedGateway{completions: []CompletionResult{{Text: "The enable command enters privileged exec mode."}}}
	g := NewAgentGraph(gw, &fakeRetriever{}, &fakeDetector{}, NewStaticToolCatalog(nil))

	state := &TurnState{StudentQuestion: "What does the enable command do?"}
	result, err := g.RunTurn(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != IntentTeaching {
		t.Fatalf("expected teaching intent, got %v", result.Intent)
	}
	if result.FinalMessage == "" {
		t.Fatalf("expected a non-empty final message")
	}
	if len(result.ConversationHistory) != 2 {
		t.Fatalf("expected history to grow by exactly 2 entries, got %d", len(result.ConversationHistory))
	}
}

// Scenario 5: tool-assisted answer, no CLI errors.
func TestRunTurnToolAssistedAnswer(t *testing.T) {
	tool := &fakeDeviceConfigTool{}
	gw := &scriptedGateway{completions: []CompletionResult{
		{ToolCalls: []ToolCall{{ID: "1", Name: "get_device_running_config", Arguments: map[string]any{"device_name": "R1"}}}},
		{Text: "Gi0/0 on R1 currently has 10.0.0.1."},
	}}
	g := NewAgentGraph(gw, &fakeRetriever{}, &fakeDetector{}, NewStaticToolCatalog([]Tool{tool}))

	state := &TurnState{StudentQuestion: "the IP on Gi0/0 of R1 is wrong, can you fix it"}
	result, err := g.RunTurn(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("expected exactly one tool invocation, got %d", len(tool.calls))
	}
	if tool.calls[0]["device_name"] != "R1" {
		t.Fatalf("expected device_name=R1, got %v", tool.calls[0]["device_name"])
	}
	if result.FinalMessage == "" {
		t.Fatalf("expected a non-empty final message quoting the device config")
	}
}

// Scenario 9 (tool suppression invariant): a diagnosed CLI entry disables tools.
func TestToolSuppressionWhenCLIDiagnosed(t *testing.T) {
	tool := &fakeDeviceConfigTool{}
	diagnosis := &DetectionResult{Matched: true, ErrorType: "TYPO_IN_COMMAND"}
	gw := &scriptedGateway{completions: []CompletionResult{{Text: "looks like a typo"}}}
	g := NewAgentGraph(gw, &fakeRetriever{}, &fakeDetector{result: diagnosis}, NewStaticToolCatalog([]Tool{tool}))

	state := &TurnState{
		StudentQuestion: "why did this fail",
		CLIHistory:      []CLIEntry{{Command: "hostnane Router1", Output: "% Invalid input detected at '^' marker."}},
	}
	if _, err := g.RunTurn(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tool.calls) != 0 {
		t.Fatalf("expected no tool invocations once a CLI entry is diagnosed, got %d", len(tool.calls))
	}
}

// Scenario 6: LLM outage surfaces as a single error event via the streaming driver.
func TestStreamingDriverLLMOutage(t *testing.T) {
	store := NewSessionStore()
	g := NewAgentGraph(&failingGateway{reason: "503"}, &fakeRetriever{}, &fakeDetector{}, NewStaticToolCatalog(nil))
	driver := NewStreamingDriver(g, store)
	sessionID := driver.StartSession(LabContext{LabID: "lab1"}, MasteryNovice)

	var events []StreamEvent
	for ev := range driver.Ask(context.Background(), sessionID, "anything", nil) {
		events = append(events, ev)
	}

	if len(events) == 0 || events[len(events)-1].Type != EventError {
		t.Fatalf("expected the turn to end with an error event, got %+v", events)
	}
	if events[len(events)-1].ErrorKind != "llm_unavailable" {
		t.Fatalf("expected llm_unavailable error kind, got %q", events[len(events)-1].ErrorKind)
	}
	for _, ev := range events {
		if ev.Type == EventDone {
			t.Fatalf("expected no done event after an LLM outage")
		}
	}

	session, _ := store.Get(sessionID)
	if len(session.History) != 0 {
		t.Fatalf("expected conversation_history to be unchanged after a failed turn, got %d entries", len(session.History))
	}
}

// Tool bound invariant: at most 3 completions before the troubleshooting
// loop falls back to a final streaming call.
func TestTroubleshootingLoopRespectsMaxToolIterations(t *testing.T) {
	tool := &fakeDeviceConfigTool{}
	alwaysCallsTool := CompletionResult{ToolCalls: []ToolCall{{ID: "x", Name: "get_device_running_config", Arguments: map[string]any{"device_name": "R1"}}}}
	gw := &scriptedGateway{
		completions: []CompletionResult{alwaysCallsTool, alwaysCallsTool, alwaysCallsTool},
		streamText:  "final answer after exhausting the tool budget",
	}
	g := NewAgentGraph(gw, &fakeRetriever{}, &fakeDetector{}, NewStaticToolCatalog([]Tool{tool}))

	state := &TurnState{StudentQuestion: "what is wrong with R1"}
	if err := g.runTroubleshootingFeedback(context.Background(), state, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls != 3 {
		t.Fatalf("expected exactly 3 non-streaming completions, got %d", gw.calls)
	}
	if state.FeedbackMessage != "final answer after exhausting the tool budget" {
		t.Fatalf("expected the fallback stream result as the feedback message, got %q", state.FeedbackMessage)
	}
}
