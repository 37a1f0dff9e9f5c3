package runtime

import "context"

// Limits is the configuration-constant surface for the tool loop and the
// history windows (§6.4 limits.*). A bound is a configuration constant,
// never a magic number sprinkled through the graph (§9 design note).
type Limits struct {
	MaxToolIterations           int
	ConversationHistoryMessages int
	CLIHistoryEntries           int
}

// DefaultLimits mirrors §6.4's documented defaults.
func DefaultLimits() Limits {
	return Limits{MaxToolIterations: 3, ConversationHistoryMessages: 4, CLIHistoryEntries: 5}
}

// AgentGraph wires the Pattern-Registry-backed Detector, the Retriever, the
// LLM Gateway and the Tool Catalog into the two-path structure of §4.4:
//
//	[router] --teaching--------> [t_retrieval] --> [t_feedback]          --END
//	[router] --troubleshooting-> [retrieval]   --> [feedback+tools] --> [paraphraser] --END
//	[router] --ambiguous-------> (treated as teaching)
//
// It is deliberately a flat struct plus a successor function rather than a
// generic graph-execution library: a tagged-variant Node list with an
// explicit successor function, per §9.
type AgentGraph struct {
	Gateway   LLMGateway
	Retriever Retriever
	Detector  Detector
	Tools     ToolCatalog
	Limits    Limits
}

// NewAgentGraph constructs a graph with the given collaborators and default
// limits.
func NewAgentGraph(gw LLMGateway, retriever Retriever, detector Detector, tools ToolCatalog) *AgentGraph {
	return &AgentGraph{Gateway: gw, Retriever: retriever, Detector: detector, Tools: tools, Limits: DefaultLimits()}
}

// RunTurn is the non-streaming complete_turn variant kept for tests, per
// the Open Question resolution in SPEC_FULL.md §9: streaming is the primary
// API, but a synchronous path exists for deterministic assertions.
func (g *AgentGraph) RunTurn(ctx context.Context, state *TurnState) (*TurnState, error) {
	state.Intent = ResolveAmbiguous(Classify(state.StudentQuestion, state.CLIHistory))

	if err := g.runRetrieval(ctx, state); err != nil {
		return state, err
	}

	switch state.Intent {
	case IntentTroubleshoot:
		if err := g.runTroubleshootingFeedback(ctx, state, nil); err != nil {
			return state, err
		}
		state.FinalMessage = g.paraphrase(ctx, state)
	default:
		if err := g.runTeachingFeedback(ctx, state, nil); err != nil {
			return state, err
		}
		state.FinalMessage = state.FeedbackMessage
	}

	appendHistory(state)
	return state, nil
}

func (g *AgentGraph) runRetrieval(ctx context.Context, state *TurnState) error {
	res, err := g.Retriever.Search(ctx, RetrievalQuery{
		Mode:       state.Intent,
		Question:   state.StudentQuestion,
		CLIHistory: state.CLIHistory,
		LabID:      state.LabContext.LabID,
	})
	if err != nil {
		// IndexUnavailable is handled locally: empty docs, a flag, the
		// feedback node must still answer from prompt context alone (§4.3).
		state.RetrievalUnavailable = true
		state.RetrievedDocs = nil
		return nil
	}
	state.RetrievalQuery = res.Query
	state.RetrievedDocs = res.Docs
	state.RetrievalUnavailable = res.Unavailable
	return nil
}

// appendHistory implements the §3/§8 "history append" invariant: exactly
// two entries, user then assistant, added once per successful turn.
func appendHistory(state *TurnState) {
	state.ConversationHistory = append(state.ConversationHistory,
		ConversationMessage{Role: RoleUser, Content: state.StudentQuestion},
		ConversationMessage{Role: RoleAssistant, Content: state.FinalMessage},
	)
}
