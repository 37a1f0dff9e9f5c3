package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the two fields of Turn State that persist across turns
// (§3 Lifecycle): conversation and CLI history. Everything else in
// TurnState is reconstructed per turn.
type Session struct {
	ID         string
	LabContext LabContext
	Mastery    Mastery

	mu      sync.Mutex
	History []ConversationMessage
	CLIHist []CLIEntry
}

// SessionStore is an in-process registry of sessions. It does not persist
// across process restarts; multi-user durable session storage is an
// explicit Non-goal (spec.md §1).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create implements start_session(lab_id, mastery_level) -> session_id (§6.1).
func (s *SessionStore) Create(labCtx LabContext, mastery Mastery) *Session {
	session := &Session{ID: uuid.NewString(), LabContext: labCtx, Mastery: mastery}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// StreamingDriver runs one turn and yields the typed event stream of §4.7.
// It is the primary API (§9 Open Question resolution); RunTurn on
// AgentGraph remains for synchronous tests.
type StreamingDriver struct {
	Graph *AgentGraph
	Store *SessionStore

	TeachingDeadline        time.Duration
	TroubleshootingDeadline time.Duration
}

func NewStreamingDriver(graph *AgentGraph, store *SessionStore) *StreamingDriver {
	return &StreamingDriver{
		Graph:                   graph,
		Store:                   store,
		TeachingDeadline:        8 * time.Second,
		TroubleshootingDeadline: 20 * time.Second,
	}
}

// StartSession is the §6.1 start_session operation.
func (d *StreamingDriver) StartSession(labCtx LabContext, mastery Mastery) string {
	return d.Store.Create(labCtx, mastery).ID
}

// Ask is the §6.1 ask operation: it returns an event channel for the turn
// and runs the graph in a background goroutine. The channel is always
// closed when the turn ends, however it ends.
func (d *StreamingDriver) Ask(ctx context.Context, sessionID, message string, cliHistory []CLIEntry) <-chan StreamEvent {
	out := make(chan StreamEvent)
	go d.runTurn(ctx, sessionID, message, cliHistory, out)
	return out
}

// trySend enforces "cancellation is checked between every event emission"
// (§5): it refuses to send once ctx is done and reports that to the caller
// so the turn can stop producing events immediately (Cancelled: clean
// shutdown, no further events, §7).
func trySend(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

func (d *StreamingDriver) runTurn(ctx context.Context, sessionID, message string, cliHistory []CLIEntry, out chan StreamEvent) {
	defer close(out)

	session, ok := d.Store.Get(sessionID)
	if !ok {
		trySend(ctx, out, errorEvent("session_not_found", "unknown session_id"))
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	state := &TurnState{
		StudentQuestion:     message,
		ConversationHistory: append([]ConversationMessage{}, session.History...),
		CLIHistory:          append(append([]CLIEntry{}, session.CLIHist...), cliHistory...),
		LabContext:          session.LabContext,
		MasteryLevel:        session.Mastery,
	}

	state.Intent = ResolveAmbiguous(Classify(state.StudentQuestion, state.CLIHistory))
	if !trySend(ctx, out, infoEvent("routed:"+string(state.Intent))) {
		return
	}

	deadline := d.TeachingDeadline
	if state.Intent == IntentTroubleshoot {
		deadline = d.TroubleshootingDeadline
	}
	turnCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	_ = d.Graph.runRetrieval(turnCtx, state) // IndexUnavailable is handled locally; never errors upward

	if turnCtx.Err() != nil {
		return
	}

	switch state.Intent {
	case IntentTroubleshoot:
		onToolInfo := func(phase string) { trySend(turnCtx, out, infoEvent(phase)) }
		if err := d.Graph.runTroubleshootingFeedback(turnCtx, state, onToolInfo); err != nil {
			d.emitLLMError(ctx, out, err)
			return
		}
		state.FinalMessage = d.Graph.paraphrase(turnCtx, state)
		if !d.emitFinalAsContent(turnCtx, out, state.FinalMessage) {
			return
		}
	default:
		emit := func(delta string) { trySend(turnCtx, out, contentEvent(delta)) }
		if err := d.Graph.runTeachingFeedback(turnCtx, state, emit); err != nil {
			d.emitLLMError(ctx, out, err)
			return
		}
		state.FinalMessage = state.FeedbackMessage
	}

	if turnCtx.Err() != nil {
		return
	}

	appendHistory(state)
	session.History = state.ConversationHistory
	session.CLIHist = state.CLIHistory

	meta := &TurnMetadata{Intent: state.Intent, FinalMessage: state.FinalMessage, DocIDsUsed: docIDs(state.RetrievedDocs)}
	if !trySend(ctx, out, metadataEvent(meta)) {
		return
	}
	trySend(ctx, out, doneEvent())
}

// emitLLMError surfaces LlmUnavailable as the one user-visible error kind
// produced by the feedback nodes (§7 propagation policy). conversation
// history is intentionally left untouched: appendHistory runs only on the
// success path, so a failed turn never mutates session state (§8 scenario 6).
func (d *StreamingDriver) emitLLMError(ctx context.Context, out chan StreamEvent, err error) {
	trySend(ctx, out, errorEvent("llm_unavailable", err.Error()))
}

// emitFinalAsContent chunks the paraphrased final message into content
// events. The paraphraser already stripped internal identifiers; the
// filter here is defense in depth against any sentinel that slipped
// through unparaphrased tool-result text.
func (d *StreamingDriver) emitFinalAsContent(ctx context.Context, out chan StreamEvent, text string) bool {
	const chunkSize = 120
	filter := NewContentFilter()
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		clean := filter.Feed(string(runes[i:end]))
		if clean != "" {
			if !trySend(ctx, out, contentEvent(clean)) {
				return false
			}
		}
	}
	if tail := filter.Flush(); tail != "" {
		if !trySend(ctx, out, contentEvent(tail)) {
			return false
		}
	}
	return true
}
