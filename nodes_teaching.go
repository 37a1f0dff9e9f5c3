package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func masteryTone(m Mastery) string {
	switch m {
	case MasteryNovice:
		return "Explain in plain language, define jargon the first time you use it, and favor small concrete examples."
	case MasteryAdvanced:
		return "Be concise and technical; do not re-explain fundamentals unless the question asks for them."
	default:
		return "Explain clearly with one or two concrete examples; assume familiarity with basic CLI use."
	}
}

// renderDocs inlines retrieved documents as "[DOC i]" blocks, the shared
// rendering used by both feedback nodes.
func renderDocs(docs []RetrievedDoc) string {
	if len(docs) == 0 {
		return "(no retrieved documents)"
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[DOC %d] (%s)\n%s\n\n", i+1, d.DocClass, d.Content)
	}
	return b.String()
}

func buildTeachingSystemPrompt(state *TurnState) string {
	var b strings.Builder
	b.WriteString("You are a patient network-engineering tutor helping a student understand Cisco IOS concepts.\n")
	b.WriteString(masteryTone(state.MasteryLevel))
	b.WriteString("\n\nLab: ")
	b.WriteString(state.LabContext.Title)
	b.WriteString("\n\nRelevant reference material:\n")
	b.WriteString(renderDocs(state.RetrievedDocs))
	if state.RetrievalUnavailable {
		b.WriteString("\n(Retrieval was unavailable this turn; answer from general Cisco IOS knowledge.)\n")
	}
	b.WriteString("\nAnswer the student's question directly. Do not use <TOOLCALL> or <THINKING> tags.\n")
	return b.String()
}

func buildMessages(systemPrompt string, state *TurnState, limits Limits) []Message {
	messages := make([]Message, 0, limits.ConversationHistoryMessages+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	for _, m := range RecentConversation(state.ConversationHistory, limits.ConversationHistoryMessages) {
		messages = append(messages, Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID})
	}
	messages = append(messages, Message{Role: RoleUser, Content: state.StudentQuestion})
	return messages
}

// runTeachingFeedback is the 4.4.2 Teaching Feedback Node. When emit is
// non-nil, it streams via the gateway and forwards each filtered delta to
// emit; otherwise it performs one non-streaming completion (used by
// RunTurn).
func (g *AgentGraph) runTeachingFeedback(ctx context.Context, state *TurnState, emit func(string)) error {
	prompt := buildTeachingSystemPrompt(state)
	messages := buildMessages(prompt, state, g.Limits)
	params := Params{Temperature: 0.7, TopP: 1, MaxTokens: 400}

	if emit == nil {
		res, err := g.Gateway.Complete(ctx, messages, nil, params)
		if err != nil {
			return err
		}
		filter := NewContentFilter()
		state.FeedbackMessage = filter.Feed(res.Text) + filter.Flush()
		return nil
	}

	chunks, errc := g.Gateway.Stream(ctx, messages, nil, params)
	filter := NewContentFilter()
	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Kind != ChunkText {
			continue
		}
		if clean := filter.Feed(chunk.Delta); clean != "" {
			sb.WriteString(clean)
			emit(clean)
		}
	}
	if tail := filter.Flush(); tail != "" {
		sb.WriteString(tail)
		emit(tail)
	}
	if err := <-errc; err != nil {
		return err
	}
	state.FeedbackMessage = sb.String()
	return nil
}

// docIDs returns an identifier per retrieved doc for metadata events: the
// doc's Metadata["chunk_id"] when present (src/retrieval sets it), else
// "doc-<n>" from its 1-based position.
func docIDs(docs []RetrievedDoc) []string {
	ids := make([]string, 0, len(docs))
	for i, d := range docs {
		if id, ok := d.Metadata["chunk_id"]; ok {
			ids = append(ids, fmt.Sprint(id))
			continue
		}
		ids = append(ids, "doc-"+strconv.Itoa(i+1))
	}
	return ids
}
