package runtime

import (
	"strings"
)

// Keyword sets are normative, §6.6. Do not add synonyms here; extend the
// retriever's stopword/keyword lists instead if new vocabulary is needed.
var (
	teachKeywords = map[string]struct{}{
		"why": {}, "what": {}, "explain": {}, "how": {}, "describe": {},
		"tell": {}, "when": {}, "difference": {}, "concept": {},
	}
	troubleKeywords = map[string]struct{}{
		"wrong": {}, "error": {}, "fix": {}, "broken": {}, "failed": {},
		"stuck": {}, "doesn't": {}, "won't": {}, "not working": {}, "invalid": {},
	}
	iosErrorFragments = []string{
		"% Invalid input", "% Incomplete command", "% Ambiguous command",
		"% Unknown command", "% Unrecognized",
	}
)

// tokenize is the same lightweight lower-case word splitter the teacher's
// classifyQuery used for its single-word heuristic, generalized to also
// recognize the multi-word keyword "not working".
func tokenize(s string) []string {
	s = strings.ToLower(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', '.', '!', '?', ';', ':', '"', '(', ')':
			return true
		}
		return false
	})
	return fields
}

func countKeywords(question string, set map[string]struct{}) int {
	lower := strings.ToLower(question)
	count := 0
	if _, ok := set["not working"]; ok && strings.Contains(lower, "not working") {
		count++
	}
	for _, tok := range tokenize(question) {
		if tok == "not" || tok == "working" {
			continue // already counted via the phrase check above
		}
		if _, ok := set[tok]; ok {
			count++
		}
	}
	return count
}

// hasCLIError reports whether any of the given CLI outputs looks like an IOS
// error: it must contain a literal "%" and one of the known error fragments.
func hasCLIError(entries []CLIEntry) bool {
	for _, e := range entries {
		if !strings.Contains(e.Output, "%") {
			continue
		}
		for _, frag := range iosErrorFragments {
			if strings.Contains(e.Output, frag) {
				return true
			}
		}
	}
	return false
}

// Classify is the pure, LLM-free intent router (§4.4.1). It is deterministic
// for identical (question, cliHistory) and must never block (latency budget
// < 10ms; it is pure string/map work so it always beats that).
func Classify(question string, cliHistory []CLIEntry) Intent {
	teachKw := countKeywords(question, teachKeywords)
	troubleKw := countKeywords(question, troubleKeywords)
	window := RecentCLI(cliHistory, 5)
	cliError := hasCLIError(window)

	switch {
	case cliError && teachKw > 0 && troubleKw == 0:
		return IntentTeaching
	case cliError:
		return IntentTroubleshoot
	case troubleKw > teachKw:
		return IntentTroubleshoot
	case teachKw > troubleKw:
		return IntentTeaching
	case teachKw == troubleKw && teachKw > 0:
		return IntentAmbiguous
	default:
		return IntentTeaching
	}
}

// ResolveAmbiguous maps IntentAmbiguous onto the path it is treated as
// downstream (teaching), per §4.4.1 step 7 and the graph diagram in §4.4.
func ResolveAmbiguous(intent Intent) Intent {
	if intent == IntentAmbiguous {
		return IntentTeaching
	}
	return intent
}
