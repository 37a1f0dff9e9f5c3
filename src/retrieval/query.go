package retrieval

import (
	"strings"

	core "github.com/netlab-tutor/tutor-core"
)

// troubleKeywords mirrors the §6.6 TROUBLE_KEYWORDS set (duplicated from
// router.go's private copy, since this leaf package must not import runtime
// internals) — used here not for intent classification but to recognize
// "other error keywords" in §4.3's troubleshooting query-rewrite tree.
var troubleKeywords = []string{
	"wrong", "error", "fix", "broken", "failed", "stuck",
	"doesn't", "won't", "not working", "invalid",
}

var iosErrorFragments = []string{
	"% Invalid input", "% Incomplete command", "% Ambiguous command",
	"% Unknown command", "% Unrecognized",
}

// rewriteQuery implements §4.3's query-rewriting decision tree. vocabulary
// is the flattened Cisco-vocabulary word set used both to filter command
// keywords and, for teaching mode, left unused (teaching never enriches with
// command keywords).
func rewriteQuery(q core.RetrievalQuery, vocabulary map[string]struct{}) string {
	if q.Mode == core.IntentTeaching || q.Mode == core.IntentAmbiguous {
		return "Explain the concept: " + q.Question
	}

	window := lastN(q.CLIHistory, 5)
	keywords := commandKeywords(window, vocabulary)

	switch {
	case hasCaretAndErrorFragment(window):
		return "Invalid input detected " + keywords + " error pattern"
	case errorTypeTokens(q.Question, window) != "":
		return errorTypeTokens(q.Question, window) + " " + keywords + " Cisco IOS"
	case keywords != "":
		return "Cisco IOS " + keywords + " command syntax"
	default:
		return "Cisco IOS " + q.Question
	}
}

func lastN(entries []core.CLIEntry, n int) []core.CLIEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func hasCaretAndErrorFragment(window []core.CLIEntry) bool {
	for _, e := range window {
		if !strings.Contains(e.Output, "^") {
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

// errorTypeTokens collects the distinct §6.6 trouble keywords found in the
// student's question or anywhere in the CLI window, in declaration order.
func errorTypeTokens(question string, window []core.CLIEntry) string {
	haystack := strings.ToLower(question)
	for _, e := range window {
		haystack += " " + strings.ToLower(e.Output)
	}
	var found []string
	for _, kw := range troubleKeywords {
		if strings.Contains(haystack, kw) {
			found = append(found, strings.Trim(kw, "'"))
		}
	}
	return strings.Join(found, " ")
}

// mostRecentFailedCommand returns the last CLI entry in window whose output
// looks like an IOS rejection, falling back to the last entry overall if
// none qualifies (§4.3 "most-recent failed command").
func mostRecentFailedCommand(window []core.CLIEntry) string {
	for i := len(window) - 1; i >= 0; i-- {
		out := window[i].Output
		if !strings.Contains(out, "%") {
			continue
		}
		for _, frag := range iosErrorFragments {
			if strings.Contains(out, frag) {
				return window[i].Command
			}
		}
	}
	if len(window) > 0 {
		return window[len(window)-1].Command
	}
	return ""
}

// commandKeywords tokenizes the most-recent failed command, dedupes, and
// keeps only words present in the Cisco vocabulary (§4.3).
func commandKeywords(window []core.CLIEntry, vocabulary map[string]struct{}) string {
	command := mostRecentFailedCommand(window)
	if command == "" {
		return ""
	}
	seen := map[string]struct{}{}
	var kept []string
	for _, tok := range strings.Fields(strings.ToLower(command)) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if tok == "" {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := vocabulary[tok]; ok {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}
