package runtime

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		q       string
		history []CLIEntry
		want    Intent
	}{
		{"pure teaching question", "why do we use OSPF here?", nil, IntentTeaching},
		{"pure troubleshooting question", "my config is broken and won't work", nil, IntentTroubleshoot},
		{"cli error with no keywords routes troubleshooting", "help me out here", []CLIEntry{
			{Command: "int g0/1", Output: "% Invalid input detected"},
		}, IntentTroubleshoot},
		{"cli error but explain-only phrasing stays teaching", "can you explain what happened", []CLIEntry{
			{Command: "int g0/1", Output: "% Invalid input detected"},
		}, IntentTeaching},
		{"tied keyword counts are ambiguous", "why is this broken", nil, IntentAmbiguous},
		{"no signal defaults to teaching", "hello there", nil, IntentTeaching},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.q, tc.history); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.q, got, tc.want)
			}
		})
	}
}

func TestResolveAmbiguous(t *testing.T) {
	if got := ResolveAmbiguous(IntentAmbiguous); got != IntentTeaching {
		t.Fatalf("ambiguous should resolve to teaching, got %v", got)
	}
	if got := ResolveAmbiguous(IntentTroubleshoot); got != IntentTroubleshoot {
		t.Fatalf("non-ambiguous intent should pass through unchanged, got %v", got)
	}
}

func TestHasCLIErrorRequiresPercentAndFragment(t *testing.T) {
	withFragmentOnly := []CLIEntry{{Output: "Invalid input detected"}}
	if hasCLIError(withFragmentOnly) {
		t.Fatalf("expected no match without a literal %%")
	}
	withBoth := []CLIEntry{{Output: "% Invalid input detected at '^' marker"}}
	if !hasCLIError(withBoth) {
		t.Fatalf("expected a match with %% and a known fragment")
	}
}
