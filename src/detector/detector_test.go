package detector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/netlab-tutor/tutor-core/src/patterns"
)

// loadRegistry writes patternsJSON to a temp pattern file and loads it,
// mirroring how cmd/tutor's loadPatterns populates a Registry at startup.
func loadRegistry(t *testing.T, patternsJSON string) *patterns.Registry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	if err := os.WriteFile(path, []byte(patternsJSON), 0o644); err != nil {
		t.Fatalf("write patterns fixture: %v", err)
	}
	registry := patterns.NewRegistry()
	if err := registry.Load(path); err != nil {
		t.Fatalf("load patterns: %v", err)
	}
	return registry
}

func loadVocabulary(t *testing.T, vocabJSON string) *patterns.Vocabulary {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vocabulary.json")
	if err := os.WriteFile(path, []byte(vocabJSON), 0o644); err != nil {
		t.Fatalf("write vocabulary fixture: %v", err)
	}
	vocabulary := patterns.NewVocabulary()
	if err := vocabulary.LoadFile(path); err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	return vocabulary
}

// caretLine renders the line IOS prints underneath an echoed command, with
// '^' positioned at byte offset col.
func caretLine(col int) string {
	return strings.Repeat(" ", col) + "^"
}

// Scenario 2 (spec.md:297-299): a typo in a command word, marker-checked and
// fuzzy-matched against the vocabulary.
func TestDetectTypoWithFuzzyMatch(t *testing.T) {
	registry := loadRegistry(t, `{
		"version": 1,
		"patterns": [{
			"pattern_id": "typo_in_command",
			"priority": 10,
			"signatures": ["% Invalid input detected"],
			"command_regex": "^(\\S+)",
			"marker_check": {"expected_position": "at_char"},
			"error_type": "TYPO_IN_COMMAND",
			"diagnosis_template": "\"{command}\" is not a recognized command.",
			"fix_template": "Check your spelling and try again.",
			"fuzzy": {"enabled": true, "vocabulary_scope": "commands"}
		}]
	}`)
	vocabulary := loadVocabulary(t, `{"commands": ["hostname", "interface", "ip", "address", "show"]}`)
	d := New(registry, vocabulary)

	command := "hostnane Router1"
	output := strings.Join([]string{
		command,
		caretLine(0),
		"% Invalid input detected at '^' marker.",
	}, "\n")

	result := d.Detect(command, output)
	if !result.Matched {
		t.Fatalf("expected a match, got %+v", result)
	}
	if result.ErrorType != "TYPO_IN_COMMAND" {
		t.Fatalf("expected error_type=TYPO_IN_COMMAND, got %q", result.ErrorType)
	}
	if result.FuzzyMatch == nil {
		t.Fatalf("expected a fuzzy match to be attached, got none")
	}
	if result.FuzzyMatch.SuggestedWord != "hostname" {
		t.Fatalf("expected fuzzy_match.suggested_word=hostname, got %q", result.FuzzyMatch.SuggestedWord)
	}
}

// Scenario 3 (spec.md:301-303): CIDR notation on an interface command; the
// fix must recommend a dotted-decimal mask, never the CIDR form.
func TestDetectCIDRNotSupported(t *testing.T) {
	registry := loadRegistry(t, `{
		"version": 1,
		"patterns": [{
			"pattern_id": "cidr_not_supported",
			"priority": 10,
			"signatures": ["% Invalid input detected"],
			"command_regex": "^ip address \\S+/(\\d+)$",
			"marker_check": {"expected_position": "before_slash"},
			"error_type": "CIDR_NOT_SUPPORTED",
			"diagnosis_template": "IOS does not accept CIDR notation on this command.",
			"fix_template": "Try: ip address 192.168.1.1 255.255.255.0"
		}]
	}`)
	d := New(registry, patterns.NewVocabulary())

	command := "ip address 192.168.1.1/24"
	output := strings.Join([]string{
		command,
		caretLine(strings.Index(command, "/")),
		"% Invalid input detected at '^' marker.",
	}, "\n")

	result := d.Detect(command, output)
	if !result.Matched || result.ErrorType != "CIDR_NOT_SUPPORTED" {
		t.Fatalf("expected error_type=CIDR_NOT_SUPPORTED, got %+v", result)
	}
	if !strings.Contains(result.Fix, "255.255.255.0") {
		t.Fatalf("expected fix to recommend a dotted-decimal mask, got %q", result.Fix)
	}
	if strings.Contains(result.Fix, "/24") {
		t.Fatalf("fix must not recommend CIDR notation, got %q", result.Fix)
	}
}

// Scenario 4 (spec.md:305-307): a global-config command issued from
// privileged EXEC mode. Mode-aware filtering is a Supplemented Feature:
// the pattern is skipped outside its declared affected_modes.
func TestDetectWrongMode(t *testing.T) {
	registry := loadRegistry(t, `{
		"version": 1,
		"patterns": [{
			"pattern_id": "wrong_mode",
			"priority": 10,
			"signatures": ["% Invalid input"],
			"command_regex": "^hostname\\s+\\S+$",
			"error_type": "WRONG_MODE",
			"affected_modes": ["privileged_exec"],
			"diagnosis_template": "hostname is a global configuration command; you're in privileged EXEC mode.",
			"fix_template": "Enter configure terminal first, then run this command again."
		}]
	}`)
	d := New(registry, patterns.NewVocabulary())

	command := "hostname Router1"
	output := "% Invalid input detected at '^' marker."

	result := d.DetectWithMode(command, output, "privileged_exec")
	if !result.Matched || result.ErrorType != "WRONG_MODE" {
		t.Fatalf("expected error_type=WRONG_MODE, got %+v", result)
	}
	if !strings.Contains(result.Fix, "configure terminal") {
		t.Fatalf("expected fix to mention configure terminal, got %q", result.Fix)
	}

	if skipped := d.DetectWithMode(command, output, "global_config"); skipped.Matched {
		t.Fatalf("expected the pattern to be skipped outside its affected_modes, got %+v", skipped)
	}
}
