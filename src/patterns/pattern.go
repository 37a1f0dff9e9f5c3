// Package patterns implements the §4.1 Pattern Registry: loading, owning,
// and priority-ordering the regex/fuzzy error patterns the Error Detector
// consumes. Grounded on original_source/orchestrator/error_detection/
// registry.go and base.go, adapted from Python dataclasses/ABCs into plain
// Go structs plus a compiled-at-load-time regex, and from the original's
// package-global registry into an explicit, atomically-swapped value type
// (§5, §9 "avoid global mutation").
package patterns

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// TemplateField is the §3 {template, variables} shape. The original
// Python loader (registry.py) also accepted a bare string for `diagnosis`/
// `fix`; that legacy form is preserved here as a Supplemented Feature
// (SPEC_FULL.md) since pattern files authored against the original may
// still use it.
type TemplateField struct {
	Template  string
	Variables []string
}

// UnmarshalJSON accepts either {"template": "...", "variables": [...]} or a
// bare JSON string, matching the original loader's dual acceptance.
func (t *TemplateField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Template = s
		t.Variables = nil
		return nil
	}
	var obj struct {
		Template  string   `json:"template"`
		Variables []string `json:"variables"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Template = obj.Template
	t.Variables = obj.Variables
	return nil
}

// MarkerCheck is the optional §3 marker_check block.
type MarkerCheck struct {
	ExpectedPosition string `json:"expected_position"` // before_slash | at_char | end_of_command
}

// FuzzyConfig is the optional §3 fuzzy block.
type FuzzyConfig struct {
	Enabled         bool   `json:"enabled"`
	VocabularyScope string `json:"vocabulary_scope"`
}

// patternJSON is the on-disk §3 "Error Pattern (JSON)" shape, decoded
// before validation and regex compilation.
type patternJSON struct {
	PatternID         string        `json:"pattern_id"`
	Description       string        `json:"description"`
	Priority          int           `json:"priority"`
	Signatures        []string      `json:"signatures"`
	CommandRegex      string        `json:"command_regex"`
	RegexFlags        string        `json:"regex_flags"`
	MarkerCheck       *MarkerCheck  `json:"marker_check,omitempty"`
	ErrorType         string        `json:"error_type"`
	DiagnosisTemplate TemplateField `json:"diagnosis_template"`
	DiagnosisVars     []string      `json:"diagnosis_variables,omitempty"`
	FixTemplate       TemplateField `json:"fix_template"`
	FixExamples       []string      `json:"fix_examples,omitempty"`
	AffectedModes     []string      `json:"affected_modes,omitempty"`
	Fuzzy             *FuzzyConfig  `json:"fuzzy,omitempty"`
}

// ErrorPattern is the loaded, validated, regex-compiled in-memory form of a
// pattern: everything the Detector needs to test one (command, output) pair
// and render its templates, with no further parsing at detection time.
type ErrorPattern struct {
	PatternID     string
	Description   string
	Priority      int
	Signatures    []string
	IgnoreCase    bool
	CommandRegex  *regexp.Regexp
	MarkerCheck   *MarkerCheck
	ErrorType     string
	Diagnosis     TemplateField
	Fix           TemplateField
	FixExamples   []string
	AffectedModes []string
	Fuzzy         *FuzzyConfig
}

// compilePattern validates every field per §4.1 ("validates every field,
// compiles command_regex with declared flags") and returns a
// PatternLoadError (via runtime.PatternLoadError, constructed by the
// caller) naming the offending pattern_id/field on any failure. This
// function itself returns a plain error; registry.Load wraps it.
func compilePattern(pj patternJSON) (*ErrorPattern, string, error) {
	if pj.PatternID == "" {
		return nil, "pattern_id", fmt.Errorf("missing pattern_id")
	}
	if pj.CommandRegex == "" {
		return nil, "command_regex", fmt.Errorf("missing command_regex")
	}
	if pj.ErrorType == "" {
		return nil, "error_type", fmt.Errorf("missing error_type")
	}

	ignoreCase := pj.RegexFlags == "IGNORECASE" || pj.RegexFlags == "ignorecase"
	var flags string
	if ignoreCase {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pj.CommandRegex)
	if err != nil {
		return nil, "command_regex", fmt.Errorf("invalid command_regex: %w", err)
	}

	if pj.MarkerCheck != nil {
		switch pj.MarkerCheck.ExpectedPosition {
		case "before_slash", "at_char", "end_of_command":
		default:
			return nil, "marker_check.expected_position", fmt.Errorf("unknown expected_position %q", pj.MarkerCheck.ExpectedPosition)
		}
	}

	return &ErrorPattern{
		PatternID:     pj.PatternID,
		Description:   pj.Description,
		Priority:      pj.Priority,
		Signatures:    pj.Signatures,
		IgnoreCase:    ignoreCase,
		CommandRegex:  re,
		MarkerCheck:   pj.MarkerCheck,
		ErrorType:     pj.ErrorType,
		Diagnosis:     mergeVariables(pj.DiagnosisTemplate, pj.DiagnosisVars),
		Fix:           mergeVariables(pj.FixTemplate, pj.DiagnosisVars),
		FixExamples:   pj.FixExamples,
		AffectedModes: pj.AffectedModes,
		Fuzzy:         pj.Fuzzy,
	}, "", nil
}

// mergeVariables folds the top-level diagnosis_variables list (§3) into a
// template field that did not declare its own variables via the
// {template,variables} object form.
func mergeVariables(t TemplateField, topLevel []string) TemplateField {
	if len(t.Variables) == 0 {
		t.Variables = topLevel
	}
	return t
}
