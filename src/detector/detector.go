// Package detector implements the §4.2 Error Detector: a deterministic,
// side-effect-free classifier of one (command, output) CLI pair against a
// pattern registry snapshot. Grounded on
// original_source/orchestrator/error_detection/detector.go and base.go,
// adapted from the Python ErrorDetector/RegexErrorPattern split into a
// single type that closes over a *patterns.Registry and *patterns.Vocabulary
// rather than holding its own pattern-object list, since the registry
// already owns priority ordering and atomic reload.
package detector

import (
	"log"
	"strings"

	core "github.com/netlab-tutor/tutor-core"
	"github.com/netlab-tutor/tutor-core/src/patterns"
)

// iosErrorFragments is the §6.6 fast-reject set, duplicated from the root
// package's private router.go list plus the bare "%" fragment §4.2 step 1
// calls for: this package must not import runtime internals, only the
// runtime.Detector interface it satisfies.
var iosErrorFragments = []string{
	"% Invalid input", "% Incomplete command", "% Ambiguous command",
	"% Unknown command", "% Unrecognized", "%",
}

// Detector is the concrete runtime.Detector implementation.
type Detector struct {
	Registry   *patterns.Registry
	Vocabulary *patterns.Vocabulary
}

func New(registry *patterns.Registry, vocabulary *patterns.Vocabulary) *Detector {
	return &Detector{Registry: registry, Vocabulary: vocabulary}
}

// Detect satisfies runtime.Detector.
func (d *Detector) Detect(command, output string) *core.DetectionResult {
	return d.DetectWithMode(command, output, "")
}

// DetectWithMode is the Supplemented Feature from detector.py's optional
// context["current_mode"] filter: when currentMode is non-empty, a pattern
// declaring affected_modes is skipped unless currentMode is one of them.
func (d *Detector) DetectWithMode(command, output, currentMode string) *core.DetectionResult {
	notMatched := &core.DetectionResult{Matched: false}
	if !fastReject(output) {
		return notMatched
	}

	for _, p := range d.Registry.IterByPriority() {
		if currentMode != "" && len(p.AffectedModes) > 0 && !contains(p.AffectedModes, currentMode) {
			continue
		}
		if !signaturesPresent(p, output) {
			continue
		}
		match := p.CommandRegex.FindStringSubmatch(command)
		if match == nil {
			continue
		}

		var markerIdx, col int
		var hasMarker bool
		if p.MarkerCheck != nil {
			idx, c, ok := markerLine(output)
			if !ok {
				// Missing ^ line when marker_check is enabled: not a match,
				// not an error (§4.2 edge policy).
				continue
			}
			lines := strings.Split(output, "\n")
			if !checkPosition(p.MarkerCheck.ExpectedPosition, match[0], lines[idx], c) {
				continue
			}
			markerIdx, col, hasMarker = idx, c, true
		}

		vars := extractVariables(p, command, match)
		diagnosis, err := renderTemplate(p.Diagnosis.Template, vars)
		if err != nil {
			log.Printf("detector: pattern %s disabled for this call: %v", p.PatternID, err)
			continue
		}
		fix, err := renderTemplate(p.Fix.Template, vars)
		if err != nil {
			log.Printf("detector: pattern %s disabled for this call: %v", p.PatternID, err)
			continue
		}

		result := &core.DetectionResult{
			Matched:   true,
			ErrorType: p.ErrorType,
			PatternID: p.PatternID,
			Command:   command,
			Diagnosis: diagnosis,
			Fix:       fix,
			Variables: vars,
		}

		if hasMarker && p.Fuzzy != nil && p.Fuzzy.Enabled && d.Vocabulary != nil {
			if line, ok := echoedCommandLine(output, markerIdx); ok {
				if typedWord := wordAtColumn(line, col); typedWord != "" {
					result.FuzzyMatch = fuzzyLookup(typedWord, d.Vocabulary.Words(p.Fuzzy.VocabularyScope))
				}
			}
		}
		return result
	}
	return notMatched
}

// DetectAll is the Supplemented Feature from detector.py's detect_batch:
// running the detector over a whole CLI window, index-aligned to entries.
func (d *Detector) DetectAll(entries []core.CLIEntry) []*core.DetectionResult {
	results := make([]*core.DetectionResult, len(entries))
	for i, e := range entries {
		results[i] = d.Detect(e.Command, e.Output)
	}
	return results
}

func fastReject(output string) bool {
	for _, frag := range iosErrorFragments {
		if strings.Contains(output, frag) {
			return true
		}
	}
	return false
}

func signaturesPresent(p *patterns.ErrorPattern, output string) bool {
	haystack := output
	if p.IgnoreCase {
		haystack = strings.ToLower(haystack)
	}
	for _, sig := range p.Signatures {
		needle := sig
		if p.IgnoreCase {
			needle = strings.ToLower(needle)
		}
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// extractVariables mirrors base.py's RegexErrorPattern._extract_variables:
// the raw command, every named capture group, and the positional groups
// declared by the template's variable list.
func extractVariables(p *patterns.ErrorPattern, command string, match []string) map[string]string {
	vars := map[string]string{"command": command}
	for i, name := range p.CommandRegex.SubexpNames() {
		if i == 0 || name == "" || i >= len(match) {
			continue
		}
		vars[name] = match[i]
	}
	for i, name := range p.Diagnosis.Variables {
		if idx := i + 1; idx < len(match) {
			vars[name] = match[idx]
		}
	}
	for i, name := range p.Fix.Variables {
		if idx := i + 1; idx < len(match) {
			vars[name] = match[idx]
		}
	}
	return vars
}

func fuzzyLookup(typedWord string, vocabulary []string) *core.FuzzyMatch {
	lower := make([]string, len(vocabulary))
	for i, w := range vocabulary {
		lower[i] = strings.ToLower(w)
	}
	suggestion, sim, ok := closestVocabularyWord(strings.ToLower(typedWord), lower)
	if !ok {
		return nil
	}
	return &core.FuzzyMatch{TypedWord: typedWord, SuggestedWord: suggestion, Similarity: sim}
}
