package detector

import "strings"

// markerLine locates the caret ("^") IOS points to in a command echo and
// reports its column. Per DESIGN.md's explicit deviation from
// original_source/orchestrator/error_detection/base.py's
// RegexErrorPattern._check_marker (which takes the FIRST line containing
// '^'), this takes the LAST such line: multi-line troubleshooting output can
// echo more than one rejected command, and the most recent rejection is the
// one worth explaining. The boilerplate banner IOS always prints below the
// real caret line, `% Invalid input detected at '^' marker.`, itself
// contains a literal '^' inside the quoted word — it is skipped so the
// selected line is the actual caret line, not that banner.
func markerLine(output string) (lineIdx, col int, ok bool) {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if isMarkerBannerLine(lines[i]) {
			continue
		}
		if idx := strings.IndexByte(lines[i], '^'); idx >= 0 {
			return i, idx, true
		}
	}
	return 0, 0, false
}

// isMarkerBannerLine reports whether line is IOS's own "% ... marker."
// banner rather than the caret line underneath the echoed command: every
// IOS error banner starts with '%', and no caret line ever does.
func isMarkerBannerLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "%")
}

// checkPosition reports whether a caret at (line, col) satisfies the
// pattern's declared expected_position class, following base.py's three
// cases (before_slash / at_char / end_of_command).
func checkPosition(expected, matchText, line string, col int) bool {
	switch expected {
	case "before_slash":
		return strings.Contains(matchText, "/")
	case "at_char":
		return true
	case "end_of_command":
		return float64(col) > float64(len(line))*0.7
	default:
		return true
	}
}

// wordAtColumn extracts the whitespace-delimited token under column col of
// line, used to pull the typed word a caret points at (for fuzzy lookup) out
// of the echoed command line that normally precedes the "^" line.
func wordAtColumn(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	start := col
	for start > 0 && !isWordBoundary(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && !isWordBoundary(line[end]) {
		end++
	}
	return line[start:end]
}

func isWordBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '#', '>', '(', ')':
		return true
	}
	return false
}

// echoedCommandLine returns the line immediately above the marker line,
// which in real IOS transcripts is the echoed command the caret annotates.
func echoedCommandLine(output string, markerLineIdx int) (string, bool) {
	lines := strings.Split(output, "\n")
	if markerLineIdx <= 0 || markerLineIdx > len(lines) {
		return "", false
	}
	return lines[markerLineIdx-1], true
}
