package runtime

import "strings"

// sentinelPair is one internal-marker span the driver must never let reach
// the transport. Keeping the filter as a dedicated streaming transducer
// with small internal buffering (rather than sprinkling strings.Replace
// calls over finished text) is the §9 design note this type implements.
type sentinelPair struct {
	open  string
	close string
}

var contentSentinels = []sentinelPair{
	{open: "<TOOLCALL>", close: "</TOOLCALL>"},
	{open: "<THINKING>", close: "</THINKING>"},
}

// ContentFilter strips internal-marker spans from a stream of text chunks,
// correctly recognizing sentinels split across chunk boundaries and never
// emitting a partial sentinel fragment (§4.7).
type ContentFilter struct {
	pending     string
	insideClose string // non-empty while inside a sentinel span; the close tag being awaited
}

// NewContentFilter returns a filter with no pending state.
func NewContentFilter() *ContentFilter {
	return &ContentFilter{}
}

// Feed processes one chunk and returns the portion safe to emit now. Any
// suffix that might be the start of a sentinel (or might still be inside
// one) is held in internal state for the next call.
func (f *ContentFilter) Feed(chunk string) string {
	buf := f.pending + chunk
	f.pending = ""
	var out strings.Builder

	for {
		if f.insideClose != "" {
			idx := strings.Index(buf, f.insideClose)
			if idx == -1 {
				f.pending = longestSuffixPrefix(buf, f.insideClose)
				return out.String()
			}
			buf = buf[idx+len(f.insideClose):]
			f.insideClose = ""
			continue
		}

		openIdx := -1
		var opened sentinelPair
		for _, sp := range contentSentinels {
			if idx := strings.Index(buf, sp.open); idx != -1 && (openIdx == -1 || idx < openIdx) {
				openIdx = idx
				opened = sp
			}
		}
		if openIdx == -1 {
			tail := ""
			for _, sp := range contentSentinels {
				if t := longestSuffixPrefix(buf, sp.open); len(t) > len(tail) {
					tail = t
				}
			}
			out.WriteString(buf[:len(buf)-len(tail)])
			f.pending = tail
			return out.String()
		}

		out.WriteString(buf[:openIdx])
		buf = buf[openIdx+len(opened.open):]
		f.insideClose = opened.close
	}
}

// Flush returns any buffered text that turned out not to be part of a
// sentinel by end of stream (an unterminated partial open tag is simply
// text, not a dropped span, unless we're mid-span — in which case it is
// correctly discarded since the span never closed).
func (f *ContentFilter) Flush() string {
	if f.insideClose != "" {
		f.insideClose = ""
		f.pending = ""
		return ""
	}
	out := f.pending
	f.pending = ""
	return out
}

// longestSuffixPrefix returns the longest proper suffix of s that is also a
// prefix of pat (never the whole of pat, since a full match is handled by
// the caller before this is reached).
func longestSuffixPrefix(s, pat string) string {
	maxLen := len(pat) - 1
	if maxLen > len(s) {
		maxLen = len(s)
	}
	for l := maxLen; l > 0; l-- {
		if strings.HasSuffix(s, pat[:l]) {
			return s[len(s)-l:]
		}
	}
	return ""
}

// stripErrorTypeTokens removes every occurrence of the given error_type
// tokens from text. The paraphraser applies it to the model's rewritten
// message as a deterministic pass after its own instruction to drop such
// identifiers (see nodes_paraphrase.go); other ALL_CAPS words and tool
// names are not removed here.
func stripErrorTypeTokens(text string, knownTypes []string) string {
	for _, t := range knownTypes {
		if t == "" {
			continue
		}
		text = strings.ReplaceAll(text, t, "")
	}
	return text
}
