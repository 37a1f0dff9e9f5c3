package detector

import (
	"fmt"
	"strings"
)

// missingVariableError reports a template placeholder with no corresponding
// entry in the variable map. As recorded in DESIGN.md, this deviates from
// original_source/orchestrator/error_detection/base.py's
// RegexErrorPattern._format_template, which catches the KeyError and falls
// back to the raw, unrendered template; here the pattern is instead treated
// as a non-match for this detection call rather than surfacing a half
// rendered message to a student.
type missingVariableError struct {
	Variable string
}

func (e *missingVariableError) Error() string {
	return fmt.Sprintf("template: unknown variable %q", e.Variable)
}

// renderTemplate substitutes {name} placeholders from vars. A doubled brace
// ({{ or }}) is an escaped literal, matching Python str.format's own escaping
// convention that the original templates were authored against.
func renderTemplate(template string, vars map[string]string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("template: unterminated placeholder at offset %d", i)
			}
			name := template[i+1 : i+end]
			val, ok := vars[name]
			if !ok {
				return "", &missingVariableError{Variable: name}
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			b.WriteByte('}')
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}
