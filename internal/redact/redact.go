package redact

import (
	"regexp"
)

const placeholder = "[REDACTED]"

// assignmentPattern matches a credential-like name assigned a quoted literal.
// Group 1 keeps the name and operator, group 2 and 4 the quotes.
var assignmentPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|api[_-]?secret|secret|token|password|passwd|credential)\w*["']?\s*[:=]\s*)(["'])([^"']+)(["'])`)

// tokenPatterns match secret shapes that are recognizable on their own.
var tokenPatterns = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic, OpenAI and DashScope style keys
	regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{20,}`),
}

// Secrets replaces secret literals in source text with [REDACTED] and returns
// the number of replacements. Assignments keep their left-hand side and quotes
// so the code still reads as a credential assignment.
func Secrets(text string) (string, int) {
	n := 0
	result := assignmentPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := assignmentPattern.FindStringSubmatch(match)
		if m[3] == placeholder {
			return match
		}
		n++
		return m[1] + m[2] + placeholder + m[4]
	})
	for _, pat := range tokenPatterns {
		result = pat.ReplaceAllStringFunc(result, func(string) string {
			n++
			return placeholder
		})
	}
	return result, n
}
