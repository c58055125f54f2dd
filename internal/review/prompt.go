package review

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a professional code review assistant. You are good at finding security, performance and style problems in source code.`

// SystemPrompt returns the system message sent with every remote review.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt constructs the review instruction for code written in language.
func BuildUserPrompt(code, language string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following %s code and find potential problems.\n\n", language)

	b.WriteString("Look at three areas:\n")
	b.WriteString("1. Security: SQL injection, XSS, hardcoded credentials, unsafe function calls and similar\n")
	b.WriteString("2. Performance: inefficient loops, memory leaks, unnecessary computation and similar\n")
	b.WriteString("3. Style: naming conventions, code structure, best practices and similar\n\n")

	b.WriteString("For every problem provide:\n")
	b.WriteString("- type: security, performance or style\n")
	b.WriteString("- severity: critical, high, medium or low\n")
	b.WriteString("- title: a short description\n")
	b.WriteString("- description: a detailed explanation of the problem\n")
	b.WriteString("- suggestion: how to fix it\n")
	b.WriteString("- line: the line range as [start, end]\n")
	b.WriteString("- codeExample: an example of the fix (optional)\n\n")

	b.WriteString("Code:\n")
	fmt.Fprintf(&b, "```%s\n%s\n```\n\n", language, code)

	b.WriteString("Return the result as a JSON array with one object per problem. Return only JSON, no other text.")
	return b.String()
}
