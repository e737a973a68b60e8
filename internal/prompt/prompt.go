// Package prompt builds the grounding prompt sent to the chat oracle.
package prompt

import (
	"fmt"
	"strings"
)

const (
	preamble            = "Use the following information to answer the user's question."
	contextLabel        = "Context: "
	questionLabel       = "Question: "
	fallbackInstruction = "If the question is unrelated to the context, answer as best you can without relying on the context."

	// ContextPrefix introduces the retrieved passages inside the context block.
	ContextPrefix = "Similar documents: "
	// Separator sits between two retrieved passages.
	Separator = ", "
)

// Context joins the retrieved passages in rank order. Passages are kept verbatim.
func Context(passages []string) string {
	return ContextPrefix + strings.Join(passages, Separator)
}

// Grounded wraps a context block and the user's question.
func Grounded(context, question string) string {
	return fmt.Sprintf("%s\n\n%s%s\n%s%s\n\n%s",
		preamble, contextLabel, context, questionLabel, question, fallbackInstruction)
}

// Parse recovers the context block and the question from a prompt made by
// Grounded. ok is false for any other prompt.
func Parse(p string) (context, question string, ok bool) {
	_, rest, ok := strings.Cut(p, "\n"+contextLabel)
	if !ok {
		return "", "", false
	}
	context, rest, ok = strings.Cut(rest, "\n"+questionLabel)
	if !ok {
		return "", "", false
	}
	question, _, ok = strings.Cut(rest, "\n\n"+fallbackInstruction)
	if !ok {
		return "", "", false
	}
	return strings.TrimPrefix(context, ContextPrefix), question, true
}
