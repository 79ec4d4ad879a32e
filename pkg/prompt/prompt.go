// Package prompt frames free-form template descriptions into model prompts
// that steer text-generation models towards a single self-contained SPX-GC
// HTML document.
package prompt

import (
	"strings"
)

const (
	// Prefix opens every model prompt. It constrains the model to a single
	// document and forbids commentary.
	Prefix = "You are an expert broadcast graphics developer building SPX-GC templates.\n" +
		"Create one complete, self-contained HTML document (inline CSS and JavaScript only, no external files) " +
		"for the following template request:\n\n"

	// Suffix closes every model prompt.
	Suffix = "\n\nRespond with the HTML document only. Start your answer with <!DOCTYPE html> " +
		"and do not add explanations, markdown fences, or any text after the closing </html> tag.\n"
)

// Build wraps the user's description in the fixed instructional framing. The
// text is trimmed but otherwise embedded verbatim. Callers are expected to
// reject blank input before calling Build.
func Build(userText string) string {
	var b strings.Builder
	text := strings.TrimSpace(userText)
	b.Grow(len(Prefix) + len(text) + len(Suffix) + 4)
	b.WriteString(Prefix)
	b.WriteString("\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"")
	b.WriteString(Suffix)
	return b.String()
}

// Blank reports whether the description is empty after trimming whitespace.
func Blank(userText string) bool {
	return strings.TrimSpace(userText) == ""
}
