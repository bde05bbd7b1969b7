package codecheck

import (
	"regexp"
	"strings"
)

var (
	leadingFenceRE  = regexp.MustCompile("(?i)^\\s*```[a-z0-9_+.-]*[ \\t]*\\r?\\n")
	trailingFenceRE = regexp.MustCompile("\\r?\\n\\s*```\\s*$")
)

// Sanitize removes a leading code fence (with an optional language tag) and a
// trailing fence from model output and trims surrounding whitespace. Content
// between the fences is untouched. Stripping repeats until the text is stable,
// so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		next := leadingFenceRE.ReplaceAllString(text, "")
		next = trailingFenceRE.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == text {
			return text
		}
		text = next
	}
}
