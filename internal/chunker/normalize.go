package chunker

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe = regexp.MustCompile(`-\s*\n\s*`)
	spaceBreakRe  = regexp.MustCompile(`\s+\n`)
	hspaceRunRe   = regexp.MustCompile(`[ \t]+`)
)

// Normalize flattens raw extracted page text into a single line of prose.
// Words hyphenated across a line break are re-joined ("nutri-\ntion" becomes
// "nutrition"), whitespace runs collapse to one space and the result is
// trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	t := strings.ReplaceAll(raw, "\r", " ")
	t = hyphenBreakRe.ReplaceAllString(t, "")
	t = spaceBreakRe.ReplaceAllString(t, "\n")
	t = strings.ReplaceAll(t, "\n", " ")
	t = hspaceRunRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
