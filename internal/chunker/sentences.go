package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits prose after '.', '!' or '?' when followed by
// whitespace. The terminal punctuation stays with its sentence and empty
// fragments are dropped.
//
// This is a heuristic tuned for continuous prose: abbreviations ("e.g. x"),
// decimals followed by a space and quoted speech are split naively.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if i >= len(text) || !unicode.IsSpace(next) {
			continue
		}
		out = appendSentence(out, text[start:i])
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		start = i
	}
	return appendSentence(out, text[start:])
}

func appendSentence(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
