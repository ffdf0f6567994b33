package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: nil},
		{name: "blank", text: "   ", want: nil},
		{name: "single without terminal", text: "no punctuation here", want: []string{"no punctuation here"}},
		{name: "letters", text: "A. B. C. D.", want: []string{"A.", "B.", "C.", "D."}},
		{name: "mixed terminals", text: "Really? Yes! Fine.", want: []string{"Really?", "Yes!", "Fine."}},
		{name: "punctuation without space", text: "Version 1.5 shipped. Done.", want: []string{"Version 1.5 shipped.", "Done."}},
		{name: "multiple spaces", text: "One.   Two.", want: []string{"One.", "Two."}},
		{name: "trailing fragment", text: "Whole sentence. fragment", want: []string{"Whole sentence.", "fragment"}},
		{name: "abbreviation is split", text: "See e.g. this.", want: []string{"See e.g.", "this."}},
		{name: "ellipsis", text: "Wait... what?", want: []string{"Wait...", "what?"}},
		{name: "unicode", text: "Café ouvert. Très bien!", want: []string{"Café ouvert.", "Très bien!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}
