package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "spaces only", text: "   ", want: 0},
		{name: "sentence", text: "Saliva starts digestion.", want: 3},
		{name: "collapsed whitespace", text: "a  b\tc\nd", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Words.Count(tt.text))
		})
	}
}

func TestNew_Words(t *testing.T) {
	c, err := New("words")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count("two words"))
}

func TestTiktoken(t *testing.T) {
	c, err := NewTiktoken("")
	require.NoError(t, err)

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 2, c.Count("hello world"))
}

func TestNewTiktoken_UnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("no_such_encoding")
	assert.Error(t, err)
}
