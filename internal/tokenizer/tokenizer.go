// Package tokenizer counts tokens the way the embedding model does, so the
// chunker can enforce the model's token budget.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding matches the OpenAI text-embedding-3 models.
const DefaultEncoding = "cl100k_base"

// Counter returns the number of tokens in text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(text string) int

// Count calls f(text).
func (f CounterFunc) Count(text string) int { return f(text) }

var loaderOnce sync.Once

// Tiktoken counts BPE tokens with an embedded (offline) vocabulary.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding. An empty name selects DefaultEncoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Words approximates token counts by whitespace-separated words. Selected
// with encoding "words" for offline runs, and in tests where exact BPE
// counts would make expectations opaque.
var Words = CounterFunc(func(text string) int {
	return len(strings.Fields(text))
})

// New returns the counter for the named encoding. "words" selects Words.
func New(encoding string) (Counter, error) {
	if encoding == "words" {
		return Words, nil
	}
	return NewTiktoken(encoding)
}
