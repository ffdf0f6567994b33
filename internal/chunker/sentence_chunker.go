package chunker

import (
	"iter"
	"strings"

	"docrag/internal/tokenizer"
)

// Defaults for Options fields left at zero.
const (
	DefaultSentencesPerChunk = 20
	DefaultOverlap           = 2
	DefaultMaxTokens         = 1300
	DefaultMinTokens         = 50
)

// Options configures the sliding sentence window.
type Options struct {
	SentencesPerChunk int
	Overlap           int
	// MaxTokens caps a chunk by trimming trailing sentences. Zero disables the cap.
	MaxTokens int
	// MinTokens drops chunks shorter than this.
	MinTokens int
}

// SentenceChunker groups sentences into overlapping, token-bounded chunks.
type SentenceChunker struct {
	opts    Options
	counter tokenizer.Counter
}

// NewSentenceChunker returns a chunker counting tokens with counter.
// A non-positive SentencesPerChunk falls back to DefaultSentencesPerChunk and
// a negative Overlap to zero.
func NewSentenceChunker(counter tokenizer.Counter, opts Options) *SentenceChunker {
	if opts.SentencesPerChunk <= 0 {
		opts.SentencesPerChunk = DefaultSentencesPerChunk
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.MaxTokens < 0 {
		opts.MaxTokens = 0
	}
	return &SentenceChunker{opts: opts, counter: counter}
}

// Step is the number of sentences the window advances per iteration.
func (c *SentenceChunker) Step() int {
	return max(1, c.opts.SentencesPerChunk-c.opts.Overlap)
}

// Windows returns the [start, end) sentence bounds visited for n sentences,
// before token trimming and the minimum-size filter.
func (c *SentenceChunker) Windows(n int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += c.Step() {
		out = append(out, [2]int{start, min(start+c.opts.SentencesPerChunk, n)})
	}
	return out
}

// Chunks yields the chunk strings for one page's sentences. The sequence is
// lazy and may be ranged over more than once.
func (c *SentenceChunker) Chunks(sentences []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, w := range c.Windows(len(sentences)) {
			piece := sentences[w[0]:w[1]]
			chunk := strings.Join(piece, " ")
			n := c.counter.Count(chunk)
			for c.opts.MaxTokens > 0 && n > c.opts.MaxTokens && len(piece) > 1 {
				piece = piece[:len(piece)-1]
				chunk = strings.Join(piece, " ")
				n = c.counter.Count(chunk)
			}
			if n < c.opts.MinTokens {
				continue
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// ChunkText segments already-normalized page text and chunks it.
func (c *SentenceChunker) ChunkText(text string) iter.Seq[string] {
	return c.Chunks(SplitSentences(text))
}
