// Package chunker splits resume text into overlapping retrieval chunks.
package chunker

import "strings"

const (
	// DefaultChunkSize is the window size in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the number of characters shared between adjacent chunks.
	DefaultOverlap = 200
)

// Chunker produces a deterministic sequence of overlapping text chunks.
// It prefers to cut at paragraph, then sentence, then word boundaries and
// falls back to a hard cut when no boundary lies in the window tail.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split returns the ordered chunk texts for text. Text shorter than the
// window yields exactly one chunk equal to the full text. Empty text yields
// no chunks; rejecting empty input is the caller's job.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := c.boundary(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - c.overlap
		if next <= start {
			// Overlap would not advance; force progress.
			next = start + 1
		}
		start = next
	}
	return chunks
}

// boundary picks a cut point at or before end, searching the tail of the
// window for a natural break. The search floor keeps chunks from collapsing
// below half the window.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	floor := start + c.size/2

	// Paragraph break.
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' && i > start && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// Sentence end.
	if i := lastIndexFrom(runes, floor, end, isSentenceEnd); i >= 0 {
		return i + 1
	}
	// Line or word break.
	if i := lastIndexFrom(runes, floor, end, func(r rune) bool { return r == '\n' || r == ' ' || r == '\t' }); i >= 0 {
		return i + 1
	}
	return end
}

func lastIndexFrom(runes []rune, floor, end int, match func(rune) bool) int {
	for i := end - 1; i >= floor; i-- {
		if match(runes[i]) {
			return i
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	return strings.ContainsRune(".!?", r)
}
