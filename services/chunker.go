package services

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunker cuts document text into overlapping windows, preferring paragraph,
// line and word boundaries before falling back to a character cut.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(size, overlap int) *Chunker {
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split returns the chunks in document order. Blank text yields no chunks.
func (c *Chunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch) != "" {
			out = append(out, ch)
		}
	}
	return out, nil
}
