package services

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func reportText(words int) string {
	parts := make([]string, 0, words)
	for i := 0; i < words; i++ {
		parts = append(parts, fmt.Sprintf("word%04d", i))
	}
	return strings.Join(parts, " ")
}

func TestChunkerEmptyText(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "   ", "\n\n\t"} {
		got, err := NewChunker(500, 50).Split(in)
		if err != nil {
			t.Fatalf("Split(%q): %v", in, err)
		}
		if len(got) != 0 {
			t.Fatalf("Split(%q): got %d chunks want 0", in, len(got))
		}
	}
}

func TestChunkerShortTextIsOneChunk(t *testing.T) {
	t.Parallel()
	got, err := NewChunker(500, 50).Split("Revenue for FY2023 was INR 355,170 Million.")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(got) != 1 || got[0] != "Revenue for FY2023 was INR 355,170 Million." {
		t.Fatalf("unexpected chunks: %q", got)
	}
}

func TestChunkerBoundsCoverageAndOverlap(t *testing.T) {
	t.Parallel()
	text := reportText(400)
	chunks, err := NewChunker(500, 50).Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 500 {
			t.Fatalf("chunk %d too long: got=%d want<=500", i, n)
		}
	}

	joined := strings.Join(chunks, " ")
	for _, w := range strings.Fields(text) {
		if !strings.Contains(joined, w) {
			t.Fatalf("word %q missing from chunks", w)
		}
	}

	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], first) {
			t.Fatalf("chunk %d does not overlap chunk %d (starts with %q)", i, i-1, first)
		}
	}
}

func TestChunkerPrefersParagraphs(t *testing.T) {
	t.Parallel()
	para := strings.Repeat("a", 300)
	text := para + "\n\n" + strings.Repeat("b", 300)
	chunks, err := NewChunker(500, 50).Split(text)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per paragraph, got %d", len(chunks))
	}
	if chunks[0] != para {
		t.Fatalf("first chunk should be the first paragraph")
	}
}
