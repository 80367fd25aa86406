package services

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryIndexSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	chunks := []string{
		"Revenue for the year was INR 355,170 Million.",
		"The board declared a final dividend.",
		"Net profit rose to INR 20,000 Million.",
		"Employees grew to 12,000 across offices.",
		"Segment revenue came mostly from retail.",
		"Auditors issued an unqualified opinion.",
	}
	idx, err := NewMemoryIndexBuilder(&hashEmbedder{}, 0).Build(ctx, chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer idx.Close(ctx)

	if idx.Len() != len(chunks) {
		t.Fatalf("Len: got=%d want=%d", idx.Len(), len(chunks))
	}
	if idx.ID() == "" {
		t.Fatalf("index id should be set")
	}

	got, err := idx.Search(ctx, "board declared a final dividend", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: got=%d want=2", len(got))
	}
	if got[0].ChunkIndex != 1 {
		t.Fatalf("top hit: got chunk %d want 1", got[0].ChunkIndex)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not ordered by score: %+v", got)
		}
	}

	again, err := idx.Search(ctx, "board declared a final dividend", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i := range got {
		if got[i] != again[i] {
			t.Fatalf("search is not deterministic: %+v vs %+v", got, again)
		}
	}
}

func TestMemoryIndexSearchClampsK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	chunks := []string{"a b", "c d", "e f", "g h", "i j", "k l"}
	idx, err := NewMemoryIndexBuilder(&hashEmbedder{}, 0).Build(ctx, chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := idx.Search(ctx, "anything", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != DefaultTopK {
		t.Fatalf("k<=0 should use the default: got=%d want=%d", len(got), DefaultTopK)
	}

	got, err = idx.Search(ctx, "anything", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != len(chunks) {
		t.Fatalf("k should clamp to index size: got=%d want=%d", len(got), len(chunks))
	}
}

func TestMemoryIndexTiesKeepChunkOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	chunks := []string{"other text", "same words", "more text", "same words", "same words"}
	idx, err := NewMemoryIndexBuilder(&hashEmbedder{}, 0).Build(ctx, chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := idx.Search(ctx, "same words", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []int{1, 3, 4}
	for i, w := range want {
		if got[i].ChunkIndex != w {
			t.Fatalf("position %d: got chunk %d want %d", i, got[i].ChunkIndex, w)
		}
	}
}

func TestMemoryIndexBuildErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewMemoryIndexBuilder(&hashEmbedder{}, 0).Build(ctx, nil)
	var ibe *IndexBuildError
	if !errors.As(err, &ibe) {
		t.Fatalf("zero chunks: expected IndexBuildError, got %v", err)
	}

	emb := &hashEmbedder{}
	emb.setFail(errEmbeddingDown)
	_, err = NewMemoryIndexBuilder(emb, 0).Build(ctx, []string{"text"})
	if !errors.As(err, &ibe) {
		t.Fatalf("embedding failure: expected IndexBuildError, got %v", err)
	}
	if !errors.Is(err, errEmbeddingDown) {
		t.Fatalf("embedding failure should wrap the cause: %v", err)
	}
}

func TestCosine(t *testing.T) {
	t.Parallel()
	if got := cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors: got=%v", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors: got=%v", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector: got=%v", got)
	}
}
