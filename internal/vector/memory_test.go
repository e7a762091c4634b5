package vector

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []string{"a", "b", "c"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[0].Score != 100 {
		t.Errorf("top result: got %+v", results[0])
	}
	if results[1].ID != "b" || results[1].Score != 99 {
		t.Errorf("second result: got %+v", results[1])
	}
}

func TestMemoryIndex_AddReplaces(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Fatalf("expected size 1 after replace, got %d", idx.Size())
	}
	results, _ := idx.Search(ctx, []float32{0, 1}, 1)
	if len(results) != 1 || results[0].Score != 100 {
		t.Errorf("replacement not visible: %+v", results)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	var dm *DimensionMismatchError
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); !errors.As(err, &dm) {
		t.Errorf("Add: expected DimensionMismatchError, got %v", err)
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); !errors.As(err, &dm) {
		t.Errorf("Search: expected DimensionMismatchError, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("rejected batch should not be stored")
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y", "z"}, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err := idx.Remove(ctx, []string{"x", "missing"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2, got %d", idx.Size())
	}
	// positions are rebuilt, so replacing y must not touch z
	_ = idx.Add(ctx, []string{"y"}, [][]float32{{1, 0}})
	results, _ := idx.Search(ctx, []float32{1, 0}, 3)
	if len(results) != 2 || results[0].ID != "y" {
		t.Errorf("unexpected results after remove+replace: %+v", results)
	}
}

func TestNewMemoryIndex_InvalidDimensions(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}
