package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/otoshimono/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "items.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	item := &models.Item{
		ID:          "item1",
		Kind:        models.KindLost,
		Title:       "Blue umbrella",
		Description: "folding, wooden handle",
		Location:    "Platform 3",
		ImageURL:    "https://example.com/u.jpg",
		Features:    []float32{0.6, 0, -0.8, 1e-7},
	}
	if err := store.SaveItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	if item.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetItem(ctx, "item1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Blue umbrella" || got.Kind != models.KindLost || got.Location != "Platform 3" {
		t.Errorf("got %+v", got)
	}
	if len(got.Features) != 4 || got.Features[2] != -0.8 || got.Features[3] != 1e-7 {
		t.Errorf("features round trip: got %v", got.Features)
	}

	created := got.CreatedAt
	time.Sleep(10 * time.Millisecond)
	item.Title = "Navy umbrella"
	item.CreatedAt = time.Time{}
	if err := store.SaveItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetItem(ctx, "item1")
	if got.Title != "Navy umbrella" {
		t.Errorf("expected update, got %s", got.Title)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed on upsert: %v -> %v", created, got.CreatedAt)
	}

	if err := store.DeleteItem(ctx, "item1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetItem(ctx, "item1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteItem(ctx, "item1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLiteStorage_PlaceholderItem(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	item := &models.Item{
		ID: "p1", Kind: models.KindFound, Title: "Glove",
		Features: make([]float32, 8), Placeholder: true, PlaceholderReason: "image load failed",
	}
	if err := store.SaveItem(ctx, item); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetItem(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Placeholder || got.PlaceholderReason != "image load failed" || len(got.Features) != 8 {
		t.Errorf("got %+v", got)
	}
	if n, _ := store.CountPlaceholders(ctx); n != 1 {
		t.Errorf("CountPlaceholders = %d, want 1", n)
	}
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, it := range []*models.Item{
		{ID: "a", Kind: models.KindLost, Title: "A"},
		{ID: "b", Kind: models.KindFound, Title: "B"},
		{ID: "c", Kind: models.KindFound, Title: "C"},
	} {
		if err := store.SaveItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListItems(ctx, "", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}
	found, _ := store.ListItems(ctx, models.KindFound, 0, 10)
	if len(found) != 2 {
		t.Errorf("expected 2 found items, got %d", len(found))
	}
	page, _ := store.ListItems(ctx, "", 2, 10)
	if len(page) != 1 {
		t.Errorf("expected 1 item on second page, got %d", len(page))
	}

	if n, err := store.CountItems(ctx, ""); err != nil || n != 3 {
		t.Errorf("CountItems(all): %v, %d", err, n)
	}
	if n, _ := store.CountItems(ctx, models.KindLost); n != 1 {
		t.Errorf("CountItems(lost) = %d, want 1", n)
	}
}

func TestSQLiteStorage_RejectsUnknownKind(t *testing.T) {
	store := newTestStorage(t)
	err := store.SaveItem(context.Background(), &models.Item{ID: "x", Kind: "stolen", Title: "X"})
	if err == nil {
		t.Fatal("expected constraint error for unknown kind")
	}
}

func TestFeatureCodec(t *testing.T) {
	if encodeFeatures(nil) != nil {
		t.Error("empty vector should encode to nil")
	}
	v, err := decodeFeatures(nil)
	if err != nil || v != nil {
		t.Errorf("decode nil: %v, %v", v, err)
	}
	if _, err := decodeFeatures([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
