package cache

import (
	"context"
	"testing"
)

func TestMRUEvictsMostRecentlyAccessed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMRU(WithMaxSize[int](2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_, _, _ = c.Get(ctx, "a") // a becomes the most recently used
	_ = c.Set(ctx, "c", 3)

	if c.Has("a") {
		t.Fatalf("expected a to be evicted")
	}
	if !c.Has("b") || !c.Has("c") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}

func TestMRUInsertionCountsAsAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := NewMRU(WithMaxSize[int](2))

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "c", 3) // b is the most recent resident

	if c.Has("b") {
		t.Fatalf("expected b to be evicted")
	}
	if !c.Has("a") || !c.Has("c") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}
