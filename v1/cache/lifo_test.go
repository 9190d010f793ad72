package cache

import (
	"context"
	"testing"
)

func TestLIFOEvictsNewestInserted(t *testing.T) {
	ctx := context.Background()
	c, err := NewLIFO(WithMaxSize[int](2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "c", 3) // b is the newest resident, so b goes

	if c.Has("b") {
		t.Fatalf("expected b to be evicted")
	}
	if !c.Has("a") || !c.Has("c") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}

func TestLIFOPopOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := NewLIFO[int]()
	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "c", 3)

	for _, want := range []string{"c", "b", "a"} {
		key, _, ok := c.PopItem()
		if !ok || key != want {
			t.Fatalf("expected %q, got %q (ok=%v)", want, key, ok)
		}
	}
}
