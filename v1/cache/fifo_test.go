package cache

import (
	"context"
	"testing"
)

func TestFIFOEvictsOldestInserted(t *testing.T) {
	ctx := context.Background()
	c, err := NewFIFO(WithMaxSize[int](2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "c", 3)

	if c.Has("a") {
		t.Fatalf("expected a to be evicted")
	}
	if !c.Has("b") || !c.Has("c") {
		t.Fatalf("unexpected survivors: %v", c.Keys())
	}
}

func TestFIFOAccessDoesNotChangeOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFIFO(WithMaxSize[int](2))

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_, _, _ = c.Get(ctx, "a") // no-op for FIFO
	_ = c.Set(ctx, "c", 3)

	if c.Has("a") {
		t.Fatalf("expected a to be evicted despite the access")
	}
}

func TestFIFOReplaceMovesToNewest(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFIFO(WithMaxSize[int](2))

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "a", 10) // replace reinserts a at the newest position
	_ = c.Set(ctx, "c", 3)

	if c.Has("b") {
		t.Fatalf("expected b to be evicted after a was refreshed")
	}
	if v, _, _ := c.Get(ctx, "a"); v != 10 {
		t.Fatalf("expected refreshed value, got %d", v)
	}
}
