package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingStore struct {
	err    error
	saves  int
	loads  int
	delete int
}

func (f *failingStore) Load(context.Context, string) (*Conversation, error) {
	f.loads++
	return nil, f.err
}

func (f *failingStore) Save(context.Context, *Conversation) error {
	f.saves++
	return f.err
}

func (f *failingStore) Delete(context.Context, string) error {
	f.delete++
	return f.err
}

func TestTieredStoreFillsCacheOnMiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryStore()
	primary := NewMemoryStore()
	if err := primary.Save(ctx, NewConversation("conv-1", "u1", time.Now())); err != nil {
		t.Fatalf("seed primary: %v", err)
	}

	store := NewTieredStore(cache, primary)
	if _, err := store.Load(ctx, "conv-1"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := cache.Load(ctx, "conv-1"); err != nil {
		t.Fatalf("cache was not filled: %v", err)
	}
}

func TestTieredStoreCacheFailureFallsBackToPrimary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := &failingStore{err: errors.New("redis down")}
	primary := NewMemoryStore()
	store := NewTieredStore(cache, primary)

	conv := NewConversation("conv-1", "u1", time.Now())
	if err := store.Save(ctx, conv); err != nil {
		t.Fatalf("Save() error = %v, cache errors must not surface", err)
	}
	got, err := store.Load(ctx, "conv-1")
	if err != nil || got.ID != "conv-1" {
		t.Fatalf("Load() = %v, %v", got, err)
	}
	if cache.saves != 2 || cache.loads != 1 {
		t.Fatalf("cache calls saves=%d loads=%d", cache.saves, cache.loads)
	}
}

func TestTieredStorePrimaryFailureSurfaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewMemoryStore()
	primary := &failingStore{err: errors.New("db down")}
	store := NewTieredStore(cache, primary)

	if err := store.Save(ctx, NewConversation("conv-1", "u1", time.Now())); err == nil {
		t.Fatal("expected primary save error")
	}
	if _, err := cache.Load(ctx, "conv-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("cache must not be written when primary fails, got %v", err)
	}
}
