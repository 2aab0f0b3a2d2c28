package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLRUProviderSetGet(t *testing.T) {
	provider, err := NewLRUProvider(8, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := provider.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want %q", got, "v")
	}
}

func TestLRUProviderMiss(t *testing.T) {
	provider, err := NewLRUProvider(8, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := provider.Get(context.Background(), "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestLRUProviderExpiry(t *testing.T) {
	provider, err := NewLRUProvider(8, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestLRUProviderValueCopied(t *testing.T) {
	provider, err := NewLRUProvider(8, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()

	value := []byte("original")
	if err := provider.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'X'
	got, err := provider.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("stored value was not copied: %q", got)
	}
}

func TestLRUProviderDel(t *testing.T) {
	provider, err := NewLRUProvider(8, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := provider.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestLRUProviderEviction(t *testing.T) {
	provider, err := NewLRUProvider(2, time.Minute)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := provider.Set(ctx, key, []byte(key), 0); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if _, err := provider.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected oldest key evicted, got %v", err)
	}
	if _, err := provider.Get(ctx, "c"); err != nil {
		t.Fatalf("newest key must survive: %v", err)
	}
}

func TestNoopProvider(t *testing.T) {
	provider := NoopProvider{}
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := provider.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop must always miss, got %v", err)
	}
	if err := provider.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
