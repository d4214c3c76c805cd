package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart-kitchen/internal/infrastructure/config"
	"smart-kitchen/internal/pkg/common"
)

func testManager(t *testing.T, maxSize int, ttl time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(&config.CacheConfig{
		Enabled:         true,
		Backend:         "memory",
		MaxSize:         maxSize,
		TTL:             ttl,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestManagerSetGet(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	ctx := context.Background()

	if _, err := m.Get(ctx, "prompt-a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := m.Set(ctx, "prompt-a", "response-a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, err := m.Get(ctx, "prompt-a")
	if err != nil {
		t.Fatalf("Get after Set: %v", err)
	}
	if value != "response-a" {
		t.Errorf("value = %q, want %q", value, "response-a")
	}

	// 不同提示詞不可命中同一條目
	if _, err := m.Get(ctx, "prompt-b"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss for different prompt, got %v", err)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := testManager(t, 10, 20*time.Millisecond)
	ctx := context.Background()

	if err := m.Set(ctx, "prompt", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx, "prompt"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after TTL, got %v", err)
	}
}

func TestManagerLRUEviction(t *testing.T) {
	m := testManager(t, 2, time.Minute)
	ctx := context.Background()

	m.Set(ctx, "p1", "v1")
	m.Set(ctx, "p2", "v2")
	m.Get(ctx, "p2") // p1 成為最久未使用
	if err := m.Set(ctx, "p3", "v3"); err != nil {
		t.Fatalf("Set after eviction: %v", err)
	}

	if _, err := m.Get(ctx, "p1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected p1 evicted, got %v", err)
	}
	if _, err := m.Get(ctx, "p3"); err != nil {
		t.Errorf("expected p3 present, got %v", err)
	}
}

func TestNilManagerDisabled(t *testing.T) {
	var m *Manager
	if _, err := m.Get(context.Background(), "p"); !errors.Is(err, common.ErrCacheDisabled) {
		t.Errorf("nil manager Get = %v, want ErrCacheDisabled", err)
	}
	if err := m.Set(context.Background(), "p", "v"); err != nil {
		t.Errorf("nil manager Set = %v, want nil", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("nil manager Close = %v, want nil", err)
	}
}
