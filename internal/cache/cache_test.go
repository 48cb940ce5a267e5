// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemory(0)

	c.Set("key", []byte("value"), time.Minute)
	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemory(0)

	c.Set("key", []byte("value"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCacheDeleteClear(t *testing.T) {
	c := NewMemory(0)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected deleted entry to miss")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("expected cleared entry to miss")
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewMemory(0)

	c.Set("key", []byte("value"), time.Minute)
	c.Get("key")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d, want 1", stats.Sets)
	}
	if stats.CurrentSize != 1 {
		t.Errorf("CurrentSize = %d, want 1", stats.CurrentSize)
	}
}

func TestMemoryCacheJanitor(t *testing.T) {
	c := NewMemory(10 * time.Millisecond).(*memoryCache)
	defer c.Stop()

	c.Set("key", []byte("value"), time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	stats := c.Stats()
	if stats.CurrentSize != 0 {
		t.Errorf("CurrentSize = %d, want 0 after janitor pass", stats.CurrentSize)
	}
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOp()

	c.Set("key", []byte("value"), time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Error("no-op cache must never hit")
	}
	if s := c.Stats(); s != (Stats{}) {
		t.Errorf("Stats = %+v, want zero value", s)
	}
}
