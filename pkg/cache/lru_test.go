package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRUAddAndGet(t *testing.T) {
	c := New(10, 5*time.Second)
	c.Add("ITM-a1", []byte("png-bytes"))

	got, ok := c.Get("ITM-a1")
	if !ok {
		t.Fatal("expected cache hit, got miss")
	}
	if string(got) != "png-bytes" {
		t.Fatalf("expected %q, got %q", "png-bytes", string(got))
	}
}

func TestLRUGetMiss(t *testing.T) {
	c := New(10, 5*time.Second)

	got, ok := c.Get("absent")
	if ok {
		t.Fatal("expected cache miss, got hit")
	}
	if got != nil {
		t.Fatalf("expected nil value on miss, got %q", string(got))
	}
}

func TestLRUExpiry(t *testing.T) {
	c := New(10, 50*time.Millisecond)
	c.Add("k", []byte("v"))

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected cache miss after expiry, got hit")
	}
	// The expired read also cleans the entry out.
	if c.Len() != 0 {
		t.Fatalf("expected 0 entries after expired get, got %d", c.Len())
	}
}

func TestLRUEvictsOldestAtCapacity(t *testing.T) {
	c := New(3, 5*time.Second)

	c.Add("a", []byte("1"))
	time.Sleep(time.Millisecond) // distinct insertion timestamps
	c.Add("b", []byte("2"))
	time.Sleep(time.Millisecond)
	c.Add("c", []byte("3"))

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}

	c.Add("d", []byte("4"))

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected oldest entry 'a' to be evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("expected %q to survive eviction", key)
		}
	}
}

func TestLRUUpdateDoesNotEvict(t *testing.T) {
	c := New(2, 5*time.Second)
	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))

	// Re-adding an existing key updates in place at capacity.
	c.Add("a", []byte("1b"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	got, ok := c.Get("a")
	if !ok || string(got) != "1b" {
		t.Fatalf("expected updated value %q, got %q (hit=%v)", "1b", string(got), ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("expected 'b' to survive an in-place update")
	}
}

func TestLRUNilReceiver(t *testing.T) {
	var c *LRU

	c.Add("k", []byte("v")) // must not panic
	if _, ok := c.Get("k"); ok {
		t.Fatal("nil cache should always miss")
	}
	if c.Len() != 0 {
		t.Fatalf("nil cache Len = %d, want 0", c.Len())
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := New(100, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Add(key, []byte("v"))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Fatalf("cache exceeded capacity: %d entries", c.Len())
	}
}
