package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTTLSetGet(t *testing.T) {
	c := NewTTL()
	c.Set("ticker:binance:BTCUSDT", 64250.5, time.Minute)

	v, ok := c.Get("ticker:binance:BTCUSDT")
	if !ok {
		t.Fatalf("expected hit")
	}
	if v.(float64) != 64250.5 {
		t.Fatalf("got %v, want 64250.5", v)
	}

	if _, ok := c.Get("ticker:binance:ETHUSDT"); ok {
		t.Fatalf("expected miss for absent key")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL()
	c.Set("k", "v", 10*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read, len=%d", c.Len())
	}
}

func TestTTLOverwriteRefreshes(t *testing.T) {
	c := NewTTL()
	c.Set("k", 1, 10*time.Millisecond)
	c.Set("k", 2, time.Minute)

	time.Sleep(20 * time.Millisecond)

	v, ok := c.Get("k")
	if !ok || v.(int) != 2 {
		t.Fatalf("got %v %v, want 2 true", v, ok)
	}
}

func TestTTLCleanup(t *testing.T) {
	c := NewTTL()
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("short:%d", i), i, time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("long:%d", i), i, time.Minute)
	}

	time.Sleep(10 * time.Millisecond)

	if removed := c.Cleanup(); removed != 10 {
		t.Fatalf("removed %d, want 10", removed)
	}
	if c.Len() != 5 {
		t.Fatalf("len=%d, want 5", c.Len())
	}
}

func TestTTLConcurrent(t *testing.T) {
	c := NewTTL()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k:%d:%d", n, j%20)
				c.Set(key, j, time.Minute)
				c.Get(key)
				if j%50 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestKey(t *testing.T) {
	tests := []struct {
		op   string
		args []any
		want string
	}{
		{"ticker", []any{"binance", "BTCUSDT"}, "ticker:binance:BTCUSDT"},
		{"balance", nil, "balance"},
		{"candles", []any{"ETHUSDT", "1h", 100}, "candles:ETHUSDT:1h:100"},
	}
	for _, tt := range tests {
		if got := Key(tt.op, tt.args...); got != tt.want {
			t.Fatalf("Key(%q, %v) = %q, want %q", tt.op, tt.args, got, tt.want)
		}
	}
}
