package pricefeed

import (
	"testing"
	"time"
)

func TestMemoryFeed_SetAndGet(t *testing.T) {
	f := NewMemoryFeed(2 * time.Minute)
	f.Set("BTCUSDT", 50000)

	price, ok := f.GetCachedPrice("BTCUSDT")
	if !ok || price != 50000 {
		t.Fatalf("expected 50000, got %v (ok=%v)", price, ok)
	}

	// 符号查询大小写不敏感。
	if _, ok := f.GetCachedPrice("btcusdt"); !ok {
		t.Error("symbol lookup must be case-insensitive")
	}
	if _, ok := f.GetCachedPrice("ETHUSDT"); ok {
		t.Error("unknown symbol must report absent")
	}
}

func TestMemoryFeed_MaxAge(t *testing.T) {
	f := NewMemoryFeed(2 * time.Minute)

	current := time.Now()
	f.now = func() time.Time { return current }

	f.Set("BTCUSDT", 50000)

	current = current.Add(time.Minute)
	if _, ok := f.GetCachedPrice("BTCUSDT"); !ok {
		t.Fatal("price within max age must be available")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := f.GetCachedPrice("BTCUSDT"); ok {
		t.Fatal("stale price must be unavailable")
	}
}

func TestMemoryFeed_RejectsNonPositive(t *testing.T) {
	f := NewMemoryFeed(2 * time.Minute)
	f.Set("BTCUSDT", 0)
	f.Set("BTCUSDT", -1)

	if _, ok := f.GetCachedPrice("BTCUSDT"); ok {
		t.Fatal("non-positive prices must be ignored")
	}
}
