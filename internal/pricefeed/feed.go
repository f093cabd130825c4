package pricefeed

import (
	"strings"
	"sync"
	"time"
)

// Feed 提供只读的缓存价格查询。价格由外部行情任务独立刷新，
// 本管道从不主动轮询上游。
type Feed interface {
	GetCachedPrice(symbol string) (float64, bool)
}

type entry struct {
	price     float64
	updatedAt time.Time
}

// MemoryFeed 是带最大时效的内存价格缓存。
type MemoryFeed struct {
	mu     sync.RWMutex
	prices map[string]entry
	maxAge time.Duration
	now    func() time.Time
}

// NewMemoryFeed 创建内存价格缓存，maxAge 之外的价格视为不可用。
func NewMemoryFeed(maxAge time.Duration) *MemoryFeed {
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &MemoryFeed{
		prices: make(map[string]entry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Set 由上游行情任务写入最新价格。
func (f *MemoryFeed) Set(symbol string, price float64) {
	if price <= 0 {
		return
	}
	f.mu.Lock()
	f.prices[normalizeSymbol(symbol)] = entry{price: price, updatedAt: f.now()}
	f.mu.Unlock()
}

// GetCachedPrice 返回缓存价格；缺失或过期时返回 false。
func (f *MemoryFeed) GetCachedPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	e, ok := f.prices[normalizeSymbol(symbol)]
	f.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if f.now().Sub(e.updatedAt) > f.maxAge {
		return 0, false
	}
	return e.price, true
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

var _ Feed = (*MemoryFeed)(nil)
