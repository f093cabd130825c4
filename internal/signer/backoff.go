package signer

import (
	"math/rand"
	"sync"
	"time"
)

// Usage 汇总交易所返回的限频用量。
type Usage struct {
	Weight1m  int
	Orders10s int
	Orders1m  int
}

const (
	weightThreshold1m  = 1000
	orderThreshold10s  = 45
	orderThreshold1m   = 1100
	backoffBaseDelay   = 1 * time.Second
	backoffMaxDelay    = 60 * time.Second
	backoffJitterRatio = 0.2
)

// ShouldBackoff 判断限频用量是否已越过退避阈值。
func ShouldBackoff(u Usage) bool {
	return u.Weight1m >= weightThreshold1m ||
		u.Orders10s >= orderThreshold10s ||
		u.Orders1m >= orderThreshold1m
}

// BackoffDelay 返回带抖动的指数退避时长，封顶 backoffMaxDelay。
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 30 {
		retryCount = 30
	}

	delay := backoffBaseDelay * time.Duration(1<<retryCount)
	if delay > backoffMaxDelay {
		delay = backoffMaxDelay
	}

	jitter := time.Duration((rand.Float64()*2 - 1) * backoffJitterRatio * float64(delay))
	delay += jitter
	if delay < 0 {
		delay = backoffBaseDelay
	}
	if delay > backoffMaxDelay {
		delay = backoffMaxDelay
	}
	return delay
}

// UsageTracker 记录交易所最近一次响应头中的限频用量。
type UsageTracker struct {
	mu    sync.Mutex
	usage Usage
}

// Update 覆盖写入最新用量，零值字段保留旧读数。
func (t *UsageTracker) Update(u Usage) {
	t.mu.Lock()
	if u.Weight1m > 0 {
		t.usage.Weight1m = u.Weight1m
	}
	if u.Orders10s > 0 {
		t.usage.Orders10s = u.Orders10s
	}
	if u.Orders1m > 0 {
		t.usage.Orders1m = u.Orders1m
	}
	t.mu.Unlock()
}

// Snapshot 返回当前用量。
func (t *UsageTracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}
