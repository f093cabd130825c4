package signer

import (
	"context"
	"sync"
	"time"
)

// TimeSource 提供交易所服务器时间，由各交易所客户端实现。
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Clock 维护单个交易所的本地时钟偏移。
// 偏移只由显式 Resync 写入（单写多读），读取到轻微过期的偏移
// 可以接受，因为 recvWindow 容忍小幅漂移。
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock 创建零偏移时钟。
func NewClock() *Clock {
	return &Clock{}
}

// Now 返回叠加偏移后的当前时间。
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset)
}

// Offset 返回当前偏移。
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// SetOffset 写入新的偏移。
func (c *Clock) SetOffset(offset time.Duration) {
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

// Reset 将偏移清零。
func (c *Clock) Reset() {
	c.SetOffset(0)
}
