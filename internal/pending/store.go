package pending

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradegate/internal/operation"
)

// Staged 是一条等待确认的操作。
// LockedQuantity/LockedPrice 为暂存时一次性解析并锁定的固定精度文本，
// 执行必须原样使用，确保用户确认的就是发出去的。
type Staged struct {
	OperationID     string
	Operation       operation.Operation
	OwnerID         int64
	ExternalOwnerID string
	CreatedAt       time.Time
	RiskLevel       operation.RiskLevel
	Description     string

	LockedQuantity  string
	LockedPrice     string
	LockedStopPrice string
	LockedSide      string
	LockedBatch     []LockedOrder
}

// LockedOrder 为批量订单中单笔的锁定结果。
type LockedOrder struct {
	Quantity  string
	Price     string
	StopPrice string
}

type entry struct {
	staged    Staged
	expiresAt time.Time
}

// Store 是带 TTL 的内存暂存区。
// 键空间按 ownerID 分区，不同用户并发暂存互不冲突；
// 过期没有显式事件，后续 Get 直接返回不存在。
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	sweep   time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore 创建暂存区。
func NewStore(ttl, sweepInterval time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		sweep:   sweepInterval,
		logger:  logger,
		now:     time.Now,
	}
}

// Stage 暂存一条操作并返回新生成的操作号。操作号短小、URL 安全且不复用。
func (s *Store) Stage(staged Staged) (string, error) {
	id, err := newOperationID()
	if err != nil {
		return "", fmt.Errorf("生成操作号失败: %w", err)
	}

	staged.OperationID = id
	staged.CreatedAt = s.now()

	s.mu.Lock()
	s.entries[key(staged.OwnerID, id)] = entry{
		staged:    staged,
		expiresAt: staged.CreatedAt.Add(s.ttl),
	}
	s.mu.Unlock()

	return id, nil
}

// Get 查询暂存操作，过期或不存在返回 false。
func (s *Store) Get(ownerID int64, operationID string) (Staged, bool) {
	k := key(ownerID, operationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		return Staged{}, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, k)
		return Staged{}, false
	}
	return e.staged, true
}

// Take 原子地取出并移除暂存操作。
// 确认流程用它认领操作，保证每个操作号至多执行一次。
func (s *Store) Take(ownerID int64, operationID string) (Staged, bool) {
	k := key(ownerID, operationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		return Staged{}, false
	}
	delete(s.entries, k)
	if s.now().After(e.expiresAt) {
		return Staged{}, false
	}
	return e.staged, true
}

// Remove 移除暂存操作，已不存在时返回 false。
func (s *Store) Remove(ownerID int64, operationID string) bool {
	k := key(ownerID, operationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[k]; !ok {
		return false
	}
	delete(s.entries, k)
	return true
}

// Run 周期清扫过期条目，直到 ctx 结束。
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case <-ticker.C:
			if removed := s.sweepExpired(); removed > 0 {
				s.logger.Debug("清理过期的暂存操作", zap.Int("removed", removed))
			}
		}
	}
}

func (s *Store) sweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func key(ownerID int64, operationID string) string {
	return fmt.Sprintf("%d:%s", ownerID, operationID)
}

// newOperationID 生成 8 字符的 URL 安全操作号。
func newOperationID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
