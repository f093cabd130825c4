package constraint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Directory 缓存各交易所的交易规则快照。
// 快照按交易所整体替换，刷新失败时保留最近一次成功的数据。
type Directory struct {
	sources  []Source
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	snapshots map[string]map[string]SymbolConstraints
}

// NewDirectory 创建规则目录。
func NewDirectory(sources []Source, interval time.Duration, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Directory{
		sources:   sources,
		interval:  interval,
		logger:    logger,
		snapshots: make(map[string]map[string]SymbolConstraints),
	}
}

// RefreshAll 并发拉取所有交易所的规则集。
// 单个交易所失败只记录日志并保留旧快照，不影响其他交易所。
func (d *Directory) RefreshAll(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	var failMu sync.Mutex
	var failed []string

	for _, src := range d.sources {
		src := src
		group.Go(func() error {
			constraints, err := src.FetchConstraints(groupCtx)
			if err != nil {
				d.logger.Warn("拉取交易规则失败，沿用旧快照",
					zap.String("venue", src.Venue()),
					zap.Error(err),
				)
				failMu.Lock()
				failed = append(failed, src.Venue())
				failMu.Unlock()
				return nil
			}

			snapshot := make(map[string]SymbolConstraints, len(constraints))
			for _, c := range constraints {
				snapshot[normalizeSymbol(c.Symbol)] = c
			}

			d.mu.Lock()
			d.snapshots[src.Venue()] = snapshot
			d.mu.Unlock()

			d.logger.Info("交易规则快照已更新",
				zap.String("venue", src.Venue()),
				zap.Int("symbols", len(snapshot)),
			)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("部分交易所规则刷新失败: %s", strings.Join(failed, ","))
	}
	return nil
}

// Get 查询指定交易所与交易对的规则，未知时返回 false。
func (d *Directory) Get(venue, symbol string) (SymbolConstraints, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snapshot, ok := d.snapshots[venue]
	if !ok {
		return SymbolConstraints{}, false
	}
	c, ok := snapshot[normalizeSymbol(symbol)]
	return c, ok
}

// Run 启动时先刷新一次，随后按固定周期刷新，直到 ctx 结束。
func (d *Directory) Run(ctx context.Context) error {
	if err := d.RefreshAll(ctx); err != nil {
		d.logger.Warn("启动时刷新交易规则失败", zap.Error(err))
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case <-ticker.C:
			if err := d.RefreshAll(ctx); err != nil {
				d.logger.Warn("周期刷新交易规则失败", zap.Error(err))
			}
		}
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
