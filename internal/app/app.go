package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/constraint"
	"tradegate/internal/dispatch"
	"tradegate/internal/pending"
	"tradegate/internal/pricefeed"
	"tradegate/internal/store"
	"tradegate/internal/venue/binance"
	"tradegate/internal/venue/hyperliquid"
)

// App 聚合核心依赖并驱动系统生命周期。
// 对话界面与行情喂价任务作为外部协作方，通过 Dispatcher 与 Feed 接入。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store

	feed       *pricefeed.MemoryFeed
	directory  *constraint.Directory
	pending    *pending.Store
	dispatcher *dispatch.Dispatcher

	futures *binance.FuturesAdapter
	spot    *binance.SpotAdapter
}

// New 创建 App 实例并完成全部组件装配。
func New(cfg *config.Config, logger *zap.Logger, st *store.Store) (*App, error) {
	feed := pricefeed.NewMemoryFeed(cfg.PriceFeed.MaxAge)

	futures := binance.NewFuturesAdapter(cfg.Binance, logger)
	spot := binance.NewSpotAdapter(cfg.Binance, logger)

	sources := []constraint.Source{futures, spot}

	var hl *hyperliquid.Adapter
	if cfg.Hyperliquid.Enabled {
		hl = hyperliquid.NewAdapter(cfg.Hyperliquid, logger)
		sources = append(sources, hl)
	}

	auditLog, err := audit.NewLog(st, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化审计日志失败: %w", err)
	}

	pendingStore := pending.NewStore(cfg.Pending.TTL, cfg.Pending.SweepInterval, logger)
	directory := constraint.NewDirectory(sources, cfg.Constraints.RefreshInterval, logger)

	dispatcher := dispatch.New(directory, feed, pendingStore, auditLog, logger)
	dispatcher.Register(futures)
	dispatcher.Register(spot)
	if hl != nil {
		dispatcher.Register(hl)
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		feed:       feed,
		directory:  directory,
		pending:    pendingStore,
		dispatcher: dispatcher,
		futures:    futures,
		spot:       spot,
	}, nil
}

// Dispatcher 暴露给外部界面（对话层）提交操作。
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Feed 暴露给外部喂价任务写入最新价格。
func (a *App) Feed() *pricefeed.MemoryFeed {
	return a.feed
}

// Run 启动后台循环并阻塞到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("交易操作管道已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Bool("hyperliquid_enabled", a.cfg.Hyperliquid.Enabled),
	)

	// 启动前先对一次表，失败不阻塞启动，下一轮重试。
	a.resyncClocks(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.directory.Run(groupCtx)
	})
	group.Go(func() error {
		return a.pending.Run(groupCtx)
	})
	group.Go(func() error {
		return a.resyncLoop(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}

	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

// resyncLoop 周期性与币安服务器对时，抵消本地时钟漂移。
func (a *App) resyncLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Binance.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case <-ticker.C:
			a.resyncClocks(ctx)
		}
	}
}

func (a *App) resyncClocks(ctx context.Context) {
	if err := a.futures.Client().Signer().Resync(ctx, a.futures.Client()); err != nil {
		a.logger.Warn("合约端对时失败", zap.Error(err))
	}
	if err := a.spot.Client().Signer().Resync(ctx, a.spot.Client()); err != nil {
		a.logger.Warn("现货端对时失败", zap.Error(err))
	}
}
