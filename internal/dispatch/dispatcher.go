package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tradegate/internal/audit"
	"tradegate/internal/constraint"
	"tradegate/internal/normalize"
	"tradegate/internal/operation"
	"tradegate/internal/operr"
	"tradegate/internal/pending"
	"tradegate/internal/pricefeed"
	"tradegate/internal/venue"
)

// AuditLog 是调度器对审计日志的最小依赖。
type AuditLog interface {
	RecordStaged(ctx context.Context, staged pending.Staged) error
	RecordConfirmed(ctx context.Context, operationID string) error
	RecordResult(ctx context.Context, operationID string, result audit.ResultRecord) error
}

// Dispatcher 把确认后的操作路由到对应的交易所适配器。
// 暂存时一次性解析并锁定数量，执行只使用锁定值。
type Dispatcher struct {
	adapters  map[string]venue.Adapter
	directory *constraint.Directory
	feed      pricefeed.Feed
	pending   *pending.Store
	audit     AuditLog
	logger    *zap.Logger
}

// New 创建调度器。
func New(directory *constraint.Directory, feed pricefeed.Feed, store *pending.Store, auditLog AuditLog, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		adapters:  make(map[string]venue.Adapter),
		directory: directory,
		feed:      feed,
		pending:   store,
		audit:     auditLog,
		logger:    logger,
	}
}

// Register 注册一个交易所适配器。
func (d *Dispatcher) Register(adapter venue.Adapter) {
	d.adapters[adapter.Name()] = adapter
}

// Stage 校验操作、一次性解析并锁定数量，然后暂存等待确认。
// 校验或解析失败立即返回，不产生任何部分状态。
func (d *Dispatcher) Stage(ctx context.Context, ownerID int64, externalOwnerID string, op operation.Operation) (StageOutcome, error) {
	if err := operation.Validate(&op); err != nil {
		return StageOutcome{}, err
	}

	adapter, ok := d.adapters[op.Venue]
	if !ok {
		return StageOutcome{}, operr.New(operr.CodeValidation, "未知的交易所 %q", op.Venue)
	}

	op.Meta.RiskLevel = operation.ClassifyRisk(&op)
	op.Meta.Description = operation.Describe(&op)

	staged := pending.Staged{
		Operation:       op,
		OwnerID:         ownerID,
		ExternalOwnerID: externalOwnerID,
		RiskLevel:       op.Meta.RiskLevel,
		Description:     op.Meta.Description,
	}

	preview, needsRecalc, err := d.lock(ctx, adapter, &staged)
	if err != nil {
		return StageOutcome{}, err
	}

	id, err := d.pending.Stage(staged)
	if err != nil {
		return StageOutcome{}, err
	}
	staged.OperationID = id

	if d.audit != nil {
		if auditErr := d.audit.RecordStaged(ctx, staged); auditErr != nil {
			d.logger.Warn("写入审计暂存记录失败", zap.String("operation_id", id), zap.Error(auditErr))
		}
	}

	d.logger.Info("操作已暂存，等待确认",
		zap.String("operation_id", id),
		zap.Int64("owner_id", ownerID),
		zap.String("kind", string(op.Kind)),
		zap.String("risk_level", string(op.Meta.RiskLevel)),
	)

	return StageOutcome{
		OperationID: id,
		Description: op.Meta.Description,
		RiskLevel:   op.Meta.RiskLevel,
		Preview:     preview,
		NeedsRecalc: needsRecalc,
	}, nil
}

// Confirm 认领并执行暂存操作。
// 操作号缺失视为"已处理"，幂等返回 OPERATION_NOT_FOUND；
// 认领即移除，无论执行成败每个操作号至多执行一次。
func (d *Dispatcher) Confirm(ctx context.Context, ownerID int64, operationID string) (Result, error) {
	staged, ok := d.pending.Take(ownerID, operationID)
	if !ok {
		return Result{}, operr.New(operr.CodeNotFound, "操作 %s 不存在、已过期或已处理", operationID)
	}

	if d.audit != nil {
		if err := d.audit.RecordConfirmed(ctx, operationID); err != nil {
			d.logger.Warn("写入审计确认记录失败", zap.String("operation_id", operationID), zap.Error(err))
		}
	}

	result := d.execute(ctx, staged)

	if d.audit != nil {
		if err := d.audit.RecordResult(ctx, operationID, audit.ResultRecord{
			Success:      result.Success,
			VenueOrderID: result.OrderID,
			Status:       result.Status,
			ErrorCode:    string(result.ErrorCode),
			ErrorMessage: result.ErrorMessage,
			Raw:          result.Raw,
		}); err != nil {
			d.logger.Warn("写入审计结果失败", zap.String("operation_id", operationID), zap.Error(err))
		}
	}

	d.logger.Info("操作执行完成",
		zap.String("operation_id", operationID),
		zap.Bool("success", result.Success),
		zap.String("error_code", string(result.ErrorCode)),
	)

	return result, nil
}

// Cancel 取消暂存操作。缺失视为已处理，幂等返回成功。
func (d *Dispatcher) Cancel(ctx context.Context, ownerID int64, operationID string) error {
	if removed := d.pending.Remove(ownerID, operationID); !removed {
		d.logger.Debug("取消的操作已不存在", zap.String("operation_id", operationID))
	}
	return nil
}

// Recalc 按原始弹性数量规格用最新行情重新解析，
// 先暂存新操作号、成功后才移除旧号；重算失败时旧号保持可确认。
func (d *Dispatcher) Recalc(ctx context.Context, ownerID int64, operationID string) (StageOutcome, error) {
	staged, ok := d.pending.Get(ownerID, operationID)
	if !ok {
		return StageOutcome{}, operr.New(operr.CodeNotFound, "操作 %s 不存在、已过期或已处理", operationID)
	}

	adapter, ok := d.adapters[staged.Operation.Venue]
	if !ok {
		return StageOutcome{}, operr.New(operr.CodeValidation, "未知的交易所 %q", staged.Operation.Venue)
	}

	fresh := pending.Staged{
		Operation:       staged.Operation,
		OwnerID:         staged.OwnerID,
		ExternalOwnerID: staged.ExternalOwnerID,
		RiskLevel:       staged.RiskLevel,
		Description:     staged.Description,
	}

	preview, needsRecalc, err := d.lock(ctx, adapter, &fresh)
	if err != nil {
		return StageOutcome{}, err
	}

	newID, err := d.pending.Stage(fresh)
	if err != nil {
		return StageOutcome{}, err
	}
	fresh.OperationID = newID

	// 新号落地之后才移除旧号，重算路径上不存在两头皆空的窗口。
	d.pending.Remove(ownerID, operationID)

	if d.audit != nil {
		if auditErr := d.audit.RecordStaged(ctx, fresh); auditErr != nil {
			d.logger.Warn("写入审计暂存记录失败", zap.String("operation_id", newID), zap.Error(auditErr))
		}
	}

	d.logger.Info("操作已按最新行情重算",
		zap.String("old_operation_id", operationID),
		zap.String("new_operation_id", newID),
	)

	return StageOutcome{
		OperationID: newID,
		Description: fresh.Description,
		RiskLevel:   fresh.RiskLevel,
		Preview:     preview,
		NeedsRecalc: needsRecalc,
	}, nil
}

// lock 解析操作涉及的全部数量并写入锁定字段。
func (d *Dispatcher) lock(ctx context.Context, adapter venue.Adapter, staged *pending.Staged) (preview string, needsRecalc bool, err error) {
	op := &staged.Operation

	switch op.Kind {
	case operation.KindCreateOrder, operation.KindCreateSpotOrder:
		locked, err := d.lockOrder(ctx, adapter, op.Venue, op.CreateOrder)
		if err != nil {
			return "", false, err
		}
		staged.LockedQuantity = locked.Quantity
		staged.LockedPrice = locked.Price
		staged.LockedStopPrice = locked.StopPrice
		op.Meta.OriginalInput = op.CreateOrder.Quantity.String()

		preview = fmt.Sprintf("%s %s", locked.Quantity, op.CreateOrder.Symbol)
		if locked.Price != "" {
			preview += " @ " + locked.Price
		}
		return preview, op.CreateOrder.Quantity.Type != operation.QuantityRaw, nil

	case operation.KindBatchOrders:
		locked := make([]pending.LockedOrder, 0, len(op.Batch.Orders))
		flexible := false
		for i := range op.Batch.Orders {
			o := &op.Batch.Orders[i]
			one, err := d.lockOrder(ctx, adapter, op.Venue, o)
			if err != nil {
				return "", false, operr.Wrap(operr.CodeOf(err), err, "批量订单第 %d 项无法解析", i+1)
			}
			locked = append(locked, one)
			if o.Quantity.Type != operation.QuantityRaw {
				flexible = true
			}
		}
		staged.LockedBatch = locked
		return fmt.Sprintf("%d 笔订单", len(locked)), flexible, nil

	case operation.KindClosePosition:
		return d.lockClosePosition(ctx, adapter, staged)

	default:
		// 撤单与账户配置类操作没有数量可锁。
		return staged.Description, false, nil
	}
}

// lockOrder 对单笔订单做一次数量解析与归一化。
func (d *Dispatcher) lockOrder(ctx context.Context, adapter venue.Adapter, venueName string, p *operation.CreateOrderParams) (pending.LockedOrder, error) {
	constraints, ok := d.directory.Get(venueName, p.Symbol)
	if !ok {
		return pending.LockedOrder{}, operr.New(operr.CodeConstraintsUnknown, "%s 暂无 %s 的交易规则", venueName, p.Symbol)
	}

	resolveCtx := operation.Context{}

	// 限价单以限价作为换算价格，其余取缓存价格。
	if p.Type == venue.OrderTypeLimit && p.Price > 0 {
		resolveCtx.Price = p.Price
		resolveCtx.HasPrice = true
	} else if price, ok := d.feed.GetCachedPrice(p.Symbol); ok {
		resolveCtx.Price = price
		resolveCtx.HasPrice = true
	}

	switch p.Quantity.Type {
	case operation.QuantityPercentEquity:
		account, err := adapter.GetAccount(ctx)
		if err != nil {
			return pending.LockedOrder{}, operr.Wrap(operr.CodeContextMissing, err, "按净值百分比下单需要账户净值，但查询失败")
		}
		resolveCtx.Equity = account.TotalEquity
		resolveCtx.HasEquity = account.TotalEquity > 0
	case operation.QuantityPercentPosition:
		qty, err := d.positionQuantity(ctx, adapter, p.Symbol)
		if err != nil {
			return pending.LockedOrder{}, err
		}
		resolveCtx.PositionQuantity = qty
		resolveCtx.HasPosition = qty > 0
	}

	raw, err := operation.ResolveQuantity(p.Quantity, resolveCtx)
	if err != nil {
		return pending.LockedOrder{}, err
	}

	legalQty, err := normalize.Quantity(constraints, raw)
	if err != nil {
		return pending.LockedOrder{}, err
	}
	if resolveCtx.HasPrice {
		if err := normalize.CheckNotional(constraints, legalQty, resolveCtx.Price); err != nil {
			return pending.LockedOrder{}, err
		}
	}

	locked := pending.LockedOrder{Quantity: legalQty.Text}
	if p.Type == venue.OrderTypeLimit {
		legalPrice, err := normalize.Price(constraints, p.Price)
		if err != nil {
			return pending.LockedOrder{}, err
		}
		locked.Price = legalPrice.Text
	}
	if p.Type == venue.OrderTypeStopMarket {
		legalStop, err := normalize.Price(constraints, p.StopPrice)
		if err != nil {
			return pending.LockedOrder{}, err
		}
		locked.StopPrice = legalStop.Text
	}

	return locked, nil
}

// lockClosePosition 把平仓比例换算成锁定数量与方向。
func (d *Dispatcher) lockClosePosition(ctx context.Context, adapter venue.Adapter, staged *pending.Staged) (string, bool, error) {
	op := &staged.Operation
	p := op.ClosePosition

	positions, err := adapter.GetPositions(ctx)
	if err != nil {
		return "", false, operr.Wrap(operr.CodeContextMissing, err, "平仓需要当前仓位，但查询失败")
	}

	var current *venue.Position
	for i := range positions {
		if positions[i].Symbol == p.Symbol {
			current = &positions[i]
			break
		}
	}
	if current == nil || current.Quantity <= 0 {
		return "", false, operr.New(operr.CodeContextMissing, "%s 没有可平仓位", p.Symbol)
	}

	// 平仓方向与持仓方向相反。方向来源不同的适配器大小写不一，按不敏感比较。
	side := venue.SideSell
	if strings.EqualFold(strings.TrimSpace(current.Side), "SHORT") {
		side = venue.SideBuy
	}
	staged.LockedSide = string(side)
	op.Meta.OriginalInput = fmt.Sprintf("%v%%仓位", p.Portion)

	if p.Portion >= 100 {
		// 全平走 closePosition 开关，无需锁定数量。
		staged.LockedQuantity = ""
		return fmt.Sprintf("全平 %s", p.Symbol), true, nil
	}

	constraints, ok := d.directory.Get(op.Venue, p.Symbol)
	if !ok {
		return "", false, operr.New(operr.CodeConstraintsUnknown, "%s 暂无 %s 的交易规则", op.Venue, p.Symbol)
	}

	legal, err := normalize.Quantity(constraints, current.Quantity*p.Portion/100)
	if err != nil {
		return "", false, err
	}
	staged.LockedQuantity = legal.Text

	return fmt.Sprintf("平 %s %s", p.Symbol, legal.Text), true, nil
}

// positionQuantity 返回指定交易对的当前仓位数量。
func (d *Dispatcher) positionQuantity(ctx context.Context, adapter venue.Adapter, symbol string) (float64, error) {
	positions, err := adapter.GetPositions(ctx)
	if err != nil {
		return 0, operr.Wrap(operr.CodeContextMissing, err, "按仓位百分比下单需要当前仓位，但查询失败")
	}
	for _, pos := range positions {
		if pos.Symbol == symbol {
			return pos.Quantity, nil
		}
	}
	return 0, nil
}

// execute 按操作标签穷举分发。交易所拒绝折叠进 Result，不向上抛。
func (d *Dispatcher) execute(ctx context.Context, staged pending.Staged) Result {
	op := &staged.Operation

	adapter, ok := d.adapters[op.Venue]
	if !ok {
		return Result{
			Success:      false,
			ErrorCode:    operr.CodeValidation,
			ErrorMessage: fmt.Sprintf("未知的交易所 %q", op.Venue),
		}
	}

	switch op.Kind {
	case operation.KindCreateOrder, operation.KindCreateSpotOrder:
		p := op.CreateOrder
		order, err := adapter.PlaceOrder(ctx, venue.OrderParams{
			Symbol:      p.Symbol,
			Side:        p.Side,
			Type:        p.Type,
			Quantity:    staged.LockedQuantity,
			Price:       staged.LockedPrice,
			StopPrice:   staged.LockedStopPrice,
			TimeInForce: p.TimeInForce,
			ReduceOnly:  p.ReduceOnly,
		})
		if err != nil {
			return resultFromError(err)
		}
		return resultFromOrder(order)

	case operation.KindCancelOrder, operation.KindCancelSpotOrder:
		order, err := adapter.CancelOrder(ctx, op.CancelOrder.Symbol, op.CancelOrder.OrderID)
		if err != nil {
			return resultFromError(err)
		}
		return resultFromOrder(order)

	case operation.KindCancelAllOrders:
		if err := adapter.CancelAllOrders(ctx, op.CancelAll.Symbol); err != nil {
			return resultFromError(err)
		}
		return Result{Success: true}

	case operation.KindClosePosition:
		params := venue.OrderParams{
			Symbol:     op.ClosePosition.Symbol,
			Side:       venue.Side(staged.LockedSide),
			Type:       venue.OrderTypeMarket,
			ReduceOnly: true,
		}
		if staged.LockedQuantity == "" {
			params.ClosePosition = true
		} else {
			params.Quantity = staged.LockedQuantity
		}
		order, err := adapter.PlaceOrder(ctx, params)
		if err != nil {
			return resultFromError(err)
		}
		return resultFromOrder(order)

	case operation.KindBatchOrders:
		return d.executeBatch(ctx, adapter, staged)

	case operation.KindSetLeverage:
		if err := adapter.SetLeverage(ctx, op.SetLeverage.Symbol, op.SetLeverage.Leverage); err != nil {
			return resultFromError(err)
		}
		return Result{Success: true}

	case operation.KindSetMarginType:
		if err := adapter.SetMarginType(ctx, op.SetMarginType.Symbol, op.SetMarginType.MarginType); err != nil {
			return resultFromError(err)
		}
		return Result{Success: true}

	case operation.KindSetAccountMarginMode:
		if err := adapter.SetAccountMarginMode(ctx, op.SetAccountMarginMode.MultiAssets); err != nil {
			return resultFromError(err)
		}
		return Result{Success: true}

	case operation.KindModifyIsolatedMargin:
		p := op.ModifyIsolatedMargin
		if err := adapter.ModifyIsolatedMargin(ctx, p.Symbol, p.Amount, p.Direction); err != nil {
			return resultFromError(err)
		}
		return Result{Success: true}
	}

	return Result{
		Success:      false,
		ErrorCode:    operr.CodeValidation,
		ErrorMessage: fmt.Sprintf("未知的操作类型 %q", op.Kind),
	}
}

// executeBatch 严格按提交顺序串行执行子订单。
// 首个失败后中止，剩余子订单记入失败列表；已成功的结果全部保留。
func (d *Dispatcher) executeBatch(ctx context.Context, adapter venue.Adapter, staged pending.Staged) Result {
	orders := staged.Operation.Batch.Orders
	batch := &BatchResult{}

	for i := range orders {
		o := &orders[i]
		locked := pending.LockedOrder{}
		if i < len(staged.LockedBatch) {
			locked = staged.LockedBatch[i]
		}

		result, err := adapter.PlaceOrder(ctx, venue.OrderParams{
			Symbol:      o.Symbol,
			Side:        o.Side,
			Type:        o.Type,
			Quantity:    locked.Quantity,
			Price:       locked.Price,
			StopPrice:   locked.StopPrice,
			TimeInForce: o.TimeInForce,
			ReduceOnly:  o.ReduceOnly,
		})
		if err != nil {
			batch.Failed = append(batch.Failed, FailedOrder{
				Index:        i,
				Symbol:       o.Symbol,
				ErrorCode:    executionCode(err),
				ErrorMessage: err.Error(),
			})
			// 共享保证金下后续订单的前提已失效，剩余订单不再提交。
			for j := i + 1; j < len(orders); j++ {
				batch.Failed = append(batch.Failed, FailedOrder{
					Index:        j,
					Symbol:       orders[j].Symbol,
					ErrorCode:    operr.CodePartialBatch,
					ErrorMessage: "前序订单失败，未提交",
				})
			}
			return Result{
				Success:      false,
				ErrorCode:    operr.CodePartialBatch,
				ErrorMessage: fmt.Sprintf("%d/%d 笔子订单失败", len(batch.Failed), len(orders)),
				Batch:        batch,
			}
		}
		batch.Succeeded = append(batch.Succeeded, result)
	}

	return Result{Success: true, Batch: batch}
}
