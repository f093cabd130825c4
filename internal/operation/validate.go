package operation

import (
	"tradegate/internal/operr"
	"tradegate/internal/venue"
)

// Validate 校验操作的参数形状与各字段取值。
// MARKET 单禁止携带价格，LIMIT 单必须携带价格与有效方式；
// 枚举一律闭集校验。任何失败都在暂存之前返回，不产生部分状态。
func Validate(op *Operation) error {
	if op == nil {
		return operr.New(operr.CodeValidation, "操作不能为空")
	}
	if op.Venue == "" {
		return operr.New(operr.CodeValidation, "操作缺少目标交易所")
	}
	if err := validateShape(op); err != nil {
		return err
	}

	switch op.Kind {
	case KindCreateOrder:
		return validateCreateOrder(op.CreateOrder)
	case KindCreateSpotOrder:
		// 现货通道没有持仓与触发语义，这两类字段到不了交易所。
		if op.CreateOrder.Type == venue.OrderTypeStopMarket {
			return operr.New(operr.CodeValidation, "现货订单不支持触发单")
		}
		if op.CreateOrder.ReduceOnly {
			return operr.New(operr.CodeValidation, "现货订单不支持只减仓")
		}
		return validateCreateOrder(op.CreateOrder)
	case KindCancelOrder, KindCancelSpotOrder:
		return validateCancelOrder(op.CancelOrder)
	case KindCancelAllOrders:
		if op.CancelAll.Symbol == "" {
			return operr.New(operr.CodeValidation, "全量撤单缺少交易对")
		}
	case KindClosePosition:
		p := op.ClosePosition
		if p.Symbol == "" {
			return operr.New(operr.CodeValidation, "平仓操作缺少交易对")
		}
		if p.Portion <= 0 || p.Portion > 100 {
			return operr.New(operr.CodeValidation, "平仓比例必须位于(0,100]，收到 %v", p.Portion)
		}
	case KindBatchOrders:
		if len(op.Batch.Orders) == 0 {
			return operr.New(operr.CodeValidation, "批量下单不能为空")
		}
		for i := range op.Batch.Orders {
			if err := validateCreateOrder(&op.Batch.Orders[i]); err != nil {
				return operr.Wrap(operr.CodeValidation, err, "批量订单第 %d 项不合法", i+1)
			}
		}
	case KindSetLeverage:
		p := op.SetLeverage
		if p.Symbol == "" {
			return operr.New(operr.CodeValidation, "杠杆调整缺少交易对")
		}
		if p.Leverage < 1 || p.Leverage > 125 {
			return operr.New(operr.CodeValidation, "杠杆倍数必须位于[1,125]，收到 %d", p.Leverage)
		}
	case KindSetMarginType:
		p := op.SetMarginType
		if p.Symbol == "" {
			return operr.New(operr.CodeValidation, "保证金模式调整缺少交易对")
		}
		if !p.MarginType.Valid() {
			return operr.New(operr.CodeValidation, "未知的保证金模式 %q", p.MarginType)
		}
	case KindSetAccountMarginMode:
		// 布尔开关无附加约束。
	case KindModifyIsolatedMargin:
		p := op.ModifyIsolatedMargin
		if p.Symbol == "" {
			return operr.New(operr.CodeValidation, "逐仓保证金调整缺少交易对")
		}
		if p.Amount <= 0 {
			return operr.New(operr.CodeValidation, "保证金金额必须为正数，收到 %v", p.Amount)
		}
		if !p.Direction.Valid() {
			return operr.New(operr.CodeValidation, "未知的保证金调整方向 %d", p.Direction)
		}
	}

	return nil
}

// validateShape 确保恰好设置了与标签匹配的那一个参数记录。
func validateShape(op *Operation) error {
	set := 0
	for _, p := range []bool{
		op.CreateOrder != nil,
		op.CancelOrder != nil,
		op.CancelAll != nil,
		op.ClosePosition != nil,
		op.Batch != nil,
		op.SetLeverage != nil,
		op.SetMarginType != nil,
		op.SetAccountMarginMode != nil,
		op.ModifyIsolatedMargin != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return operr.New(operr.CodeValidation, "操作 %s 必须恰好携带一组参数，实际 %d 组", op.Kind, set)
	}

	var match bool
	switch op.Kind {
	case KindCreateOrder, KindCreateSpotOrder:
		match = op.CreateOrder != nil
	case KindCancelOrder, KindCancelSpotOrder:
		match = op.CancelOrder != nil
	case KindCancelAllOrders:
		match = op.CancelAll != nil
	case KindClosePosition:
		match = op.ClosePosition != nil
	case KindBatchOrders:
		match = op.Batch != nil
	case KindSetLeverage:
		match = op.SetLeverage != nil
	case KindSetMarginType:
		match = op.SetMarginType != nil
	case KindSetAccountMarginMode:
		match = op.SetAccountMarginMode != nil
	case KindModifyIsolatedMargin:
		match = op.ModifyIsolatedMargin != nil
	default:
		return operr.New(operr.CodeValidation, "未知的操作类型 %q", op.Kind)
	}
	if !match {
		return operr.New(operr.CodeValidation, "操作 %s 的参数记录与标签不匹配", op.Kind)
	}
	return nil
}

func validateCreateOrder(p *CreateOrderParams) error {
	if p.Symbol == "" {
		return operr.New(operr.CodeValidation, "订单缺少交易对")
	}
	if !p.Side.Valid() {
		return operr.New(operr.CodeValidation, "未知的订单方向 %q", p.Side)
	}
	if !p.Type.Valid() {
		return operr.New(operr.CodeValidation, "未知的订单类型 %q", p.Type)
	}
	if err := validateQuantitySpec(p.Quantity); err != nil {
		return err
	}

	switch p.Type {
	case venue.OrderTypeMarket:
		if p.Price != 0 {
			return operr.New(operr.CodeValidation, "市价单不能携带价格")
		}
		if p.TimeInForce != "" {
			return operr.New(operr.CodeValidation, "市价单不能携带有效方式")
		}
	case venue.OrderTypeLimit:
		if p.Price <= 0 {
			return operr.New(operr.CodeValidation, "限价单必须携带正的价格")
		}
		if !p.TimeInForce.Valid() {
			return operr.New(operr.CodeValidation, "限价单必须携带合法的有效方式，收到 %q", p.TimeInForce)
		}
	case venue.OrderTypeStopMarket:
		if p.StopPrice <= 0 {
			return operr.New(operr.CodeValidation, "触发单必须携带正的触发价")
		}
		if p.Price != 0 {
			return operr.New(operr.CodeValidation, "触发市价单不能携带限价")
		}
	}

	return nil
}

func validateCancelOrder(p *CancelOrderParams) error {
	if p.Symbol == "" {
		return operr.New(operr.CodeValidation, "撤单缺少交易对")
	}
	if p.OrderID == "" {
		return operr.New(operr.CodeValidation, "撤单缺少订单号")
	}
	return nil
}

func validateQuantitySpec(spec QuantitySpec) error {
	switch spec.Type {
	case QuantityRaw, QuantityUSD:
		if spec.Value <= 0 {
			return operr.New(operr.CodeValidation, "数量必须为正数，收到 %v", spec.Value)
		}
	case QuantityPercentEquity, QuantityPercentPosition:
		if spec.Value <= 0 || spec.Value > 100 {
			return operr.New(operr.CodeValidation, "百分比数量必须位于(0,100]，收到 %v", spec.Value)
		}
	default:
		return operr.New(operr.CodeValidation, "未知的数量规格 %q", spec.Type)
	}
	return nil
}
