package operation

import (
	"fmt"

	"tradegate/internal/venue"
)

// ClassifyRisk 返回操作的风险分级。
// 纯函数，只影响确认界面与审计展示，执行路径从不读取。
func ClassifyRisk(op *Operation) RiskLevel {
	switch op.Kind {
	case KindCancelOrder, KindCancelSpotOrder, KindCancelAllOrders:
		return RiskLow

	case KindSetLeverage, KindSetMarginType, KindModifyIsolatedMargin:
		return RiskMedium

	case KindSetAccountMarginMode, KindClosePosition:
		return RiskHigh

	case KindCreateOrder, KindCreateSpotOrder:
		if op.CreateOrder != nil && op.CreateOrder.Type == venue.OrderTypeMarket {
			return RiskHigh
		}
		return RiskMedium

	case KindBatchOrders:
		if op.Batch != nil {
			for _, o := range op.Batch.Orders {
				if o.Type == venue.OrderTypeMarket {
					return RiskHigh
				}
			}
		}
		return RiskMedium
	}
	return RiskHigh
}

// Describe 生成操作的人类可读描述，供确认界面与审计记录使用。
func Describe(op *Operation) string {
	switch op.Kind {
	case KindCreateOrder:
		return describeOrder("合约", op.CreateOrder)
	case KindCreateSpotOrder:
		return describeOrder("现货", op.CreateOrder)
	case KindCancelOrder:
		return fmt.Sprintf("撤销 %s 订单 %s", op.CancelOrder.Symbol, op.CancelOrder.OrderID)
	case KindCancelSpotOrder:
		return fmt.Sprintf("撤销 %s 现货订单 %s", op.CancelOrder.Symbol, op.CancelOrder.OrderID)
	case KindCancelAllOrders:
		return fmt.Sprintf("撤销 %s 全部挂单", op.CancelAll.Symbol)
	case KindClosePosition:
		if op.ClosePosition.Portion >= 100 {
			return fmt.Sprintf("平掉 %s 全部仓位", op.ClosePosition.Symbol)
		}
		return fmt.Sprintf("平掉 %s 仓位的 %v%%", op.ClosePosition.Symbol, op.ClosePosition.Portion)
	case KindBatchOrders:
		return fmt.Sprintf("批量提交 %d 笔订单", len(op.Batch.Orders))
	case KindSetLeverage:
		return fmt.Sprintf("调整 %s 杠杆至 %dx", op.SetLeverage.Symbol, op.SetLeverage.Leverage)
	case KindSetMarginType:
		mode := "全仓"
		if op.SetMarginType.MarginType == venue.MarginTypeIsolated {
			mode = "逐仓"
		}
		return fmt.Sprintf("切换 %s 为%s模式", op.SetMarginType.Symbol, mode)
	case KindSetAccountMarginMode:
		if op.SetAccountMarginMode.MultiAssets {
			return "开启账户联合保证金模式"
		}
		return "关闭账户联合保证金模式"
	case KindModifyIsolatedMargin:
		action := "追加"
		if op.ModifyIsolatedMargin.Direction == venue.MarginReduce {
			action = "减少"
		}
		return fmt.Sprintf("%s %s 逐仓保证金 %v", action, op.ModifyIsolatedMargin.Symbol, op.ModifyIsolatedMargin.Amount)
	}
	return string(op.Kind)
}

func describeOrder(market string, p *CreateOrderParams) string {
	side := "买入"
	if p.Side == venue.SideSell {
		side = "卖出"
	}

	switch p.Type {
	case venue.OrderTypeLimit:
		return fmt.Sprintf("%s限价%s %s %s @ %v", market, side, p.Symbol, p.Quantity, p.Price)
	case venue.OrderTypeStopMarket:
		return fmt.Sprintf("%s触发%s %s %s 触发价 %v", market, side, p.Symbol, p.Quantity, p.StopPrice)
	default:
		return fmt.Sprintf("%s市价%s %s %s", market, side, p.Symbol, p.Quantity)
	}
}
