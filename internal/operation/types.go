package operation

import (
	"fmt"

	"tradegate/internal/venue"
)

// Kind 是写操作的标签。参数形状必须与标签一致，
// 由 Validate 强制约束，而不是依赖调用方自觉。
type Kind string

const (
	KindCreateOrder          Kind = "CREATE_ORDER"
	KindCancelOrder          Kind = "CANCEL_ORDER"
	KindCancelAllOrders      Kind = "CANCEL_ALL_ORDERS"
	KindClosePosition        Kind = "CLOSE_POSITION"
	KindBatchOrders          Kind = "BATCH_ORDERS"
	KindSetLeverage          Kind = "SET_LEVERAGE"
	KindSetMarginType        Kind = "SET_MARGIN_TYPE"
	KindSetAccountMarginMode Kind = "SET_ACCOUNT_MARGIN_MODE"
	KindModifyIsolatedMargin Kind = "MODIFY_ISOLATED_MARGIN"
	KindCreateSpotOrder      Kind = "CREATE_SPOT_ORDER"
	KindCancelSpotOrder      Kind = "CANCEL_SPOT_ORDER"
)

// RiskLevel 是确认界面与审计使用的风险分级，执行路径从不读取。
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// QuantityType 是弹性数量规格的标签。
type QuantityType string

const (
	// QuantityRaw 为基础币数量。
	QuantityRaw QuantityType = "RAW"
	// QuantityUSD 为美元名义价值。
	QuantityUSD QuantityType = "USD"
	// QuantityPercentEquity 为账户净值百分比。
	QuantityPercentEquity QuantityType = "PERCENT_OF_EQUITY"
	// QuantityPercentPosition 为当前仓位百分比。
	QuantityPercentPosition QuantityType = "PERCENT_OF_POSITION"
)

// QuantitySpec 是用户输入的弹性数量规格，
// 由 ResolveQuantity 统一解析为具体的基础币数量。
type QuantitySpec struct {
	Type  QuantityType
	Value float64
}

// String 返回规格的原始单位描述，保存在元数据中供重算使用。
func (s QuantitySpec) String() string {
	switch s.Type {
	case QuantityUSD:
		return fmt.Sprintf("$%v", s.Value)
	case QuantityPercentEquity:
		return fmt.Sprintf("%v%%净值", s.Value)
	case QuantityPercentPosition:
		return fmt.Sprintf("%v%%仓位", s.Value)
	default:
		return fmt.Sprintf("%v", s.Value)
	}
}

// CreateOrderParams 为合约或现货下单参数。
type CreateOrderParams struct {
	Symbol      string
	Side        venue.Side
	Type        venue.OrderType
	Quantity    QuantitySpec
	Price       float64
	StopPrice   float64
	TimeInForce venue.TimeInForce
	ReduceOnly  bool
}

// CancelOrderParams 为撤单参数。
type CancelOrderParams struct {
	Symbol  string
	OrderID string
}

// CancelAllOrdersParams 为全量撤单参数。
type CancelAllOrdersParams struct {
	Symbol string
}

// ClosePositionParams 为平仓参数，Portion 取 (0,100] 的仓位百分比。
type ClosePositionParams struct {
	Symbol  string
	Portion float64
}

// BatchOrdersParams 为批量下单参数。
type BatchOrdersParams struct {
	Orders []CreateOrderParams
}

// SetLeverageParams 为杠杆调整参数。
type SetLeverageParams struct {
	Symbol   string
	Leverage int
}

// SetMarginTypeParams 为保证金模式参数。
type SetMarginTypeParams struct {
	Symbol     string
	MarginType venue.MarginType
}

// SetAccountMarginModeParams 为账户级联合保证金参数。
type SetAccountMarginModeParams struct {
	MultiAssets bool
}

// ModifyIsolatedMarginParams 为逐仓保证金调整参数。
type ModifyIsolatedMarginParams struct {
	Symbol    string
	Amount    float64
	Direction venue.MarginDirection
}

// Metadata 是随操作携带的展示信息，只供确认界面与审计使用。
type Metadata struct {
	Description   string
	RiskLevel     RiskLevel
	OriginalInput string
}

// Operation 是带标签的写操作变体。
// 标签之外恰好一个参数指针非空；现货下单/撤单复用
// CreateOrder/CancelOrder 参数记录。
type Operation struct {
	Kind  Kind
	Venue string

	CreateOrder          *CreateOrderParams
	CancelOrder          *CancelOrderParams
	CancelAll            *CancelAllOrdersParams
	ClosePosition        *ClosePositionParams
	Batch                *BatchOrdersParams
	SetLeverage          *SetLeverageParams
	SetMarginType        *SetMarginTypeParams
	SetAccountMarginMode *SetAccountMarginModeParams
	ModifyIsolatedMargin *ModifyIsolatedMarginParams

	Meta Metadata
}

// Symbol 返回操作涉及的交易对，账户级操作返回空串。
func (op *Operation) Symbol() string {
	switch op.Kind {
	case KindCreateOrder, KindCreateSpotOrder:
		if op.CreateOrder != nil {
			return op.CreateOrder.Symbol
		}
	case KindCancelOrder, KindCancelSpotOrder:
		if op.CancelOrder != nil {
			return op.CancelOrder.Symbol
		}
	case KindCancelAllOrders:
		if op.CancelAll != nil {
			return op.CancelAll.Symbol
		}
	case KindClosePosition:
		if op.ClosePosition != nil {
			return op.ClosePosition.Symbol
		}
	case KindSetLeverage:
		if op.SetLeverage != nil {
			return op.SetLeverage.Symbol
		}
	case KindSetMarginType:
		if op.SetMarginType != nil {
			return op.SetMarginType.Symbol
		}
	case KindModifyIsolatedMargin:
		if op.ModifyIsolatedMargin != nil {
			return op.ModifyIsolatedMargin.Symbol
		}
	}
	return ""
}
