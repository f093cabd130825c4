package venue

import "time"

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid 判断方向是否在闭集内。
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType 表示订单类型。
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

// Valid 判断订单类型是否在闭集内。
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopMarket:
		return true
	}
	return false
}

// TimeInForce 表示限价单有效方式。
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Valid 判断有效方式是否在闭集内。
func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
		return true
	}
	return false
}

// MarginType 表示保证金模式。
type MarginType string

const (
	MarginTypeIsolated MarginType = "ISOLATED"
	MarginTypeCrossed  MarginType = "CROSSED"
)

// Valid 判断保证金模式是否在闭集内。
func (m MarginType) Valid() bool {
	return m == MarginTypeIsolated || m == MarginTypeCrossed
}

// MarginDirection 表示逐仓保证金调整方向。
type MarginDirection int

const (
	MarginAdd    MarginDirection = 1
	MarginReduce MarginDirection = 2
)

// Valid 判断调整方向是否合法。
func (d MarginDirection) Valid() bool {
	return d == MarginAdd || d == MarginReduce
}

// OrderParams 是发往交易所的订单参数。
// Quantity 与 Price 为已锁定的固定精度文本，执行层原样发送，绝不重算。
type OrderParams struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      string
	Price         string
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClosePosition bool
	StopPrice     string
	ClientOrderID string
}

// OrderResult 为交易所返回的订单回执。
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Status        string
	Raw           string
}

// Position 表示单个持仓。
type Position struct {
	Symbol        string
	Side          string
	Quantity      float64
	EntryPrice    float64
	MarkPrice     float64
	Leverage      float64
	UnrealizedPnl float64
	MarginType    string
	UpdatedAt     time.Time
}

// Account 表示账户资金概览。
type Account struct {
	TotalEquity      float64
	AvailableBalance float64
	Currency         string
	UpdatedAt        time.Time
}
