package venue

import "context"

// Adapter 是所有交易所后端的统一执行接口。
// 每个交易所各实现一份，调度器只面向这一个形状。
type Adapter interface {
	Name() string
	PlaceOrder(ctx context.Context, params OrderParams) (OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (OrderResult, error)
	CancelAllOrders(ctx context.Context, symbol string) error
	GetPositions(ctx context.Context) ([]Position, error)
	GetAccount(ctx context.Context) (Account, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol string, marginType MarginType) error
	SetAccountMarginMode(ctx context.Context, multiAssets bool) error
	ModifyIsolatedMargin(ctx context.Context, symbol string, amount float64, direction MarginDirection) error
}
