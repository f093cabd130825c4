package constraint

import "context"

// SymbolConstraints 描述单个交易对在某交易所的下单规则。
type SymbolConstraints struct {
	Symbol       string
	MinQuantity  float64
	MaxQuantity  float64
	QuantityStep float64
	MinPrice     float64
	MaxPrice     float64
	PriceStep    float64
	MinNotional  float64
}

// Source 表示一个可拉取完整规则集的交易所端点。
type Source interface {
	Venue() string
	FetchConstraints(ctx context.Context) ([]SymbolConstraints, error)
}
