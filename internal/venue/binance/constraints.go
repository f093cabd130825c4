package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/valyala/fastjson"

	"tradegate/internal/constraint"
)

// fetchConstraints 拉取 exchangeInfo 并抽取下单过滤器。
// 合约与现货的过滤器结构一致，仅最小名义价值的字段名不同。
func (c *Client) fetchConstraints(ctx context.Context, path string) ([]constraint.SymbolConstraints, error) {
	body, err := c.public(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, fmt.Errorf("拉取 %s 交易规则失败: %w", c.venue, err)
	}

	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 交易规则失败: %w", c.venue, err)
	}

	symbols := v.GetArray("symbols")
	result := make([]constraint.SymbolConstraints, 0, len(symbols))

	for _, sym := range symbols {
		if status := string(sym.GetStringBytes("status")); status != "TRADING" {
			continue
		}

		sc := constraint.SymbolConstraints{
			Symbol: string(sym.GetStringBytes("symbol")),
		}
		if sc.Symbol == "" {
			continue
		}

		for _, filter := range sym.GetArray("filters") {
			switch string(filter.GetStringBytes("filterType")) {
			case "LOT_SIZE":
				sc.MinQuantity = floatField(filter, "minQty")
				sc.MaxQuantity = floatField(filter, "maxQty")
				sc.QuantityStep = floatField(filter, "stepSize")
			case "PRICE_FILTER":
				sc.MinPrice = floatField(filter, "minPrice")
				sc.MaxPrice = floatField(filter, "maxPrice")
				sc.PriceStep = floatField(filter, "tickSize")
			case "MIN_NOTIONAL":
				// 合约端字段名为 notional，现货旧版为 minNotional。
				if n := floatField(filter, "notional"); n > 0 {
					sc.MinNotional = n
				} else {
					sc.MinNotional = floatField(filter, "minNotional")
				}
			case "NOTIONAL":
				sc.MinNotional = floatField(filter, "minNotional")
			}
		}

		result = append(result, sc)
	}

	return result, nil
}

func floatField(v *fastjson.Value, key string) float64 {
	raw := v.GetStringBytes(key)
	if len(raw) == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0
	}
	return f
}
