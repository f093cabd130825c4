package operation

import "tradegate/internal/operr"

// Context 提供弹性数量解析所需的外部数据。
// Has* 标记区分"值为零"与"数据不可用"。
type Context struct {
	Price    float64
	HasPrice bool

	Equity    float64
	HasEquity bool

	PositionQuantity float64
	HasPosition      bool
}

// ResolveQuantity 把弹性数量规格解析为具体的基础币数量。
// 所有解析路径集中在这一个函数；缺少上下文时返回
// CONTEXT_MISSING，并说明缺了什么。
func ResolveQuantity(spec QuantitySpec, ctx Context) (float64, error) {
	if err := validateQuantitySpec(spec); err != nil {
		return 0, err
	}

	switch spec.Type {
	case QuantityRaw:
		return spec.Value, nil

	case QuantityUSD:
		if !ctx.HasPrice || ctx.Price <= 0 {
			return 0, operr.New(operr.CodeContextMissing,
				"按美元金额下单需要当前价格，但价格数据不可用")
		}
		return spec.Value / ctx.Price, nil

	case QuantityPercentEquity:
		if !ctx.HasEquity || ctx.Equity <= 0 {
			return 0, operr.New(operr.CodeContextMissing,
				"按净值百分比下单需要账户净值，但账户数据不可用")
		}
		if !ctx.HasPrice || ctx.Price <= 0 {
			return 0, operr.New(operr.CodeContextMissing,
				"按净值百分比下单需要当前价格，但价格数据不可用")
		}
		return ctx.Equity * spec.Value / 100 / ctx.Price, nil

	case QuantityPercentPosition:
		if !ctx.HasPosition {
			return 0, operr.New(operr.CodeContextMissing,
				"按仓位百分比下单需要当前仓位，但仓位数据不可用")
		}
		if ctx.PositionQuantity <= 0 {
			return 0, operr.New(operr.CodeContextMissing,
				"按仓位百分比下单要求存在非零仓位")
		}
		return ctx.PositionQuantity * spec.Value / 100, nil
	}

	return 0, operr.New(operr.CodeValidation, "未知的数量规格 %q", spec.Type)
}
