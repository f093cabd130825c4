package normalize

import (
	"github.com/shopspring/decimal"

	"tradegate/internal/constraint"
	"tradegate/internal/operr"
)

// Legal 表示已对齐步长的合法数值及其固定精度文本。
// Text 严格按照步长自身的小数位数格式化，发往交易所时必须原样使用。
type Legal struct {
	Value decimal.Decimal
	Text  string
}

// Float 返回合法值的浮点表示。
func (l Legal) Float() float64 {
	f, _ := l.Value.Float64()
	return f
}

// Quantity 将原始数量对齐到交易对的数量步长。
// 对齐结果低于最小数量时返回 QuantityTooSmallError，并携带
// 基础币与计价币两种单位下的最小值供上层提示。
func Quantity(c constraint.SymbolConstraints, raw float64) (Legal, error) {
	if raw <= 0 {
		return Legal{}, operr.New(operr.CodeValidation, "数量必须为正数，收到 %v", raw)
	}

	legal := snap(raw, c.MinQuantity, c.QuantityStep)

	if c.MaxQuantity > 0 && legal.Value.GreaterThan(decimal.NewFromFloat(c.MaxQuantity)) {
		legal = snapDown(c.MaxQuantity, c.MinQuantity, c.QuantityStep)
	}

	if legal.Value.LessThan(decimal.NewFromFloat(c.MinQuantity)) {
		minQty := snap(c.MinQuantity, c.MinQuantity, c.QuantityStep)
		return Legal{}, &operr.QuantityTooSmallError{
			Symbol:      c.Symbol,
			MinQuantity: minQty.Text,
			MinNotional: decimal.NewFromFloat(c.MinNotional).String(),
		}
	}

	return legal, nil
}

// Price 将原始价格对齐到交易对的价格步长，并收敛到合法区间内。
func Price(c constraint.SymbolConstraints, raw float64) (Legal, error) {
	if raw <= 0 {
		return Legal{}, operr.New(operr.CodeValidation, "价格必须为正数，收到 %v", raw)
	}

	legal := snap(raw, c.MinPrice, c.PriceStep)

	if c.MinPrice > 0 && legal.Value.LessThan(decimal.NewFromFloat(c.MinPrice)) {
		legal = snap(c.MinPrice, c.MinPrice, c.PriceStep)
	}
	if c.MaxPrice > 0 && legal.Value.GreaterThan(decimal.NewFromFloat(c.MaxPrice)) {
		legal = snapDown(c.MaxPrice, c.MinPrice, c.PriceStep)
	}

	return legal, nil
}

// CheckNotional 校验名义价值（数量×价格）不低于交易所要求。
// 低于要求时返回 QuantityTooSmallError，最小数量按当前价格反推并对齐步长。
func CheckNotional(c constraint.SymbolConstraints, qty Legal, price float64) error {
	if c.MinNotional <= 0 || price <= 0 {
		return nil
	}

	notional := qty.Value.Mul(decimal.NewFromFloat(price))
	minNotional := decimal.NewFromFloat(c.MinNotional)
	if notional.GreaterThanOrEqual(minNotional) {
		return nil
	}

	required := c.MinNotional / price
	minQty := snapUp(required, c.MinQuantity, c.QuantityStep)
	if minQty.Value.LessThan(decimal.NewFromFloat(c.MinQuantity)) {
		minQty = snap(c.MinQuantity, c.MinQuantity, c.QuantityStep)
	}

	return &operr.QuantityTooSmallError{
		Symbol:      c.Symbol,
		MinQuantity: minQty.Text,
		MinNotional: minNotional.String(),
	}
}

// snap 按 legal = min + round((raw-min)/step)*step 对齐。
func snap(raw, min, step float64) Legal {
	return snapRounded(raw, min, step, roundNearest)
}

func snapDown(raw, min, step float64) Legal {
	return snapRounded(raw, min, step, roundFloor)
}

func snapUp(raw, min, step float64) Legal {
	return snapRounded(raw, min, step, roundCeil)
}

type roundMode int

const (
	roundNearest roundMode = iota
	roundFloor
	roundCeil
)

func snapRounded(raw, min, step float64, mode roundMode) Legal {
	rawDec := decimal.NewFromFloat(raw)
	if step <= 0 {
		return Legal{Value: rawDec, Text: rawDec.String()}
	}

	minDec := decimal.NewFromFloat(min)
	stepDec := decimal.NewFromFloat(step)

	steps := rawDec.Sub(minDec).Div(stepDec)
	switch mode {
	case roundFloor:
		steps = steps.Floor()
	case roundCeil:
		steps = steps.Ceil()
	default:
		steps = steps.Round(0)
	}

	value := minDec.Add(steps.Mul(stepDec))
	return Legal{Value: value, Text: value.StringFixed(stepPrecision(stepDec))}
}

// stepPrecision 返回步长自身的小数位数，输出精度与其严格一致。
func stepPrecision(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
