package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"tradegate/internal/config"
	"tradegate/internal/constraint"
	"tradegate/internal/operr"
	"tradegate/internal/venue"
)

// VenueName 是 Hyperliquid 端点的名称。
const VenueName = "hyperliquid"

// Adapter 通过 ccxt 统一客户端实现适配器接口。
// 签名与对时由 ccxt 内部处理，本适配器只做参数映射与错误归类。
type Adapter struct {
	exchange *ccxt.Hyperliquid
	logger   *zap.Logger
}

// NewAdapter 创建 Hyperliquid 适配器。
func NewAdapter(cfg config.HyperliquidConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
		},
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.Wallet != "" {
		userConfig["walletAddress"] = cfg.Wallet
	}
	if cfg.PrivateKey != "" {
		userConfig["privateKey"] = cfg.PrivateKey
	}

	exchange := ccxt.NewHyperliquid(userConfig)
	if cfg.UseSandbox {
		exchange.SetSandboxMode(true)
	}

	return &Adapter{
		exchange: exchange,
		logger:   logger,
	}
}

// Name 返回交易所名称。
func (a *Adapter) Name() string {
	return VenueName
}

// PlaceOrder 提交订单。
func (a *Adapter) PlaceOrder(ctx context.Context, params venue.OrderParams) (venue.OrderResult, error) {
	amount, err := strconv.ParseFloat(params.Quantity, 64)
	if err != nil {
		return venue.OrderResult{}, operr.New(operr.CodeValidation, "订单数量 %q 无法解析", params.Quantity)
	}

	extra := map[string]interface{}{}
	if params.ReduceOnly {
		extra["reduceOnly"] = true
	}
	if params.TimeInForce != "" {
		extra["timeInForce"] = string(params.TimeInForce)
	}

	opts := []ccxt.CreateOrderOptions{ccxt.WithCreateOrderParams(extra)}
	if params.Price != "" {
		price, perr := strconv.ParseFloat(params.Price, 64)
		if perr != nil {
			return venue.OrderResult{}, operr.New(operr.CodeValidation, "订单价格 %q 无法解析", params.Price)
		}
		opts = append(opts, ccxt.WithCreateOrderPrice(price))
	}

	order, err := a.exchange.CreateOrder(
		params.Symbol,
		ccxtOrderType(params.Type),
		ccxtSide(params.Side),
		amount,
		opts...,
	)
	if err != nil {
		return venue.OrderResult{}, a.classify(err, "下单")
	}

	return convertOrder(params.Symbol, order), nil
}

// CancelOrder 撤销单个订单。
func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) (venue.OrderResult, error) {
	order, err := a.exchange.CancelOrder(orderID, ccxt.WithCancelOrderSymbol(symbol))
	if err != nil {
		return venue.OrderResult{}, a.classify(err, "撤单")
	}
	return convertOrder(symbol, order), nil
}

// CancelAllOrders 撤销指定交易对的全部挂单。
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) error {
	_, err := a.exchange.CancelAllOrders(ccxt.WithCancelAllOrdersSymbol(symbol))
	if err != nil {
		return a.classify(err, "批量撤单")
	}
	return nil
}

// GetPositions 返回全部非零持仓。
func (a *Adapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	raw, err := a.exchange.FetchPositions()
	if err != nil {
		return nil, a.classify(err, "查询持仓")
	}

	now := time.Now().UTC()
	var positions []venue.Position
	for _, item := range raw {
		size := deref(item.Contracts)
		if size == 0 {
			continue
		}
		// ccxt 的统一持仓方向是小写，统一转成大写供上层判断。
		positions = append(positions, venue.Position{
			Symbol:        derefString(item.Symbol),
			Side:          strings.ToUpper(strings.TrimSpace(derefString(item.Side))),
			Quantity:      math.Abs(size),
			EntryPrice:    deref(item.EntryPrice),
			MarkPrice:     deref(item.MarkPrice),
			Leverage:      deref(item.Leverage),
			UnrealizedPnl: deref(item.UnrealizedPnl),
			MarginType:    derefString(item.MarginMode),
			UpdatedAt:     now,
		})
	}
	return positions, nil
}

// GetAccount 返回账户净值。稳定币余额按 USDC 优先。
func (a *Adapter) GetAccount(ctx context.Context) (venue.Account, error) {
	balances, err := a.exchange.FetchBalance()
	if err != nil {
		return venue.Account{}, a.classify(err, "查询余额")
	}

	account := venue.Account{Currency: "USDC", UpdatedAt: time.Now().UTC()}
	if balances.Total != nil {
		for _, code := range []string{"USDC", "USD", "USDT"} {
			if total, ok := balances.Total[code]; ok && total != nil && *total > 0 {
				account.Currency = code
				account.TotalEquity = *total
				break
			}
		}
	}
	if balances.Free != nil {
		if free, ok := balances.Free[account.Currency]; ok && free != nil {
			account.AvailableBalance = *free
		}
	}
	return account, nil
}

// SetLeverage 调整杠杆倍数。
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := a.exchange.SetLeverage(int64(leverage), ccxt.WithSetLeverageSymbol(symbol))
	if err != nil {
		return a.classify(err, "调整杠杆")
	}
	return nil
}

// SetMarginType 切换逐仓/全仓模式。
func (a *Adapter) SetMarginType(ctx context.Context, symbol string, marginType venue.MarginType) error {
	mode := "cross"
	if marginType == venue.MarginTypeIsolated {
		mode = "isolated"
	}
	_, err := a.exchange.SetMarginMode(mode, ccxt.WithSetMarginModeSymbol(symbol))
	if err != nil {
		return a.classify(err, "切换保证金模式")
	}
	return nil
}

// SetAccountMarginMode Hyperliquid 没有账户级联合保证金开关。
func (a *Adapter) SetAccountMarginMode(ctx context.Context, multiAssets bool) error {
	return operr.New(operr.CodeUnsupported, "hyperliquid 不支持账户级联合保证金模式")
}

// ModifyIsolatedMargin 调整逐仓保证金。
func (a *Adapter) ModifyIsolatedMargin(ctx context.Context, symbol string, amount float64, direction venue.MarginDirection) error {
	var err error
	switch direction {
	case venue.MarginAdd:
		_, err = a.exchange.AddMargin(symbol, amount)
	case venue.MarginReduce:
		_, err = a.exchange.ReduceMargin(symbol, amount)
	default:
		return operr.New(operr.CodeValidation, "未知的保证金调整方向 %d", direction)
	}
	if err != nil {
		return a.classify(err, "调整逐仓保证金")
	}
	return nil
}

// Venue 实现 constraint.Source。
func (a *Adapter) Venue() string {
	return VenueName
}

// FetchConstraints 从市场元数据中抽取下单规则。
func (a *Adapter) FetchConstraints(ctx context.Context) ([]constraint.SymbolConstraints, error) {
	markets, err := a.exchange.LoadMarkets()
	if err != nil {
		return nil, a.classify(err, "加载市场元数据")
	}

	result := make([]constraint.SymbolConstraints, 0, len(markets))
	for symbol, market := range markets {
		sc := constraint.SymbolConstraints{Symbol: symbol}

		if market.Precision.Amount != nil {
			sc.QuantityStep = precisionToStep(*market.Precision.Amount)
		}
		if market.Precision.Price != nil {
			sc.PriceStep = precisionToStep(*market.Precision.Price)
		}
		if market.Limits.Amount != nil {
			sc.MinQuantity = deref(market.Limits.Amount.Min)
			sc.MaxQuantity = deref(market.Limits.Amount.Max)
		}
		if market.Limits.Price != nil {
			sc.MinPrice = deref(market.Limits.Price.Min)
			sc.MaxPrice = deref(market.Limits.Price.Max)
		}
		if market.Limits.Cost != nil {
			sc.MinNotional = deref(market.Limits.Cost.Min)
		}

		result = append(result, sc)
	}
	return result, nil
}

// classify 将 ccxt 错误归入管道错误分类。
func (a *Adapter) classify(err error, action string) error {
	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.InsufficientFundsErrType,
			ccxt.InvalidOrderErrType,
			ccxt.OrderNotFoundErrType,
			ccxt.BadSymbolErrType,
			ccxt.BadRequestErrType,
			ccxt.ExchangeErrorErrType:
			return operr.Wrap(operr.CodeVenueRejected, err, "hyperliquid %s被拒绝", action)
		case ccxt.AuthenticationErrorErrType:
			return operr.Wrap(operr.CodeSigning, err, "hyperliquid 认证失败")
		}
	}
	return fmt.Errorf("hyperliquid %s失败: %w", action, err)
}

// precisionToStep 把小数位精度转换为步长，例如 3 -> 0.001。
func precisionToStep(precision float64) float64 {
	if precision <= 0 {
		return 1
	}
	if precision < 1 {
		// 部分交易所直接以步长表示精度。
		return precision
	}
	return math.Pow10(-int(precision))
}

func ccxtSide(side venue.Side) string {
	if side == venue.SideSell {
		return "sell"
	}
	return "buy"
}

func ccxtOrderType(t venue.OrderType) string {
	if t == venue.OrderTypeLimit {
		return "limit"
	}
	return "market"
}

func convertOrder(symbol string, order ccxt.Order) venue.OrderResult {
	result := venue.OrderResult{Symbol: symbol}
	if order.Id != nil {
		result.OrderID = *order.Id
	}
	if order.ClientOrderId != nil {
		result.ClientOrderID = *order.ClientOrderId
	}
	if order.Status != nil {
		result.Status = *order.Status
	}
	if order.Symbol != nil && *order.Symbol != "" {
		result.Symbol = *order.Symbol
	}
	return result
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var (
	_ venue.Adapter     = (*Adapter)(nil)
	_ constraint.Source = (*Adapter)(nil)
)
