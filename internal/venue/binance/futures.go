package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tradegate/internal/config"
	"tradegate/internal/constraint"
	"tradegate/internal/signer"
	"tradegate/internal/venue"
)

// VenueFutures 是币安合约端点的名称。
const VenueFutures = "binance-futures"

// FuturesAdapter 通过 USDⓈ-M 合约 REST 端点实现统一适配器接口。
type FuturesAdapter struct {
	client *Client
	logger *zap.Logger
}

// NewFuturesAdapter 创建合约适配器。
func NewFuturesAdapter(cfg config.BinanceConfig, logger *zap.Logger) *FuturesAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	sg := signer.New(VenueFutures, cfg.APIKey, cfg.APISecret, cfg.RecvWindow, logger)
	return &FuturesAdapter{
		client: NewClient(VenueFutures, cfg.FuturesBaseURL, "/fapi/v1/time", sg, cfg, logger),
		logger: logger,
	}
}

// Name 返回交易所名称。
func (a *FuturesAdapter) Name() string {
	return VenueFutures
}

// Client 返回底层请求核心，供对时循环使用。
func (a *FuturesAdapter) Client() *Client {
	return a.client
}

// PlaceOrder 提交订单。数量与价格使用调用方锁定的文本，原样发送。
func (a *FuturesAdapter) PlaceOrder(ctx context.Context, params venue.OrderParams) (venue.OrderResult, error) {
	ordered := []signer.Param{
		{Key: "symbol", Value: params.Symbol},
		{Key: "side", Value: string(params.Side)},
		{Key: "type", Value: string(params.Type)},
	}
	if params.TimeInForce != "" {
		ordered = append(ordered, signer.Param{Key: "timeInForce", Value: string(params.TimeInForce)})
	}
	if params.Quantity != "" {
		ordered = append(ordered, signer.Param{Key: "quantity", Value: params.Quantity})
	}
	if params.Price != "" {
		ordered = append(ordered, signer.Param{Key: "price", Value: params.Price})
	}
	if params.StopPrice != "" {
		ordered = append(ordered, signer.Param{Key: "stopPrice", Value: params.StopPrice})
	}
	if params.ReduceOnly {
		ordered = append(ordered, signer.Param{Key: "reduceOnly", Value: "true"})
	}
	if params.ClosePosition {
		ordered = append(ordered, signer.Param{Key: "closePosition", Value: "true"})
	}
	if params.ClientOrderID != "" {
		ordered = append(ordered, signer.Param{Key: "newClientOrderId", Value: params.ClientOrderID})
	}

	body, err := a.client.Signed(ctx, http.MethodPost, "/fapi/v1/order", ordered)
	if err != nil {
		return venue.OrderResult{}, err
	}
	return a.parseOrderAck(body)
}

// CancelOrder 撤销单个订单。
func (a *FuturesAdapter) CancelOrder(ctx context.Context, symbol, orderID string) (venue.OrderResult, error) {
	body, err := a.client.Signed(ctx, http.MethodDelete, "/fapi/v1/order", []signer.Param{
		{Key: "symbol", Value: symbol},
		{Key: "orderId", Value: orderID},
	})
	if err != nil {
		return venue.OrderResult{}, err
	}
	return a.parseOrderAck(body)
}

// CancelAllOrders 撤销指定交易对的全部挂单。
func (a *FuturesAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	_, err := a.client.Signed(ctx, http.MethodDelete, "/fapi/v1/allOpenOrders", []signer.Param{
		{Key: "symbol", Value: symbol},
	})
	return err
}

// GetPositions 返回全部非零持仓。
func (a *FuturesAdapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	body, err := a.client.Signed(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil)
	if err != nil {
		return nil, err
	}

	p := a.client.parserPool.Get()
	defer a.client.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("解析持仓数据失败: %w", err)
	}

	now := time.Now().UTC()
	var positions []venue.Position
	for _, item := range v.GetArray() {
		amt := floatField(item, "positionAmt")
		if amt == 0 {
			continue
		}
		side := "LONG"
		if amt < 0 {
			side = "SHORT"
		}
		positions = append(positions, venue.Position{
			Symbol:        string(item.GetStringBytes("symbol")),
			Side:          side,
			Quantity:      abs(amt),
			EntryPrice:    floatField(item, "entryPrice"),
			MarkPrice:     floatField(item, "markPrice"),
			Leverage:      floatField(item, "leverage"),
			UnrealizedPnl: floatField(item, "unRealizedProfit"),
			MarginType:    string(item.GetStringBytes("marginType")),
			UpdatedAt:     now,
		})
	}
	return positions, nil
}

// GetAccount 返回账户净值与可用余额。
func (a *FuturesAdapter) GetAccount(ctx context.Context) (venue.Account, error) {
	body, err := a.client.Signed(ctx, http.MethodGet, "/fapi/v2/account", nil)
	if err != nil {
		return venue.Account{}, err
	}

	p := a.client.parserPool.Get()
	defer a.client.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return venue.Account{}, fmt.Errorf("解析账户数据失败: %w", err)
	}

	return venue.Account{
		TotalEquity:      floatField(v, "totalMarginBalance"),
		AvailableBalance: floatField(v, "availableBalance"),
		Currency:         "USDT",
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// SetLeverage 调整杠杆倍数。
func (a *FuturesAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := a.client.Signed(ctx, http.MethodPost, "/fapi/v1/leverage", []signer.Param{
		{Key: "symbol", Value: symbol},
		{Key: "leverage", Value: strconv.Itoa(leverage)},
	})
	return err
}

// SetMarginType 切换逐仓/全仓模式。
func (a *FuturesAdapter) SetMarginType(ctx context.Context, symbol string, marginType venue.MarginType) error {
	_, err := a.client.Signed(ctx, http.MethodPost, "/fapi/v1/marginType", []signer.Param{
		{Key: "symbol", Value: symbol},
		{Key: "marginType", Value: string(marginType)},
	})
	return err
}

// SetAccountMarginMode 切换联合保证金模式。
func (a *FuturesAdapter) SetAccountMarginMode(ctx context.Context, multiAssets bool) error {
	_, err := a.client.Signed(ctx, http.MethodPost, "/fapi/v1/multiAssetsMargin", []signer.Param{
		{Key: "multiAssetsMargin", Value: strconv.FormatBool(multiAssets)},
	})
	return err
}

// ModifyIsolatedMargin 调整逐仓保证金。
func (a *FuturesAdapter) ModifyIsolatedMargin(ctx context.Context, symbol string, amount float64, direction venue.MarginDirection) error {
	_, err := a.client.Signed(ctx, http.MethodPost, "/fapi/v1/positionMargin", []signer.Param{
		{Key: "symbol", Value: symbol},
		{Key: "amount", Value: strconv.FormatFloat(amount, 'f', -1, 64)},
		{Key: "type", Value: strconv.Itoa(int(direction))},
	})
	return err
}

// Venue 实现 constraint.Source。
func (a *FuturesAdapter) Venue() string {
	return VenueFutures
}

// FetchConstraints 实现 constraint.Source。
func (a *FuturesAdapter) FetchConstraints(ctx context.Context) ([]constraint.SymbolConstraints, error) {
	return a.client.fetchConstraints(ctx, "/fapi/v1/exchangeInfo")
}

func (a *FuturesAdapter) parseOrderAck(body []byte) (venue.OrderResult, error) {
	return parseOrderAck(&a.client.parserPool, body)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

var (
	_ venue.Adapter     = (*FuturesAdapter)(nil)
	_ constraint.Source = (*FuturesAdapter)(nil)
)
