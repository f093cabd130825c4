package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"tradegate/internal/config"
	"tradegate/internal/constraint"
	"tradegate/internal/operr"
	"tradegate/internal/signer"
	"tradegate/internal/venue"
)

// VenueSpot 是币安现货端点的名称。
const VenueSpot = "binance-spot"

// SpotAdapter 通过现货 REST 端点实现统一适配器接口。
// 杠杆与保证金类操作在现货上不存在，统一返回 UNSUPPORTED。
type SpotAdapter struct {
	client *Client
	logger *zap.Logger
}

// NewSpotAdapter 创建现货适配器。
func NewSpotAdapter(cfg config.BinanceConfig, logger *zap.Logger) *SpotAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	sg := signer.New(VenueSpot, cfg.APIKey, cfg.APISecret, cfg.RecvWindow, logger)
	return &SpotAdapter{
		client: NewClient(VenueSpot, cfg.SpotBaseURL, "/api/v3/time", sg, cfg, logger),
		logger: logger,
	}
}

// Name 返回交易所名称。
func (a *SpotAdapter) Name() string {
	return VenueSpot
}

// Client 返回底层请求核心，供对时循环使用。
func (a *SpotAdapter) Client() *Client {
	return a.client
}

// PlaceOrder 提交现货订单。
func (a *SpotAdapter) PlaceOrder(ctx context.Context, params venue.OrderParams) (venue.OrderResult, error) {
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
	if params.ClientOrderID != "" {
		ordered = append(ordered, signer.Param{Key: "newClientOrderId", Value: params.ClientOrderID})
	}

	body, err := a.client.Signed(ctx, http.MethodPost, "/api/v3/order", ordered)
	if err != nil {
		return venue.OrderResult{}, err
	}
	return parseOrderAck(&a.client.parserPool, body)
}

// CancelOrder 撤销现货订单。
func (a *SpotAdapter) CancelOrder(ctx context.Context, symbol, orderID string) (venue.OrderResult, error) {
	body, err := a.client.Signed(ctx, http.MethodDelete, "/api/v3/order", []signer.Param{
		{Key: "symbol", Value: symbol},
		{Key: "orderId", Value: orderID},
	})
	if err != nil {
		return venue.OrderResult{}, err
	}
	return parseOrderAck(&a.client.parserPool, body)
}

// CancelAllOrders 撤销指定交易对的全部现货挂单。
func (a *SpotAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	_, err := a.client.Signed(ctx, http.MethodDelete, "/api/v3/openOrders", []signer.Param{
		{Key: "symbol", Value: symbol},
	})
	return err
}

// GetPositions 现货没有持仓概念，返回空列表。
func (a *SpotAdapter) GetPositions(ctx context.Context) ([]venue.Position, error) {
	return nil, nil
}

// GetAccount 返回现货账户中主要计价币的余额。
func (a *SpotAdapter) GetAccount(ctx context.Context) (venue.Account, error) {
	body, err := a.client.Signed(ctx, http.MethodGet, "/api/v3/account", nil)
	if err != nil {
		return venue.Account{}, err
	}

	p := a.client.parserPool.Get()
	defer a.client.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return venue.Account{}, fmt.Errorf("解析现货账户失败: %w", err)
	}

	account := venue.Account{Currency: "USDT", UpdatedAt: time.Now().UTC()}
	for _, code := range []string{"USDT", "USDC", "FDUSD"} {
		free, locked, ok := spotBalance(v, code)
		if ok && free+locked > 0 {
			account.Currency = code
			account.TotalEquity = free + locked
			account.AvailableBalance = free
			break
		}
	}
	return account, nil
}

// SetLeverage 现货不支持杠杆调整。
func (a *SpotAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return operr.New(operr.CodeUnsupported, "现货账户不支持调整杠杆")
}

// SetMarginType 现货不支持保证金模式切换。
func (a *SpotAdapter) SetMarginType(ctx context.Context, symbol string, marginType venue.MarginType) error {
	return operr.New(operr.CodeUnsupported, "现货账户不支持保证金模式")
}

// SetAccountMarginMode 现货不支持联合保证金。
func (a *SpotAdapter) SetAccountMarginMode(ctx context.Context, multiAssets bool) error {
	return operr.New(operr.CodeUnsupported, "现货账户不支持联合保证金模式")
}

// ModifyIsolatedMargin 现货不支持逐仓保证金调整。
func (a *SpotAdapter) ModifyIsolatedMargin(ctx context.Context, symbol string, amount float64, direction venue.MarginDirection) error {
	return operr.New(operr.CodeUnsupported, "现货账户不支持逐仓保证金调整")
}

// Venue 实现 constraint.Source。
func (a *SpotAdapter) Venue() string {
	return VenueSpot
}

// FetchConstraints 实现 constraint.Source。
func (a *SpotAdapter) FetchConstraints(ctx context.Context) ([]constraint.SymbolConstraints, error) {
	return a.client.fetchConstraints(ctx, "/api/v3/exchangeInfo")
}

func spotBalance(v *fastjson.Value, asset string) (free, locked float64, ok bool) {
	for _, item := range v.GetArray("balances") {
		if string(item.GetStringBytes("asset")) != asset {
			continue
		}
		return floatField(item, "free"), floatField(item, "locked"), true
	}
	return 0, 0, false
}

// parseOrderAck 解析下单/撤单回执，合约与现货字段一致。
func parseOrderAck(pool *fastjson.ParserPool, body []byte) (venue.OrderResult, error) {
	p := pool.Get()
	defer pool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return venue.OrderResult{}, fmt.Errorf("解析订单回执失败: %w", err)
	}

	return venue.OrderResult{
		OrderID:       strconv.FormatInt(v.GetInt64("orderId"), 10),
		ClientOrderID: string(v.GetStringBytes("clientOrderId")),
		Symbol:        string(v.GetStringBytes("symbol")),
		Status:        string(v.GetStringBytes("status")),
		Raw:           string(body),
	}, nil
}

var (
	_ venue.Adapter     = (*SpotAdapter)(nil)
	_ constraint.Source = (*SpotAdapter)(nil)
)
