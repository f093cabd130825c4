package operation

import (
	"testing"

	"tradegate/internal/operr"
	"tradegate/internal/venue"
)

func marketOrder() *Operation {
	return &Operation{
		Kind:  KindCreateOrder,
		Venue: "binance-futures",
		CreateOrder: &CreateOrderParams{
			Symbol:   "BTCUSDT",
			Side:     venue.SideBuy,
			Type:     venue.OrderTypeMarket,
			Quantity: QuantitySpec{Type: QuantityRaw, Value: 0.05},
		},
	}
}

func TestValidate_MarketOrder(t *testing.T) {
	if err := Validate(marketOrder()); err != nil {
		t.Fatalf("valid market order rejected: %v", err)
	}
}

func TestValidate_MarketOrderRejectsPriceAndTIF(t *testing.T) {
	op := marketOrder()
	op.CreateOrder.Price = 50000
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("market order with price must fail validation, got %v", err)
	}

	op = marketOrder()
	op.CreateOrder.TimeInForce = venue.TimeInForceGTC
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("market order with timeInForce must fail validation, got %v", err)
	}
}

func TestValidate_LimitOrderRequiresPriceAndTIF(t *testing.T) {
	op := marketOrder()
	op.CreateOrder.Type = venue.OrderTypeLimit
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("limit order without price must fail validation, got %v", err)
	}

	op.CreateOrder.Price = 50000
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("limit order without timeInForce must fail validation, got %v", err)
	}

	op.CreateOrder.TimeInForce = venue.TimeInForceGTC
	if err := Validate(op); err != nil {
		t.Errorf("valid limit order rejected: %v", err)
	}
}

func TestValidate_StopMarketRequiresStopPrice(t *testing.T) {
	op := marketOrder()
	op.CreateOrder.Type = venue.OrderTypeStopMarket
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("stop-market without stop price must fail, got %v", err)
	}

	op.CreateOrder.StopPrice = 45000
	if err := Validate(op); err != nil {
		t.Errorf("valid stop-market rejected: %v", err)
	}
}

func TestValidate_SpotRejectsStopMarket(t *testing.T) {
	op := marketOrder()
	op.Kind = KindCreateSpotOrder
	op.CreateOrder.Type = venue.OrderTypeStopMarket
	op.CreateOrder.StopPrice = 45000
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("spot stop-market must fail validation, got %v", err)
	}
}

func TestValidate_SpotRejectsReduceOnly(t *testing.T) {
	op := marketOrder()
	op.Kind = KindCreateSpotOrder
	op.CreateOrder.ReduceOnly = true
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("spot reduce-only must fail validation, got %v", err)
	}

	// 普通现货市价单不受影响。
	op = marketOrder()
	op.Kind = KindCreateSpotOrder
	if err := Validate(op); err != nil {
		t.Errorf("valid spot market order rejected: %v", err)
	}
}

func TestValidate_ShapeMismatch(t *testing.T) {
	// 标签与参数记录不一致。
	op := &Operation{
		Kind:        KindCancelOrder,
		Venue:       "binance-futures",
		CreateOrder: &CreateOrderParams{},
	}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("mismatched payload must fail validation, got %v", err)
	}

	// 同时携带两组参数。
	op = marketOrder()
	op.CancelAll = &CancelAllOrdersParams{Symbol: "BTCUSDT"}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("double payload must fail validation, got %v", err)
	}

	// 没有任何参数。
	op = &Operation{Kind: KindCreateOrder, Venue: "binance-futures"}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("missing payload must fail validation, got %v", err)
	}
}

func TestValidate_MissingVenue(t *testing.T) {
	op := marketOrder()
	op.Venue = ""
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("missing venue must fail validation, got %v", err)
	}
}

func TestValidate_LeverageBounds(t *testing.T) {
	for _, leverage := range []int{0, -3, 126} {
		op := &Operation{
			Kind:        KindSetLeverage,
			Venue:       "binance-futures",
			SetLeverage: &SetLeverageParams{Symbol: "BTCUSDT", Leverage: leverage},
		}
		if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
			t.Errorf("leverage %d must fail validation, got %v", leverage, err)
		}
	}

	op := &Operation{
		Kind:        KindSetLeverage,
		Venue:       "binance-futures",
		SetLeverage: &SetLeverageParams{Symbol: "BTCUSDT", Leverage: 20},
	}
	if err := Validate(op); err != nil {
		t.Errorf("valid leverage rejected: %v", err)
	}
}

func TestValidate_ClosePositionPortion(t *testing.T) {
	for _, portion := range []float64{0, -5, 101} {
		op := &Operation{
			Kind:          KindClosePosition,
			Venue:         "binance-futures",
			ClosePosition: &ClosePositionParams{Symbol: "BTCUSDT", Portion: portion},
		}
		if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
			t.Errorf("portion %v must fail validation, got %v", portion, err)
		}
	}
}

func TestValidate_BatchValidatesEveryOrder(t *testing.T) {
	op := &Operation{
		Kind:  KindBatchOrders,
		Venue: "binance-futures",
		Batch: &BatchOrdersParams{Orders: []CreateOrderParams{
			*marketOrder().CreateOrder,
			{Symbol: "", Side: venue.SideBuy, Type: venue.OrderTypeMarket,
				Quantity: QuantitySpec{Type: QuantityRaw, Value: 1}},
		}},
	}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("batch with an invalid order must fail validation, got %v", err)
	}

	op.Batch.Orders = nil
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("empty batch must fail validation, got %v", err)
	}
}

func TestValidate_QuantitySpec(t *testing.T) {
	op := marketOrder()
	op.CreateOrder.Quantity = QuantitySpec{Type: QuantityPercentEquity, Value: 150}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("percent above 100 must fail validation, got %v", err)
	}

	op.CreateOrder.Quantity = QuantitySpec{Type: "SHARES", Value: 10}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("unknown quantity type must fail validation, got %v", err)
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	op := &Operation{
		Kind:        "TRANSFER",
		Venue:       "binance-futures",
		CreateOrder: &CreateOrderParams{},
	}
	if err := Validate(op); !operr.Is(err, operr.CodeValidation) {
		t.Errorf("unknown kind must fail validation, got %v", err)
	}
}
