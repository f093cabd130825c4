package operation

import (
	"math"
	"testing"

	"tradegate/internal/operr"
)

func TestResolveQuantity_Raw(t *testing.T) {
	got, err := ResolveQuantity(QuantitySpec{Type: QuantityRaw, Value: 0.05}, Context{})
	if err != nil {
		t.Fatalf("ResolveQuantity returned error: %v", err)
	}
	if got != 0.05 {
		t.Errorf("expected 0.05, got %v", got)
	}
}

func TestResolveQuantity_USD(t *testing.T) {
	got, err := ResolveQuantity(
		QuantitySpec{Type: QuantityUSD, Value: 50},
		Context{Price: 1000, HasPrice: true},
	)
	if err != nil {
		t.Fatalf("ResolveQuantity returned error: %v", err)
	}
	if math.Abs(got-0.05) > 1e-12 {
		t.Errorf("expected 0.05, got %v", got)
	}
}

func TestResolveQuantity_USDWithoutPrice(t *testing.T) {
	_, err := ResolveQuantity(QuantitySpec{Type: QuantityUSD, Value: 50}, Context{})
	if !operr.Is(err, operr.CodeContextMissing) {
		t.Fatalf("expected CONTEXT_MISSING, got %v", err)
	}
}

func TestResolveQuantity_PercentEquity(t *testing.T) {
	got, err := ResolveQuantity(
		QuantitySpec{Type: QuantityPercentEquity, Value: 10},
		Context{Price: 50000, HasPrice: true, Equity: 100000, HasEquity: true},
	)
	if err != nil {
		t.Fatalf("ResolveQuantity returned error: %v", err)
	}
	if math.Abs(got-0.2) > 1e-12 {
		t.Errorf("expected 0.2, got %v", got)
	}

	// 缺净值与缺价格分别报缺。
	_, err = ResolveQuantity(
		QuantitySpec{Type: QuantityPercentEquity, Value: 10},
		Context{Price: 50000, HasPrice: true},
	)
	if !operr.Is(err, operr.CodeContextMissing) {
		t.Errorf("expected CONTEXT_MISSING without equity, got %v", err)
	}
	_, err = ResolveQuantity(
		QuantitySpec{Type: QuantityPercentEquity, Value: 10},
		Context{Equity: 100000, HasEquity: true},
	)
	if !operr.Is(err, operr.CodeContextMissing) {
		t.Errorf("expected CONTEXT_MISSING without price, got %v", err)
	}
}

func TestResolveQuantity_PercentPosition(t *testing.T) {
	got, err := ResolveQuantity(
		QuantitySpec{Type: QuantityPercentPosition, Value: 50},
		Context{PositionQuantity: 0.4, HasPosition: true},
	)
	if err != nil {
		t.Fatalf("ResolveQuantity returned error: %v", err)
	}
	if math.Abs(got-0.2) > 1e-12 {
		t.Errorf("expected 0.2, got %v", got)
	}

	_, err = ResolveQuantity(
		QuantitySpec{Type: QuantityPercentPosition, Value: 50},
		Context{},
	)
	if !operr.Is(err, operr.CodeContextMissing) {
		t.Errorf("expected CONTEXT_MISSING without position, got %v", err)
	}

	// 零仓位不可按百分比解析。
	_, err = ResolveQuantity(
		QuantitySpec{Type: QuantityPercentPosition, Value: 50},
		Context{PositionQuantity: 0, HasPosition: true},
	)
	if !operr.Is(err, operr.CodeContextMissing) {
		t.Errorf("expected CONTEXT_MISSING with zero position, got %v", err)
	}
}

func TestResolveQuantity_InvalidSpec(t *testing.T) {
	_, err := ResolveQuantity(QuantitySpec{Type: QuantityRaw, Value: -1}, Context{})
	if !operr.Is(err, operr.CodeValidation) {
		t.Errorf("expected VALIDATION for negative raw, got %v", err)
	}
	_, err = ResolveQuantity(QuantitySpec{Type: "SHARES", Value: 1}, Context{})
	if !operr.Is(err, operr.CodeValidation) {
		t.Errorf("expected VALIDATION for unknown type, got %v", err)
	}
}
