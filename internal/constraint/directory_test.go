package constraint

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	venue       string
	constraints []SymbolConstraints
	err         error
	calls       int
}

func (f *fakeSource) Venue() string {
	return f.venue
}

func (f *fakeSource) FetchConstraints(ctx context.Context) ([]SymbolConstraints, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.constraints, nil
}

func TestDirectory_RefreshAndGet(t *testing.T) {
	src := &fakeSource{
		venue: "binance-futures",
		constraints: []SymbolConstraints{
			{Symbol: "BTCUSDT", MinQuantity: 0.001, QuantityStep: 0.001, MinNotional: 5},
		},
	}
	d := NewDirectory([]Source{src}, time.Minute, nil)

	if err := d.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll returned error: %v", err)
	}

	c, ok := d.Get("binance-futures", "BTCUSDT")
	if !ok {
		t.Fatal("expected constraints for BTCUSDT")
	}
	if c.MinNotional != 5 {
		t.Errorf("unexpected constraints: %+v", c)
	}

	// 符号查询大小写不敏感。
	if _, ok := d.Get("binance-futures", "btcusdt"); !ok {
		t.Error("symbol lookup must be case-insensitive")
	}
	if _, ok := d.Get("binance-futures", "ETHUSDT"); ok {
		t.Error("unknown symbol must report absent")
	}
	if _, ok := d.Get("hyperliquid", "BTCUSDT"); ok {
		t.Error("unknown venue must report absent")
	}
}

func TestDirectory_FailedRefreshKeepsOldSnapshot(t *testing.T) {
	src := &fakeSource{
		venue: "binance-futures",
		constraints: []SymbolConstraints{
			{Symbol: "BTCUSDT", MinQuantity: 0.001, QuantityStep: 0.001},
		},
	}
	d := NewDirectory([]Source{src}, time.Minute, nil)

	if err := d.RefreshAll(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	src.err = errors.New("exchangeInfo unavailable")
	if err := d.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected error when a source fails")
	}

	// 失败的交易所沿用旧快照。
	if _, ok := d.Get("binance-futures", "BTCUSDT"); !ok {
		t.Fatal("old snapshot must survive a failed refresh")
	}
}

func TestDirectory_PerVenueIsolation(t *testing.T) {
	good := &fakeSource{
		venue: "binance-futures",
		constraints: []SymbolConstraints{
			{Symbol: "BTCUSDT", MinQuantity: 0.001, QuantityStep: 0.001},
		},
	}
	bad := &fakeSource{
		venue: "hyperliquid",
		err:   errors.New("boom"),
	}
	d := NewDirectory([]Source{good, bad}, time.Minute, nil)

	if err := d.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected aggregate error mentioning the failed venue")
	}

	// 失败的交易所不拖累成功的交易所。
	if _, ok := d.Get("binance-futures", "BTCUSDT"); !ok {
		t.Error("healthy venue snapshot must be updated")
	}
	if _, ok := d.Get("hyperliquid", "BTCUSDT"); ok {
		t.Error("failed venue must stay absent")
	}
}
