package dispatch

import (
	"context"
	"testing"
	"time"

	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/constraint"
	"tradegate/internal/pending"
	"tradegate/internal/store"
)

// 调度器与审计日志的集成：暂存与确认沿途写入的记录要在库里可见。
func TestDispatcher_AuditLifecycle(t *testing.T) {
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	auditLog, err := audit.NewLog(st, nil)
	if err != nil {
		t.Fatalf("NewLog returned error: %v", err)
	}

	adapter := newMockAdapter(testVenue)
	feed := &fakeFeed{prices: map[string]float64{"BTCUSDT": 1000}}
	directory := constraint.NewDirectory([]constraint.Source{fakeSource{
		venue: testVenue,
		constraints: []constraint.SymbolConstraints{{
			Symbol:       "BTCUSDT",
			MinQuantity:  0.001,
			MaxQuantity:  1000,
			QuantityStep: 0.001,
			MinPrice:     0.1,
			MaxPrice:     1000000,
			PriceStep:    0.1,
			MinNotional:  5,
		}},
	}}, time.Minute, nil)
	if err := directory.RefreshAll(context.Background()); err != nil {
		t.Fatalf("refresh constraints: %v", err)
	}

	d := New(directory, feed, pending.NewStore(5*time.Minute, time.Minute, nil), auditLog, nil)
	d.Register(adapter)

	outcome, err := d.Stage(context.Background(), 7, "ext-7", usdOrder(50))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	// 暂存后已有未确认记录。
	var confirmedAt *string
	row := st.DB().QueryRow(
		`SELECT confirmed_at FROM audit_records WHERE operation_id = ?`, outcome.OperationID)
	if err := row.Scan(&confirmedAt); err != nil {
		t.Fatalf("scan staged record: %v", err)
	}
	if confirmedAt != nil {
		t.Errorf("staged record must not carry confirmed_at, got %v", *confirmedAt)
	}

	result, err := d.Confirm(context.Background(), 7, outcome.OperationID)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	var (
		ownerID int64
		success *int
		orderID *string
	)
	row = st.DB().QueryRow(
		`SELECT owner_id, confirmed_at, success, venue_order_id FROM audit_records WHERE operation_id = ?`,
		outcome.OperationID)
	if err := row.Scan(&ownerID, &confirmedAt, &success, &orderID); err != nil {
		t.Fatalf("scan confirmed record: %v", err)
	}
	if ownerID != 7 {
		t.Errorf("expected owner_id=7, got %d", ownerID)
	}
	if confirmedAt == nil {
		t.Error("expected confirmed_at to be set after Confirm")
	}
	if success == nil || *success != 1 {
		t.Errorf("expected success=1, got %v", success)
	}
	if orderID == nil || *orderID != "1001" {
		t.Errorf("expected venue_order_id=1001, got %v", orderID)
	}

	if len(adapter.placed) != 1 {
		t.Fatalf("expected 1 order, got %d", len(adapter.placed))
	}
	if got := adapter.placed[0].Quantity; got != "0.050" {
		t.Errorf("expected locked quantity '0.050', got %q", got)
	}
}
