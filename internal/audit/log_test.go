package audit

import (
	"context"
	"testing"
	"time"

	"tradegate/internal/config"
	"tradegate/internal/operation"
	"tradegate/internal/pending"
	"tradegate/internal/store"
	"tradegate/internal/venue"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	l, err := NewLog(st, nil)
	if err != nil {
		t.Fatalf("NewLog returned error: %v", err)
	}
	return l
}

func stagedOrder(id string) pending.Staged {
	return pending.Staged{
		OperationID:     id,
		OwnerID:         7,
		ExternalOwnerID: "ext-7",
		CreatedAt:       time.Now(),
		RiskLevel:       operation.RiskHigh,
		Description:     "市价买入 0.050 BTCUSDT",
		LockedQuantity:  "0.050",
		Operation: operation.Operation{
			Kind:  operation.KindCreateOrder,
			Venue: "binance-futures",
			CreateOrder: &operation.CreateOrderParams{
				Symbol:   "BTCUSDT",
				Side:     venue.SideBuy,
				Type:     venue.OrderTypeMarket,
				Quantity: operation.QuantitySpec{Type: operation.QuantityUSD, Value: 50},
			},
		},
	}
}

func TestLog_FullLifecycle(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	if err := l.RecordStaged(ctx, stagedOrder("op-1")); err != nil {
		t.Fatalf("RecordStaged returned error: %v", err)
	}
	if err := l.RecordConfirmed(ctx, "op-1"); err != nil {
		t.Fatalf("RecordConfirmed returned error: %v", err)
	}
	if err := l.RecordResult(ctx, "op-1", ResultRecord{
		Success:      true,
		VenueOrderID: "1001",
		Status:       "NEW",
	}); err != nil {
		t.Fatalf("RecordResult returned error: %v", err)
	}

	var (
		kind        string
		venueName   string
		confirmedAt *string
		success     *int
		orderID     *string
	)
	row := l.db.QueryRow(
		`SELECT kind, venue, confirmed_at, success, venue_order_id FROM audit_records WHERE operation_id = ?`,
		"op-1",
	)
	if err := row.Scan(&kind, &venueName, &confirmedAt, &success, &orderID); err != nil {
		t.Fatalf("scan audit record: %v", err)
	}

	if kind != string(operation.KindCreateOrder) || venueName != "binance-futures" {
		t.Errorf("unexpected record: kind=%s venue=%s", kind, venueName)
	}
	if confirmedAt == nil {
		t.Error("expected confirmed_at to be set")
	}
	if success == nil || *success != 1 {
		t.Errorf("expected success=1, got %v", success)
	}
	if orderID == nil || *orderID != "1001" {
		t.Errorf("expected venue_order_id=1001, got %v", orderID)
	}
}

func TestLog_FailedResultIsTerminalState(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	if err := l.RecordStaged(ctx, stagedOrder("op-2")); err != nil {
		t.Fatalf("RecordStaged returned error: %v", err)
	}
	if err := l.RecordResult(ctx, "op-2", ResultRecord{
		Success:      false,
		ErrorCode:    "VENUE_REJECTED",
		ErrorMessage: "保证金不足",
	}); err != nil {
		t.Fatalf("RecordResult returned error: %v", err)
	}

	var success *int
	var errorCode *string
	row := l.db.QueryRow(`SELECT success, error_code FROM audit_records WHERE operation_id = ?`, "op-2")
	if err := row.Scan(&success, &errorCode); err != nil {
		t.Fatalf("scan audit record: %v", err)
	}
	if success == nil || *success != 0 {
		t.Errorf("expected success=0, got %v", success)
	}
	if errorCode == nil || *errorCode != "VENUE_REJECTED" {
		t.Errorf("expected error_code=VENUE_REJECTED, got %v", errorCode)
	}
}

func TestLog_StagedSnapshotContainsOperation(t *testing.T) {
	l := newTestLog(t)

	if err := l.RecordStaged(context.Background(), stagedOrder("op-3")); err != nil {
		t.Fatalf("RecordStaged returned error: %v", err)
	}

	var payload string
	row := l.db.QueryRow(`SELECT payload FROM audit_records WHERE operation_id = ?`, "op-3")
	if err := row.Scan(&payload); err != nil {
		t.Fatalf("scan payload: %v", err)
	}
	if payload == "" || payload == "{}" {
		t.Errorf("expected operation snapshot, got %q", payload)
	}
}
