package pending

import (
	"testing"
	"time"

	"tradegate/internal/operation"
)

func testStaged(ownerID int64) Staged {
	return Staged{
		Operation: operation.Operation{
			Kind:  operation.KindCancelAllOrders,
			Venue: "binance-futures",
			CancelAll: &operation.CancelAllOrdersParams{
				Symbol: "BTCUSDT",
			},
		},
		OwnerID:     ownerID,
		RiskLevel:   operation.RiskLow,
		Description: "撤销 BTCUSDT 全部挂单",
	}
}

func TestStore_StageAndGet(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	id, err := s.Stage(testStaged(1))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty operation id")
	}

	got, ok := s.Get(1, id)
	if !ok {
		t.Fatal("expected staged operation to exist")
	}
	if got.OperationID != id {
		t.Errorf("operation id mismatch: got %q want %q", got.OperationID, id)
	}
	if got.Operation.Kind != operation.KindCancelAllOrders {
		t.Errorf("unexpected kind: %s", got.Operation.Kind)
	}
}

func TestStore_OwnerPartition(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	id, err := s.Stage(testStaged(1))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	// 其他用户拿不到也动不了这条操作。
	if _, ok := s.Get(2, id); ok {
		t.Error("operation must not be visible to another owner")
	}
	if _, ok := s.Take(2, id); ok {
		t.Error("operation must not be claimable by another owner")
	}
	if _, ok := s.Get(1, id); !ok {
		t.Error("operation must remain visible to its owner")
	}
}

func TestStore_TakeIsAtMostOnce(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	id, err := s.Stage(testStaged(1))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	if _, ok := s.Take(1, id); !ok {
		t.Fatal("first Take must claim the operation")
	}
	if _, ok := s.Take(1, id); ok {
		t.Fatal("second Take must fail: each operation id executes at most once")
	}
	if _, ok := s.Get(1, id); ok {
		t.Fatal("claimed operation must no longer be visible")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	current := time.Now()
	s.now = func() time.Time { return current }

	id, err := s.Stage(testStaged(1))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	current = current.Add(4 * time.Minute)
	if _, ok := s.Get(1, id); !ok {
		t.Fatal("operation must still exist before TTL")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := s.Get(1, id); ok {
		t.Fatal("operation must expire after TTL")
	}
	if _, ok := s.Take(1, id); ok {
		t.Fatal("expired operation must not be claimable")
	}
}

func TestStore_SweepRemovesExpired(t *testing.T) {
	s := NewStore(time.Minute, time.Second, nil)

	current := time.Now()
	s.now = func() time.Time { return current }

	if _, err := s.Stage(testStaged(1)); err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}
	if _, err := s.Stage(testStaged(2)); err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if removed := s.sweepExpired(); removed != 2 {
		t.Errorf("expected 2 removed entries, got %d", removed)
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	id, err := s.Stage(testStaged(1))
	if err != nil {
		t.Fatalf("Stage returned error: %v", err)
	}

	if !s.Remove(1, id) {
		t.Fatal("Remove must report true for an existing entry")
	}
	if s.Remove(1, id) {
		t.Fatal("Remove must report false for a missing entry")
	}
}

func TestStore_IDsAreUnique(t *testing.T) {
	s := NewStore(5*time.Minute, time.Minute, nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := s.Stage(testStaged(1))
		if err != nil {
			t.Fatalf("Stage returned error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate operation id %q", id)
		}
		seen[id] = true
	}
}
