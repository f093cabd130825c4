package signer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradegate/internal/operr"
)

// 币安接口文档公布的签名参考样例。
const (
	refSecret    = "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	refCanonical = "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	refSignature = "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"
)

func TestSignQuery_ReferenceVector(t *testing.T) {
	got := SignQuery([]byte(refSecret), refCanonical)
	if got != refSignature {
		t.Fatalf("signature mismatch:\n got  %s\n want %s", got, refSignature)
	}
}

func TestSignAt_CanonicalOrderAndSignature(t *testing.T) {
	s := New("binance-futures", "key", refSecret, 5*time.Second, nil)

	params := []Param{
		{Key: "symbol", Value: "LTCBTC"},
		{Key: "side", Value: "BUY"},
		{Key: "type", Value: "LIMIT"},
		{Key: "timeInForce", Value: "GTC"},
		{Key: "quantity", Value: "1"},
		{Key: "price", Value: "0.1"},
	}

	req, err := s.signAt("POST", "/api/v3/order", params, 1499827319559)
	if err != nil {
		t.Fatalf("signAt returned error: %v", err)
	}

	if req.CanonicalQuery != refCanonical {
		t.Errorf("canonical query mismatch:\n got  %s\n want %s", req.CanonicalQuery, refCanonical)
	}
	if req.Signature != refSignature {
		t.Errorf("signature mismatch:\n got  %s\n want %s", req.Signature, refSignature)
	}
	if !strings.HasSuffix(req.URL, "&signature="+refSignature) {
		t.Errorf("signature must be the final parameter, got %s", req.URL)
	}
}

func TestSignAt_Deterministic(t *testing.T) {
	s := New("binance-futures", "key", refSecret, 5*time.Second, nil)
	params := []Param{{Key: "symbol", Value: "BTCUSDT"}}

	first, err := s.signAt("GET", "/fapi/v2/account", params, 1700000000000)
	if err != nil {
		t.Fatalf("signAt returned error: %v", err)
	}
	second, err := s.signAt("GET", "/fapi/v2/account", params, 1700000000000)
	if err != nil {
		t.Fatalf("signAt returned error: %v", err)
	}
	if first.Signature != second.Signature || first.CanonicalQuery != second.CanonicalQuery {
		t.Errorf("identical input must produce identical signature")
	}
}

func TestSign_MissingSecret(t *testing.T) {
	s := New("binance-futures", "key", "", 5*time.Second, nil)

	_, err := s.Sign("POST", "/fapi/v1/order", nil)
	if !operr.Is(err, operr.CodeSigning) {
		t.Fatalf("expected SIGNING_ERROR, got %v", err)
	}
}

func TestClock_OffsetShiftsTimestamp(t *testing.T) {
	c := NewClock()
	c.SetOffset(2 * time.Hour)

	drifted := c.Now()
	if d := time.Until(drifted); d < time.Hour {
		t.Errorf("expected Now() to be shifted forward by about 2h, diff=%v", d)
	}

	c.Reset()
	if d := time.Until(c.Now()); d > time.Minute {
		t.Errorf("expected Reset to clear the offset, diff=%v", d)
	}
}

type fakeTimeSource struct {
	serverTime time.Time
	err        error
}

func (f fakeTimeSource) ServerTime(ctx context.Context) (time.Time, error) {
	return f.serverTime, f.err
}

func TestResync_SetsAndClearsOffset(t *testing.T) {
	s := New("binance-futures", "key", refSecret, 5*time.Second, nil)

	if err := s.Resync(context.Background(), fakeTimeSource{serverTime: time.Now().Add(3 * time.Second)}); err != nil {
		t.Fatalf("Resync returned error: %v", err)
	}
	if off := s.Clock().Offset(); off < 2*time.Second || off > 4*time.Second {
		t.Errorf("expected offset near 3s, got %v", off)
	}

	err := s.Resync(context.Background(), fakeTimeSource{err: errors.New("timeout")})
	if !operr.Is(err, operr.CodeSigning) {
		t.Fatalf("expected SIGNING_ERROR on failed resync, got %v", err)
	}
	if off := s.Clock().Offset(); off != 0 {
		t.Errorf("expected offset reset to zero, got %v", off)
	}
}

func TestShouldBackoff(t *testing.T) {
	cases := []struct {
		name  string
		usage Usage
		want  bool
	}{
		{"idle", Usage{Weight1m: 100, Orders10s: 2, Orders1m: 30}, false},
		{"weight", Usage{Weight1m: 1000}, true},
		{"orders10s", Usage{Orders10s: 45}, true},
		{"orders1m", Usage{Orders1m: 1100}, true},
	}
	for _, tc := range cases {
		if got := ShouldBackoff(tc.usage); got != tc.want {
			t.Errorf("%s: ShouldBackoff=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestBackoffDelay_GrowsAndCaps(t *testing.T) {
	// 抖动幅度 ±20%，用宽松区间断言。
	if d := BackoffDelay(0); d < 700*time.Millisecond || d > 1300*time.Millisecond {
		t.Errorf("retry 0: expected ~1s, got %v", d)
	}
	if d := BackoffDelay(3); d < 6*time.Second || d > 10*time.Second {
		t.Errorf("retry 3: expected ~8s, got %v", d)
	}
	for i := 0; i < 50; i++ {
		if d := BackoffDelay(20); d > 60*time.Second {
			t.Fatalf("delay must cap at 60s, got %v", d)
		}
	}
}

func TestUsageTracker_ZeroFieldsKeepOldReading(t *testing.T) {
	var tr UsageTracker
	tr.Update(Usage{Weight1m: 500, Orders10s: 10, Orders1m: 200})
	tr.Update(Usage{Weight1m: 600})

	got := tr.Snapshot()
	if got.Weight1m != 600 || got.Orders10s != 10 || got.Orders1m != 200 {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}
