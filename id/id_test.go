package id_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/paytrail/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParsePaymentID(id.NewEventID().String()); err == nil {
		t.Error("expected ParsePaymentID to reject an evt_ id")
	}
	if _, err := id.ParseEventID(id.NewPaymentID().String()); err == nil {
		t.Error("expected ParseEventID to reject a pay_ id")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID string = %q, want empty", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("nil ID Value() = %v, %v; want nil, nil", v, err)
	}
}

func TestScan(t *testing.T) {
	original := id.NewPaymentID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if fromString.String() != original.String() {
		t.Errorf("scan string mismatch: %q", fromString.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if fromBytes.String() != original.String() {
		t.Errorf("scan bytes mismatch: %q", fromBytes.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("scan nil: err=%v nil=%v", err, fromNil.IsNil())
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestTxnGeneratorFormat(t *testing.T) {
	fixed := time.Date(2024, 1, 5, 23, 59, 7, 0, time.UTC)
	g := id.NewTxnGenerator(id.WithTxnClock(func() time.Time { return fixed }))

	got, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.HasPrefix(got, "TXN20240105235907") {
		t.Errorf("unexpected timestamp component in %q", got)
	}
	if !id.IsTransactionID(got) {
		t.Errorf("%q does not match the transaction id shape", got)
	}
}

func TestTxnGeneratorUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, 1, 6, 2, 0, 0, 0, loc)
	g := id.NewTxnGenerator(id.WithTxnClock(func() time.Time { return local }))

	got, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.HasPrefix(got, "TXN20240105230000") {
		t.Errorf("expected UTC timestamp, got %q", got)
	}
}

func TestTxnGeneratorRejectsBiasedBytes(t *testing.T) {
	// 252..255 are above the largest multiple of 36 and must be skipped.
	src := bytes.NewReader(append(bytes.Repeat([]byte{255}, 12), []byte{0, 1, 2, 35, 36, 71, 0, 0, 0, 0, 0, 0}...))
	g := id.NewTxnGenerator(id.WithTxnEntropy(src))

	got, err := g.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if suffix := got[len(got)-6:]; suffix != "ABC9A9" {
		t.Errorf("suffix = %q, want ABC9A9", suffix)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestTxnGeneratorEntropyFailure(t *testing.T) {
	g := id.NewTxnGenerator(id.WithTxnEntropy(failingReader{}))
	if _, err := g.Next(); err == nil {
		t.Fatal("expected error when entropy source fails")
	}
}

func TestTxnGeneratorUniqueness(t *testing.T) {
	// 100 draws per simulated second, the rate a busy ledger might see.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	g := id.NewTxnGenerator(id.WithTxnClock(func() time.Time {
		calls++
		return base.Add(time.Duration(calls/100) * time.Second)
	}))
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		got, err := g.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if _, dup := seen[got]; dup {
			t.Fatalf("duplicate transaction id %q after %d draws", got, i)
		}
		seen[got] = struct{}{}
	}
}

func TestIsTransactionID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"TXN20240105235907ABC123", true},
		{"TXN20240105235907abc123", false},
		{"TXN2024010523590ABC123", false},
		{"TX20240105235907ABC123", false},
		{"TXN20240105235907ABC1234", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := id.IsTransactionID(tt.in); got != tt.want {
				t.Errorf("IsTransactionID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
