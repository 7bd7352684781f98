package payment

import (
	"testing"
	"time"

	"github.com/xraph/paytrail/id"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusPending, StatusPending, true},
		{StatusRefunded, StatusRefunded, true},
		{StatusPending, StatusRefunded, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusRefunded, StatusCompleted, false},
		{StatusFailed, StatusRefunded, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPlanSideEffects(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	t.Run("complete sets paid_at", func(t *testing.T) {
		p := &Payment{ID: id.NewPaymentID(), Status: StatusPending}
		u, ok := Plan(p, StatusCompleted, now)
		if !ok {
			t.Fatal("pending -> completed should be legal")
		}
		if u.PaidAt == nil || !u.PaidAt.Equal(now) {
			t.Errorf("PaidAt = %v, want %v", u.PaidAt, now)
		}
		if u.RefundedAt != nil {
			t.Error("RefundedAt must stay nil")
		}
	})

	t.Run("refund sets refunded_at only", func(t *testing.T) {
		p := &Payment{ID: id.NewPaymentID(), Status: StatusCompleted, PaidAt: &earlier}
		u, ok := Plan(p, StatusRefunded, now)
		if !ok {
			t.Fatal("completed -> refunded should be legal")
		}
		if u.RefundedAt == nil || !u.RefundedAt.Equal(now) {
			t.Errorf("RefundedAt = %v, want %v", u.RefundedAt, now)
		}
		if u.PaidAt != nil {
			t.Error("refund must not rewrite PaidAt")
		}
	})

	t.Run("fail has no timestamps", func(t *testing.T) {
		p := &Payment{ID: id.NewPaymentID(), Status: StatusPending}
		u, ok := Plan(p, StatusFailed, now)
		if !ok {
			t.Fatal("pending -> failed should be legal")
		}
		if u.PaidAt != nil || u.RefundedAt != nil {
			t.Error("failure must not set timestamps")
		}
	})

	t.Run("same status is a noop", func(t *testing.T) {
		p := &Payment{ID: id.NewPaymentID(), Status: StatusCompleted, PaidAt: &earlier}
		u, ok := Plan(p, StatusCompleted, now)
		if !ok || !u.Noop() {
			t.Fatalf("ok=%v noop=%v, want true true", ok, u.Noop())
		}
		if u.PaidAt != nil {
			t.Error("noop must not carry timestamps")
		}
	})

	t.Run("illegal edge", func(t *testing.T) {
		p := &Payment{ID: id.NewPaymentID(), Status: StatusRefunded}
		if _, ok := Plan(p, StatusCompleted, now); ok {
			t.Error("refunded -> completed must be illegal")
		}
	})
}

func TestStatusUpdateApply(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	paid := now.Add(-time.Minute)
	p := &Payment{Status: StatusCompleted, PaidAt: &paid}

	u := StatusUpdate{From: StatusCompleted, To: StatusRefunded, RefundedAt: &now, UpdatedAt: now}
	u.Apply(p)

	if p.Status != StatusRefunded {
		t.Errorf("Status = %s, want refunded", p.Status)
	}
	if p.PaidAt == nil || !p.PaidAt.Equal(paid) {
		t.Errorf("PaidAt changed to %v", p.PaidAt)
	}
	if p.RefundedAt == nil || !p.RefundedAt.Equal(now) {
		t.Errorf("RefundedAt = %v, want %v", p.RefundedAt, now)
	}
	if !p.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, now)
	}
}

func TestCloneIsDeep(t *testing.T) {
	booking := int64(9)
	paid := time.Now()
	p := &Payment{BookingID: &booking, PaidAt: &paid}

	c := p.Clone()
	*c.BookingID = 10
	*c.PaidAt = paid.Add(time.Hour)

	if *p.BookingID != 9 {
		t.Error("clone shares BookingID")
	}
	if !p.PaidAt.Equal(paid) {
		t.Error("clone shares PaidAt")
	}
}

func TestValidEnums(t *testing.T) {
	for _, m := range Methods() {
		if !m.Valid() {
			t.Errorf("method %q should be valid", m)
		}
	}
	if Method("paypal").Valid() {
		t.Error("paypal should not be a valid method")
	}
	if Status("voided").Valid() {
		t.Error("voided should not be a valid status")
	}
}
