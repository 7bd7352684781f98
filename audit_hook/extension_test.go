package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	audithook "github.com/xraph/paytrail/audit_hook"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/store/memory"
)

var req = audit.RequestInfo{IPAddress: "192.0.2.10", UserAgent: "hook-test"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T, opts ...audithook.Option) *paytrail.Ledger {
	t.Helper()
	l := paytrail.New(memory.New(), paytrail.WithLogger(quietLogger()))
	if err := l.RegisterPlugin(audithook.New(l, append([]audithook.Option{audithook.WithLogger(quietLogger())}, opts...)...)); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func paymentEntries(t *testing.T, l *paytrail.Ledger) []*audit.Entry {
	t.Helper()
	res, err := l.QueryEvents(context.Background(),
		audit.Filter{EntityType: audithook.EntityPayment},
		audit.Sort{Field: audit.SortCreatedAt, Direction: audit.Asc},
		audit.Page{PerPage: 100},
	)
	if err != nil {
		t.Fatal(err)
	}
	return res.Entries
}

func TestLifecycleIsAudited(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	p, err := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 7, BookingID: ptr(int64(31)), Amount: "49.99", Method: payment.MethodCredit})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.TransitionPayment(ctx, req, p.ID, payment.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RefundPayment(ctx, req, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.UpdatePaymentNotes(ctx, req, p.ID, "refund approved"); err != nil {
		t.Fatal(err)
	}
	// A no-op transition writes nothing.
	if _, err := l.TransitionPayment(ctx, req, p.ID, payment.StatusRefunded); err != nil {
		t.Fatal(err)
	}

	entries := paymentEntries(t, l)
	want := []struct {
		action   string
		category audit.Category
	}{
		{audithook.ActionPaymentCreated, audit.CategoryCreate},
		{audithook.ActionPaymentCompleted, audit.CategoryUpdate},
		{audithook.ActionPaymentRefunded, audit.CategoryUpdate},
		{audithook.ActionPaymentNotesUpdated, audit.CategoryUpdate},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		e := entries[i]
		if e.Action != w.action || e.Category != w.category {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, e.Action, e.Category, w.action, w.category)
		}
		if e.Metadata["transaction_id"] != p.TransactionID {
			t.Errorf("entry %d transaction_id = %v", i, e.Metadata["transaction_id"])
		}
		if e.IPAddress != req.IPAddress || e.UserAgent != req.UserAgent {
			t.Errorf("entry %d lost request info: %+v", i, e)
		}
	}

	refund := entries[2]
	if refund.Metadata["from"] != "completed" || refund.Metadata["to"] != "refunded" {
		t.Errorf("refund metadata = %v", refund.Metadata)
	}
	if entries[0].Metadata["amount"] != "49.99" {
		t.Errorf("amount metadata = %v", entries[0].Metadata["amount"])
	}
}

func TestDisabledActions(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, audithook.WithDisabledActions(audithook.ActionPaymentCreated))

	p, _ := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 7, Amount: "1.00", Method: payment.MethodCash})
	if _, err := l.TransitionPayment(ctx, req, p.ID, payment.StatusFailed); err != nil {
		t.Fatal(err)
	}

	entries := paymentEntries(t, l)
	if len(entries) != 1 || entries[0].Action != audithook.ActionPaymentFailed {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestEnabledActions(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, audithook.WithEnabledActions(audithook.ActionPaymentRefunded))

	p, _ := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 7, Amount: "1.00", Method: payment.MethodCash, Status: payment.StatusCompleted})
	if _, err := l.RefundPayment(ctx, req, p.ID); err != nil {
		t.Fatal(err)
	}

	entries := paymentEntries(t, l)
	if len(entries) != 1 || entries[0].Action != audithook.ActionPaymentRefunded {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestRecorderFailureDoesNotFailPayment(t *testing.T) {
	ctx := context.Background()
	calls := 0
	failing := audithook.RecorderFunc(func(context.Context, audit.RequestInfo, audit.Input) (*audit.Entry, error) {
		calls++
		return nil, errors.New("audit backend down")
	})

	l := paytrail.New(memory.New(), paytrail.WithLogger(quietLogger()),
		paytrail.WithPlugin(audithook.New(failing, audithook.WithLogger(quietLogger()))))

	if _, err := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 7, Amount: "1.00", Method: payment.MethodCash}); err != nil {
		t.Fatalf("create failed because of the recorder: %v", err)
	}
	if calls != 1 {
		t.Errorf("recorder called %d times, want 1", calls)
	}
}

func ptr[T any](v T) *T { return &v }
