package observability_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/observability"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/store/memory"
)

type fakeMetric struct {
	mu       sync.Mutex
	value    float64
	observed []float64
}

func (f *fakeMetric) Inc() { f.Add(1) }

func (f *fakeMetric) Add(v float64) {
	f.mu.Lock()
	f.value += v
	f.mu.Unlock()
}

func (f *fakeMetric) Observe(v float64) {
	f.mu.Lock()
	f.observed = append(f.observed, v)
	f.mu.Unlock()
}

type fakeFactory struct {
	mu      sync.Mutex
	metrics map[string]*fakeMetric
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{metrics: make(map[string]*fakeMetric)}
}

func (f *fakeFactory) get(name string) *fakeMetric {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metrics[name]
	if !ok {
		m = &fakeMetric{}
		f.metrics[name] = m
	}
	return m
}

func (f *fakeFactory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *fakeFactory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestMetricsFollowPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory()
	l := paytrail.New(memory.New(),
		paytrail.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		paytrail.WithPlugin(observability.NewMetricsExtension(factory)),
	)
	req := audit.RequestInfo{}

	a, _ := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 1, Amount: "49.99", Method: payment.MethodCredit})
	b, _ := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 1, Amount: "10", Method: payment.MethodCash, Status: payment.StatusCompleted})
	c, _ := l.CreatePayment(ctx, req, payment.CreateInput{CustomerID: 1, Amount: "5", Method: payment.MethodDebit})

	mustOK(t, func() error { _, err := l.TransitionPayment(ctx, req, a.ID, payment.StatusCompleted); return err })
	mustOK(t, func() error { _, err := l.RefundPayment(ctx, req, b.ID); return err })
	mustOK(t, func() error { _, err := l.TransitionPayment(ctx, req, c.ID, payment.StatusFailed); return err })
	mustOK(t, func() error { _, err := l.UpdatePaymentNotes(ctx, req, c.ID, "card declined"); return err })
	mustOK(t, func() error {
		_, err := l.RecordEvent(ctx, req, audit.Input{Category: audit.CategoryExport, Description: "csv export"})
		return err
	})

	tests := []struct {
		name string
		want float64
	}{
		{"paytrail.payment.created", 3},
		{"paytrail.payment.completed", 2},
		{"paytrail.payment.failed", 1},
		{"paytrail.payment.refunded", 1},
		{"paytrail.payment.notes_updated", 1},
		{"paytrail.audit.recorded", 1},
		{"paytrail.audit.recorded.export", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := factory.get(tt.name).value; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	amounts := factory.get("paytrail.payment.amount").observed
	if len(amounts) != 3 || amounts[0] != 49.99 {
		t.Errorf("amount observations = %v", amounts)
	}
	refunds := factory.get("paytrail.payment.refund_amount").observed
	if len(refunds) != 1 || refunds[0] != 10 {
		t.Errorf("refund observations = %v", refunds)
	}
}

func mustOK(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatal(err)
	}
}
