// Package observability provides a metrics extension for paytrail that
// records payment and audit event counts through a MetricFactory.
package observability

import (
	"context"
	"strconv"
	"sync"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnPaymentCreated      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentTransitioned = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRefunded     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentNotesUpdated = (*MetricsExtension)(nil)
	_ plugin.OnAuditRecorded       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records payment and audit metrics.
// Register it as a paytrail plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Payment metrics
	PaymentCreated      Counter
	PaymentCompleted    Counter
	PaymentFailed       Counter
	PaymentRefunded     Counter
	PaymentNotesUpdated Counter
	PaymentAmount       Histogram
	RefundAmount        Histogram

	// Audit metrics
	AuditRecorded Counter

	mu         sync.Mutex
	byCategory map[audit.Category]Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		PaymentCreated:      factory.Counter("paytrail.payment.created"),
		PaymentCompleted:    factory.Counter("paytrail.payment.completed"),
		PaymentFailed:       factory.Counter("paytrail.payment.failed"),
		PaymentRefunded:     factory.Counter("paytrail.payment.refunded"),
		PaymentNotesUpdated: factory.Counter("paytrail.payment.notes_updated"),
		PaymentAmount:       factory.Histogram("paytrail.payment.amount"),
		RefundAmount:        factory.Histogram("paytrail.payment.refund_amount"),

		AuditRecorded: factory.Counter("paytrail.audit.recorded"),

		byCategory: make(map[audit.Category]Counter),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Payment lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentCreated implements plugin.OnPaymentCreated.
func (m *MetricsExtension) OnPaymentCreated(_ context.Context, _ audit.RequestInfo, p *payment.Payment) error {
	m.PaymentCreated.Inc()
	m.PaymentAmount.Observe(majorUnits(p))
	if p.Status == payment.StatusCompleted {
		m.PaymentCompleted.Inc()
	}
	return nil
}

// OnPaymentTransitioned implements plugin.OnPaymentTransitioned.
func (m *MetricsExtension) OnPaymentTransitioned(_ context.Context, _ audit.RequestInfo, p *payment.Payment, _ payment.Status) error {
	switch p.Status {
	case payment.StatusCompleted:
		m.PaymentCompleted.Inc()
	case payment.StatusFailed:
		m.PaymentFailed.Inc()
	}
	return nil
}

// OnPaymentRefunded implements plugin.OnPaymentRefunded.
func (m *MetricsExtension) OnPaymentRefunded(_ context.Context, _ audit.RequestInfo, p *payment.Payment) error {
	m.PaymentRefunded.Inc()
	m.RefundAmount.Observe(majorUnits(p))
	return nil
}

// OnPaymentNotesUpdated implements plugin.OnPaymentNotesUpdated.
func (m *MetricsExtension) OnPaymentNotesUpdated(_ context.Context, _ audit.RequestInfo, _ *payment.Payment) error {
	m.PaymentNotesUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// OnAuditRecorded implements plugin.OnAuditRecorded.
func (m *MetricsExtension) OnAuditRecorded(_ context.Context, e *audit.Entry) error {
	m.AuditRecorded.Inc()
	m.categoryCounter(e.Category).Inc()
	return nil
}

func (m *MetricsExtension) categoryCounter(c audit.Category) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	counter, ok := m.byCategory[c]
	if !ok {
		counter = m.factory.Counter("paytrail.audit.recorded." + string(c))
		m.byCategory[c] = counter
	}
	return counter
}

// majorUnits reports an amount in major units.
func majorUnits(p *payment.Payment) float64 {
	v, err := strconv.ParseFloat(p.Amount.FormatMajor(), 64)
	if err != nil {
		return 0
	}
	return v
}
