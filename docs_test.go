package paytrail_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	audithook "github.com/xraph/paytrail/audit_hook"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/store/memory"
	"github.com/xraph/paytrail/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Memory store for demo, use PostgreSQL in production.
		store := memory.New()

		l := paytrail.New(store,
			paytrail.WithLogger(slog.Default()),
			paytrail.WithHomeCurrency("usd"),
			paytrail.WithMaxPerPage(50),
		)
		if err := l.RegisterPlugin(audithook.New(l)); err != nil {
			t.Fatal(err)
		}

		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		actor := int64(42)
		req := audit.RequestInfo{ActorID: &actor, IPAddress: "203.0.113.7", UserAgent: "docs"}

		p, err := l.CreatePayment(ctx, req, payment.CreateInput{
			CustomerID: 7,
			Amount:     "49.99",
			Method:     payment.MethodCredit,
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("Payment %s created: %s\n", p.TransactionID, p.Amount)

		if p, err = l.TransitionPayment(ctx, req, p.ID, payment.StatusCompleted); err != nil {
			t.Fatal(err)
		}
		if p, err = l.RefundPayment(ctx, req, p.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := l.RecordEvent(ctx, req, audit.Input{
			Action:      "Location Deleted",
			Category:    audit.CategoryDelete,
			Description: "Removed the Harbor branch",
		}); err != nil {
			t.Fatal(err)
		}

		res, err := l.QueryEvents(ctx,
			audit.Filter{Search: "harbor"},
			audit.Sort{Field: audit.SortCreatedAt, Direction: audit.Desc},
			audit.Page{Number: 1, PerPage: 50},
		)
		if err != nil {
			t.Fatal(err)
		}
		if res.PageInfo.Total != 1 {
			t.Errorf("search matched %d entries, want 1", res.PageInfo.Total)
		}

		// Payment mutations land in the audit trail through the hook.
		trail, err := l.QueryEvents(ctx, audit.Filter{EntityType: audithook.EntityPayment}, audit.Sort{}, audit.Page{})
		if err != nil {
			t.Fatal(err)
		}
		if trail.PageInfo.Total != 3 {
			t.Errorf("payment trail has %d entries, want 3", trail.PageInfo.Total)
		}
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		_ = types.New(4999, "usd") // $49.99
		_ = types.Zero("eur")      // €0.00

		m, err := types.Parse("49.99", "usd")
		if err != nil {
			t.Fatal(err)
		}
		if !m.Equal(types.New(4999, "usd")) {
			t.Errorf("parsed %v", m)
		}

		_ = m.String()      // "$49.99"
		_ = m.FormatMajor() // "49.99"

		if _, err := types.Parse("1.234", "usd"); err == nil {
			t.Error("expected a precision error")
		}
	})
}
