// Package paytrail provides a payment ledger and an append-only audit trail
// for Go applications.
//
// Paytrail is designed as a library, not a service. Import it directly into
// your application and hand it a store. It provides:
//
//   - A payment state machine (pending, completed, failed, refunded) with
//     compare-and-swap transitions and exactly-once timestamps
//   - Human-readable, externally traceable transaction identifiers
//   - Exact decimal amounts held as integer minor units
//   - An audit trail with composable filters, allow-listed sorting and
//     clamped pagination
//   - Memory, PostgreSQL, SQLite and MongoDB stores
//   - Plugins for audit bridging, metrics and RabbitMQ notifications
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/paytrail"
//	    "github.com/xraph/paytrail/store/postgres"
//	)
//
//	l := paytrail.New(postgres.New(db))
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Payments
//
// Payments are created pending (or completed, which stamps paid_at at
// creation) and then advanced through TransitionPayment or RefundPayment:
//
//	p, err := l.CreatePayment(ctx, req, payment.CreateInput{
//	    CustomerID: 7,
//	    Amount:     "49.99",
//	    Method:     payment.MethodCredit,
//	})
//	p, err = l.TransitionPayment(ctx, req, p.ID, payment.StatusCompleted)
//	p, err = l.RefundPayment(ctx, req, p.ID)
//
// Illegal edges return a *TransitionError, refunds of anything but a
// completed payment return a *RefundError, and a transaction identifier
// collision surfaces as ErrDuplicateTransactionID.
//
// # Audit Trail
//
//	entry, err := l.RecordEvent(ctx, req, audit.Input{
//	    Action:      "Location Deleted",
//	    Category:    audit.CategoryDelete,
//	    Description: "Removed the Harbor branch",
//	})
//
//	res, err := l.QueryEvents(ctx,
//	    audit.Filter{Category: audit.CategoryDelete, Search: "harbor"},
//	    audit.Sort{Field: audit.SortCreatedAt, Direction: audit.Desc},
//	    audit.Page{Number: 1, PerPage: 50},
//	)
//
// # TypeID
//
// Payments use TypeID identifiers such as pay_01h2xcejqtf2nbrexx3vqjhp41.
// Audit entries use store-assigned integers that increase in insertion order.
package paytrail
