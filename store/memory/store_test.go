package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/store/memory"
	"github.com/xraph/paytrail/types"
)

func newPayment(txn string, created time.Time) *payment.Payment {
	return &payment.Payment{
		Entity:        types.NewEntity(created),
		ID:            id.NewPaymentID(),
		TransactionID: txn,
		CustomerID:    7,
		Amount:        types.New(4999, "usd"),
		Method:        payment.MethodCredit,
		Status:        payment.StatusPending,
	}
}

func TestCreatePaymentRejectsDuplicateTransactionID(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Now()

	if err := s.CreatePayment(ctx, newPayment("TXN20240101000000AAAAAA", now)); err != nil {
		t.Fatal(err)
	}
	err := s.CreatePayment(ctx, newPayment("TXN20240101000000AAAAAA", now))
	if !errors.Is(err, paytrail.ErrDuplicateTransactionID) || !paytrail.IsIntegrity(err) {
		t.Fatalf("err = %v, want duplicate transaction id integrity error", err)
	}
}

func TestUpdatePaymentStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Now().UTC()

	p := newPayment("TXN20240101000000AAAAAB", now)
	if err := s.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	u := payment.StatusUpdate{ID: p.ID, From: payment.StatusPending, To: payment.StatusCompleted, PaidAt: &now, UpdatedAt: now}
	if err := s.UpdatePaymentStatus(ctx, u); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Same expected status again: the row has moved on.
	if err := s.UpdatePaymentStatus(ctx, u); !errors.Is(err, paytrail.ErrStatusConflict) {
		t.Fatalf("stale update err = %v, want ErrStatusConflict", err)
	}

	missing := u
	missing.ID = id.NewPaymentID()
	if err := s.UpdatePaymentStatus(ctx, missing); !errors.Is(err, paytrail.ErrPaymentNotFound) {
		t.Fatalf("missing update err = %v, want ErrPaymentNotFound", err)
	}

	got, err := s.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != payment.StatusCompleted || got.PaidAt == nil || !got.PaidAt.Equal(now) {
		t.Errorf("stored payment = %+v", got)
	}
}

func TestReturnedPaymentsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := newPayment("TXN20240101000000AAAAAC", time.Now())
	if err := s.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	p.Status = payment.StatusRefunded
	got, _ := s.GetPayment(ctx, p.ID)
	got.Notes = "changed"

	again, _ := s.GetPayment(ctx, p.ID)
	if again.Status != payment.StatusPending || again.Notes != "" {
		t.Errorf("store state leaked: %+v", again)
	}
}

func TestAuditEntriesAreImmutable(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	actor, location := int64(7), int64(3)
	e := &audit.Entry{
		ActorID:     &actor,
		LocationID:  &location,
		Category:    audit.CategoryUpdate,
		Description: "changed hours",
		Metadata:    map[string]any{"tags": []any{"a"}},
		CreatedAt:   time.Now(),
	}
	if err := s.AppendAuditEntry(ctx, e); err != nil {
		t.Fatal(err)
	}

	actor = 999
	got, err := s.GetAuditEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	*got.LocationID = 555
	got.Metadata["tags"].([]any)[0] = "z"

	again, err := s.GetAuditEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *again.ActorID != 7 || *again.LocationID != 3 || again.Metadata["tags"].([]any)[0] != "a" {
		t.Errorf("stored entry changed: actor=%d location=%d metadata=%v",
			*again.ActorID, *again.LocationID, again.Metadata)
	}
}

func TestListPaymentsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, txn := range []string{"TXN20240101000000AAAAA1", "TXN20240101000000AAAAA2", "TXN20240101000000AAAAA3"} {
		p := newPayment(txn, base.Add(time.Duration(i)*time.Minute))
		if i == 1 {
			p.CustomerID = 8
		}
		if err := s.CreatePayment(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListPayments(ctx, payment.ListOpts{CustomerID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].TransactionID != "TXN20240101000000AAAAA3" {
		t.Errorf("first = %s, want newest", got[0].TransactionID)
	}

	page, _ := s.ListPayments(ctx, payment.ListOpts{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].TransactionID != "TXN20240101000000AAAAA2" {
		t.Errorf("page = %+v", page)
	}
}

func TestAuditEntriesAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	ts := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := &audit.Entry{
			Action:      "Payment Created",
			Category:    audit.CategoryCreate,
			Description: "created",
			Metadata:    map[string]any{"n": i},
			CreatedAt:   ts,
		}
		if err := s.AppendAuditEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
		if e.ID != int64(i+1) {
			t.Fatalf("ID = %d, want %d", e.ID, i+1)
		}
	}

	q := audit.NewQuery(audit.Filter{MetadataKey: "n"}, audit.Sort{}, audit.Page{Number: 2, PerPage: 2}, ts, time.UTC, 0, 0)
	entries, total, err := s.QueryAuditEntries(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	// Equal timestamps, descending: 5 4 | 3 2 | 1
	if len(entries) != 2 || entries[0].ID != 3 || entries[1].ID != 2 {
		t.Fatalf("page 2 = %v", entries)
	}
	if n, ok := entries[0].Metadata["n"].(json.Number); !ok || n.String() != "2" {
		t.Errorf("metadata n = %#v, want json.Number 2", entries[0].Metadata["n"])
	}

	got, err := s.GetAuditEntry(ctx, 4)
	if err != nil || got.ID != 4 {
		t.Fatalf("GetAuditEntry(4) = %v, %v", got, err)
	}
	if _, err := s.GetAuditEntry(ctx, 99); !errors.Is(err, paytrail.ErrAuditEntryNotFound) {
		t.Errorf("err = %v, want ErrAuditEntryNotFound", err)
	}
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); !errors.Is(err, paytrail.ErrStoreClosed) {
		t.Errorf("Ping err = %v, want ErrStoreClosed", err)
	}
	if err := s.AppendAuditEntry(ctx, &audit.Entry{}); !errors.Is(err, paytrail.ErrStoreClosed) {
		t.Errorf("Append err = %v, want ErrStoreClosed", err)
	}
}
