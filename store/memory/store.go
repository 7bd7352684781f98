// Package memory is an in-process store for tests and embedded use. Reads
// take a shared lock and never block one another.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/store"
)

var _ store.Store = (*Store)(nil)

type storedEntry struct {
	entry    audit.Entry
	metadata []byte
}

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Payment storage
	payments map[string]*payment.Payment
	byTxn    map[string]string

	// Audit storage, in insertion order
	entries []storedEntry
	lastID  int64
}

func New() *Store {
	return &Store{
		payments: make(map[string]*payment.Payment),
		byTxn:    make(map[string]string),
	}
}

// Payment Store implementation
func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paytrail.ErrStoreClosed
	}
	if _, exists := s.byTxn[p.TransactionID]; exists {
		return fmt.Errorf("paytrail/memory: create payment %s: %w", p.TransactionID, paytrail.ErrDuplicateTransactionID)
	}
	if _, exists := s.payments[p.ID.String()]; exists {
		return fmt.Errorf("paytrail/memory: create payment %s: %w: duplicate id", p.ID, paytrail.ErrIntegrity)
	}

	s.payments[p.ID.String()] = p.Clone()
	s.byTxn[p.TransactionID] = p.ID.String()
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paytrail.ErrStoreClosed
	}
	if p, ok := s.payments[paymentID.String()]; ok {
		return p.Clone(), nil
	}
	return nil, paytrail.ErrPaymentNotFound
}

func (s *Store) GetPaymentByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paytrail.ErrStoreClosed
	}
	if key, ok := s.byTxn[transactionID]; ok {
		return s.payments[key].Clone(), nil
	}
	return nil, paytrail.ErrPaymentNotFound
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paytrail.ErrStoreClosed
	}

	result := make([]*payment.Payment, 0)
	for _, p := range s.payments {
		if opts.CustomerID != 0 && p.CustomerID != opts.CustomerID {
			continue
		}
		if opts.BookingID != nil && (p.BookingID == nil || *p.BookingID != *opts.BookingID) {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if opts.Method != "" && p.Method != opts.Method {
			continue
		}
		result = append(result, p.Clone())
	}

	// Newest first; payment ids are K-sortable so they break ties.
	slices.SortFunc(result, func(a, b *payment.Payment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID.String() > b.ID.String():
			return -1
		case a.ID.String() < b.ID.String():
			return 1
		}
		return 0
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, u payment.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paytrail.ErrStoreClosed
	}
	p, ok := s.payments[u.ID.String()]
	if !ok {
		return paytrail.ErrPaymentNotFound
	}
	if p.Status != u.From {
		return fmt.Errorf("paytrail/memory: update payment %s: %w", u.ID, paytrail.ErrStatusConflict)
	}

	u.Apply(p)
	return nil
}

func (s *Store) UpdatePaymentNotes(_ context.Context, paymentID id.PaymentID, notes string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paytrail.ErrStoreClosed
	}
	p, ok := s.payments[paymentID.String()]
	if !ok {
		return paytrail.ErrPaymentNotFound
	}
	p.Notes = notes
	p.UpdatedAt = updatedAt
	return nil
}

// Audit Store implementation
func (s *Store) AppendAuditEntry(_ context.Context, e *audit.Entry) error {
	meta, err := audit.EncodeMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("paytrail/memory: encode metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paytrail.ErrStoreClosed
	}

	s.lastID++
	e.ID = s.lastID

	stored := e.Clone()
	stored.Metadata = nil
	s.entries = append(s.entries, storedEntry{entry: *stored, metadata: meta})
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID int64) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, paytrail.ErrStoreClosed
	}

	// ids are dense and ascending, so the entry sits at entryID-1.
	if entryID < 1 || entryID > int64(len(s.entries)) {
		return nil, paytrail.ErrAuditEntryNotFound
	}
	return s.entries[entryID-1].load()
}

func (s *Store) QueryAuditEntries(_ context.Context, q audit.Query) ([]*audit.Entry, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, 0, paytrail.ErrStoreClosed
	}

	matched := make([]*audit.Entry, 0)
	for i := range s.entries {
		e, err := s.entries[i].load()
		if err != nil {
			return nil, 0, err
		}
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}

	audit.SortEntries(matched, q.Sort)
	return paginate(matched, q.Offset, q.Limit), int64(len(matched)), nil
}

func (se storedEntry) load() (*audit.Entry, error) {
	e := se.entry.Clone()
	meta, err := audit.DecodeMetadata(se.metadata)
	if err != nil {
		return nil, fmt.Errorf("paytrail/memory: decode metadata for entry %d: %w", e.ID, err)
	}
	e.Metadata = meta
	return e, nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return paytrail.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Helper functions
func paginate[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
