package payment

import (
	"time"

	"github.com/xraph/paytrail/id"
)

type effect uint8

const (
	effectNone effect = iota
	effectPaidAt
	effectRefundedAt
)

// edges lists every legal status change and the timestamp it produces.
var edges = map[Status]map[Status]effect{
	StatusPending: {
		StatusCompleted: effectPaidAt,
		StatusFailed:    effectNone,
	},
	StatusCompleted: {
		StatusRefunded: effectRefundedAt,
	},
}

// CanTransition reports whether a payment in status from may move to to.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	_, ok := edges[from][to]
	return ok
}

// StatusUpdate is a compare-and-swap status change. Stores apply it only
// while the stored status still equals From, writing status and any
// non-nil timestamp together.
type StatusUpdate struct {
	ID         id.PaymentID
	From       Status
	To         Status
	PaidAt     *time.Time
	RefundedAt *time.Time
	UpdatedAt  time.Time
}

// Noop reports whether the update leaves the payment untouched.
func (u StatusUpdate) Noop() bool { return u.From == u.To }

// Apply writes the update onto p in memory.
func (u StatusUpdate) Apply(p *Payment) {
	p.Status = u.To
	if u.PaidAt != nil {
		p.PaidAt = cloneTime(u.PaidAt)
	}
	if u.RefundedAt != nil {
		p.RefundedAt = cloneTime(u.RefundedAt)
	}
	p.UpdatedAt = u.UpdatedAt
}

// Plan computes the update moving p to status to at time now.
// ok is false when the edge is illegal. A same-status request yields a
// no-op update with no timestamps.
func Plan(p *Payment, to Status, now time.Time) (u StatusUpdate, ok bool) {
	u = StatusUpdate{ID: p.ID, From: p.Status, To: to, UpdatedAt: now}
	if p.Status == to {
		return u, true
	}

	eff, ok := edges[p.Status][to]
	if !ok {
		return StatusUpdate{}, false
	}

	switch eff {
	case effectPaidAt:
		if p.PaidAt == nil {
			u.PaidAt = &now
		}
	case effectRefundedAt:
		if p.RefundedAt == nil {
			u.RefundedAt = &now
		}
	}
	return u, true
}
