package paytrail

import (
	"errors"
	"fmt"

	"github.com/xraph/paytrail/payment"
)

// Sentinel errors for common failure scenarios.
var (
	// Validation errors
	ErrValidation         = errors.New("paytrail: validation failed")
	ErrInvalidAmount      = errors.New("paytrail: invalid amount")
	ErrInvalidCurrency    = errors.New("paytrail: invalid currency")
	ErrInvalidMethod      = errors.New("paytrail: invalid payment method")
	ErrInvalidStatus      = errors.New("paytrail: invalid payment status")
	ErrInvalidCustomer    = errors.New("paytrail: invalid customer")
	ErrInvalidCategory    = errors.New("paytrail: invalid audit category")
	ErrInvalidDescription = errors.New("paytrail: audit description is required")
	ErrInvalidMetadata    = errors.New("paytrail: audit metadata is not serializable")
	ErrInvalidFilter      = errors.New("paytrail: invalid audit filter")

	// State machine errors
	ErrIllegalTransition = errors.New("paytrail: illegal payment transition")
	ErrRefundNotAllowed  = errors.New("paytrail: refund not allowed")

	// Lookup errors
	ErrNotFound           = errors.New("paytrail: not found")
	ErrPaymentNotFound    = fmt.Errorf("%w: payment", ErrNotFound)
	ErrAuditEntryNotFound = fmt.Errorf("%w: audit entry", ErrNotFound)

	// Integrity errors
	ErrIntegrity              = errors.New("paytrail: integrity violation")
	ErrDuplicateTransactionID = fmt.Errorf("%w: duplicate transaction id", ErrIntegrity)

	// Concurrency errors
	ErrStatusConflict         = errors.New("paytrail: payment status changed concurrently")
	ErrConcurrentModification = errors.New("paytrail: payment modified concurrently, retries exhausted")

	// Store errors
	ErrStoreClosed = errors.New("paytrail: store is closed")
)

// ValidationError reports a rejected field value. It matches ErrValidation
// and the field-specific sentinel in Err.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("paytrail: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap exposes both ErrValidation and the specific sentinel.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

func invalid(field string, sentinel error, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// TransitionError reports a status change outside the transition table.
type TransitionError struct {
	From payment.Status
	To   payment.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("paytrail: illegal payment transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// RefundError reports a refund attempted on a payment that is not completed.
type RefundError struct {
	Status payment.Status
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("paytrail: refund not allowed for %s payment", e.Status)
}

func (e *RefundError) Unwrap() error { return ErrRefundNotAllowed }

// IsValidation returns true if the error is a rejected input value.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIntegrity returns true if the error is a storage invariant violation.
// Integrity errors are fatal and must not be retried.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrStatusConflict)
}
