package paytrail

import (
	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/payment"
	"github.com/xraph/paytrail/types"
)

// Re-export common types for convenience so users don't have to import the
// leaf packages for everyday calls.

// Money is re-exported from types package.
type Money = types.Money

// PaymentID is re-exported from id package.
type PaymentID = id.PaymentID

// Payment is re-exported from payment package.
type Payment = payment.Payment

// RequestInfo is re-exported from audit package.
type RequestInfo = audit.RequestInfo

// Re-export constructors
var (
	ParseMoney     = types.Parse
	ParsePaymentID = id.ParsePaymentID
)
