package audithook

// Action names written to audit entries.
const (
	ActionPaymentCreated      = "Payment Created"
	ActionPaymentCompleted    = "Payment Completed"
	ActionPaymentFailed       = "Payment Failed"
	ActionPaymentRefunded     = "Payment Refunded"
	ActionPaymentNotesUpdated = "Payment Notes Updated"
)

// EntityPayment is the entity type recorded for payment events.
const EntityPayment = "payment"
