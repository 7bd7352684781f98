package paytrail

import (
	"log/slog"
	"time"

	"github.com/xraph/paytrail/plugin"
	"github.com/xraph/paytrail/types"
)

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithHomeCurrency sets the currency used when a payment omits one.
// Invalid codes are ignored.
func WithHomeCurrency(currency string) Option {
	return func(l *Ledger) {
		if c := types.NormalizeCurrency(currency); types.ValidCurrency(c) {
			l.homeCurrency = c
		}
	}
}

// WithTxnGenerator replaces the transaction identifier generator.
func WithTxnGenerator(g TxnGenerator) Option {
	return func(l *Ledger) { l.txn = g }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.clock = now }
}

// WithLocation sets the location in which audit date filters are resolved.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithDefaultPerPage sets the audit page size used when a query omits one.
func WithDefaultPerPage(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.defaultPerPage = n
		}
	}
}

// WithMaxPerPage sets the upper bound on audit page size.
func WithMaxPerPage(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxPerPage = n
		}
	}
}

// WithTransitionRetries sets how many times a transition that lost a
// concurrent race is re-evaluated before ErrConcurrentModification.
func WithTransitionRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.transitionRetries = n
		}
	}
}

// WithAutoMigrate controls whether Start runs store migrations.
func WithAutoMigrate(enabled bool) Option {
	return func(l *Ledger) { l.autoMigrate = enabled }
}
