package extension

import (
	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/plugin"
	"github.com/xraph/paytrail/store"
)

// Option configures the paytrail Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. Without one the extension
// falls back to the in-memory store.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a paytrail.Option through to the underlying engine.
func WithLedgerOption(opt paytrail.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a paytrail plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, paytrail.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDisableAuditHook keeps payment mutations out of the audit trail.
func WithDisableAuditHook() Option {
	return func(e *Extension) { e.config.DisableAuditHook = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithHomeCurrency sets the currency used when a payment omits one.
func WithHomeCurrency(currency string) Option {
	return func(e *Extension) { e.config.HomeCurrency = currency }
}

// WithTimezone sets the IANA zone audit date filters are resolved in.
func WithTimezone(name string) Option {
	return func(e *Extension) { e.config.Timezone = name }
}

// WithPerPage sets the default and maximum audit page sizes.
func WithPerPage(def, maxPerPage int) Option {
	return func(e *Extension) {
		e.config.DefaultPerPage = def
		e.config.MaxPerPage = maxPerPage
	}
}

// WithTransitionRetries bounds status-transition retries.
func WithTransitionRetries(n int) Option {
	return func(e *Extension) { e.config.TransitionRetries = n }
}

// WithAMQP publishes payment and audit events to the broker at url.
func WithAMQP(url, exchange string) Option {
	return func(e *Extension) {
		e.config.AMQPURL = url
		e.config.AMQPExchange = exchange
	}
}
