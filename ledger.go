package paytrail

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/id"
	"github.com/xraph/paytrail/plugin"
	"github.com/xraph/paytrail/store"
)

// Default configuration values.
const (
	DefaultHomeCurrency      = "usd"
	DefaultTransitionRetries = 5
)

// TxnGenerator mints transaction identifiers. *id.TxnGenerator is the
// production implementation.
type TxnGenerator interface {
	Next() (string, error)
}

// Ledger is the payment ledger and audit trail engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	txn   TxnGenerator
	clock func() time.Time
	loc   *time.Location

	// Configuration
	homeCurrency      string
	defaultPerPage    int
	maxPerPage        int
	transitionRetries int
	autoMigrate       bool
}

var (
	_ audit.Recorder    = (*Ledger)(nil)
	_ audit.QueryEngine = (*Ledger)(nil)
)

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:             s,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		clock:             time.Now,
		loc:               time.UTC,
		homeCurrency:      DefaultHomeCurrency,
		defaultPerPage:    audit.DefaultPerPage,
		maxPerPage:        audit.MaxPerPage,
		transitionRetries: DefaultTransitionRetries,
		autoMigrate:       true,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.txn == nil {
		// Transaction id timestamps follow the engine clock.
		l.txn = id.NewTxnGenerator(id.WithTxnClock(func() time.Time { return l.clock() }))
	}

	return l
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// RegisterPlugin adds a plugin after construction. Plugins that need the
// engine itself, such as the audit hook, are registered this way.
func (l *Ledger) RegisterPlugin(p plugin.Plugin) error {
	return l.plugins.Register(p)
}

// UnregisterPlugin removes a plugin by name.
func (l *Ledger) UnregisterPlugin(name string) bool {
	return l.plugins.Unregister(name)
}

// Start migrates the store (unless disabled) and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if l.autoMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("paytrail started",
		"home_currency", l.homeCurrency,
		"max_per_page", l.maxPerPage,
		"transition_retries", l.transitionRetries,
		"location", l.loc.String(),
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// Ping checks the store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// now returns the current instant in UTC truncated to microseconds, the
// resolution PostgreSQL timestamps keep.
func (l *Ledger) now() time.Time {
	return l.clock().UTC().Truncate(time.Microsecond)
}
