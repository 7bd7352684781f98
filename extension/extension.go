// Package extension provides the Forge extension adapter for paytrail.
//
// It implements the forge.Extension interface to integrate the payment
// ledger and audit trail into a Forge application with DI registration
// and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.paytrail" or "paytrail" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/paytrail"
	audithook "github.com/xraph/paytrail/audit_hook"
	"github.com/xraph/paytrail/notify"
	"github.com/xraph/paytrail/store"
	"github.com/xraph/paytrail/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "paytrail"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Payment ledger and audit trail"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts paytrail as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *paytrail.Ledger
	store      store.Store
	ledgerOpts []paytrail.Option

	// dial opens the event sink; replaced in tests.
	dial func(url string, opts ...notify.Option) (*notify.Sink, error)
}

// New creates a new paytrail Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
		dial:          notify.Dial,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *paytrail.Ledger { return e.engine }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*paytrail.Ledger, error) {
		return e.engine, nil
	})
}

// build constructs the engine from the resolved config.
func (e *Extension) build() error {
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	eng := paytrail.New(e.store, opts...)

	if !e.config.DisableAuditHook {
		if err := eng.RegisterPlugin(audithook.New(eng)); err != nil {
			return fmt.Errorf("paytrail: register audit hook: %w", err)
		}
	}

	e.engine = eng
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("paytrail: extension not initialized")
	}

	var sink *notify.Sink
	if e.config.AMQPURL != "" {
		var err error
		sink, err = e.dial(e.config.AMQPURL, notify.WithExchange(e.config.AMQPExchange))
		if err != nil {
			return err
		}
		if err := e.engine.RegisterPlugin(sink); err != nil {
			_ = sink.OnShutdown(ctx) //nolint:errcheck // best-effort close after a failed registration
			return fmt.Errorf("paytrail: register event sink: %w", err)
		}
	}

	if err := e.engine.Start(ctx); err != nil {
		if sink != nil {
			e.engine.UnregisterPlugin(sink.Name())
			_ = sink.OnShutdown(ctx) //nolint:errcheck // the start error is the one worth returning
		}
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("paytrail: store not initialized")
	}
	return e.engine.Ping(ctx)
}

// buildLedgerOpts constructs paytrail.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]paytrail.Option, error) {
	loc, err := e.config.Location()
	if err != nil {
		return nil, err
	}

	opts := make([]paytrail.Option, 0, len(e.ledgerOpts)+6)
	opts = append(opts,
		paytrail.WithAutoMigrate(!e.config.DisableMigrate),
		paytrail.WithHomeCurrency(e.config.HomeCurrency),
		paytrail.WithLocation(loc),
		paytrail.WithDefaultPerPage(e.config.DefaultPerPage),
		paytrail.WithMaxPerPage(e.config.MaxPerPage),
		paytrail.WithTransitionRetries(e.config.TransitionRetries),
	)

	// Pass-through options win over config.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("paytrail: configuration is required but not found in config files; " +
				"ensure 'extensions.paytrail' or 'paytrail' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("paytrail: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_audit_hook", e.config.DisableAuditHook),
		forge.F("home_currency", e.config.HomeCurrency),
		forge.F("timezone", e.config.Timezone),
		forge.F("default_per_page", e.config.DefaultPerPage),
		forge.F("max_per_page", e.config.MaxPerPage),
		forge.F("transition_retries", e.config.TransitionRetries),
		forge.F("amqp", e.config.AMQPURL != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.paytrail", "paytrail"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("paytrail: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("paytrail: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.HomeCurrency == "" {
		cfg.HomeCurrency = defaults.HomeCurrency
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaults.Timezone
	}
	if cfg.DefaultPerPage == 0 {
		cfg.DefaultPerPage = defaults.DefaultPerPage
	}
	if cfg.MaxPerPage == 0 {
		cfg.MaxPerPage = defaults.MaxPerPage
	}
	if cfg.TransitionRetries == 0 {
		cfg.TransitionRetries = defaults.TransitionRetries
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = notify.DefaultExchange
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableAuditHook {
		yamlConfig.DisableAuditHook = true
	}

	if yamlConfig.HomeCurrency == "" {
		yamlConfig.HomeCurrency = programmaticConfig.HomeCurrency
	}
	if yamlConfig.Timezone == "" {
		yamlConfig.Timezone = programmaticConfig.Timezone
	}
	if yamlConfig.AMQPURL == "" {
		yamlConfig.AMQPURL = programmaticConfig.AMQPURL
	}
	if yamlConfig.AMQPExchange == "" {
		yamlConfig.AMQPExchange = programmaticConfig.AMQPExchange
	}

	if yamlConfig.DefaultPerPage == 0 {
		yamlConfig.DefaultPerPage = programmaticConfig.DefaultPerPage
	}
	if yamlConfig.MaxPerPage == 0 {
		yamlConfig.MaxPerPage = programmaticConfig.MaxPerPage
	}
	if yamlConfig.TransitionRetries == 0 {
		yamlConfig.TransitionRetries = programmaticConfig.TransitionRetries
	}

	return mergeWithDefaults(yamlConfig)
}
