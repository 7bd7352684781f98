package extension

import (
	"fmt"
	"time"

	"github.com/xraph/paytrail"
	"github.com/xraph/paytrail/audit"
)

// Config holds the paytrail extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.paytrail" or "paytrail" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableAuditHook stops payment mutations from being written to the
	// audit trail.
	DisableAuditHook bool `json:"disable_audit_hook" mapstructure:"disable_audit_hook" yaml:"disable_audit_hook"`

	// HomeCurrency is used when a payment omits a currency (default: "usd").
	HomeCurrency string `json:"home_currency" mapstructure:"home_currency" yaml:"home_currency"`

	// Timezone is the IANA zone audit date filters are resolved in
	// (default: "UTC").
	Timezone string `json:"timezone" mapstructure:"timezone" yaml:"timezone"`

	// DefaultPerPage is the audit page size when a query omits one (default: 15).
	DefaultPerPage int `json:"default_per_page" mapstructure:"default_per_page" yaml:"default_per_page"`

	// MaxPerPage caps the audit page size (default: 100).
	MaxPerPage int `json:"max_per_page" mapstructure:"max_per_page" yaml:"max_per_page"`

	// TransitionRetries bounds how often a transition that lost a concurrent
	// race is re-evaluated (default: 5).
	TransitionRetries int `json:"transition_retries" mapstructure:"transition_retries" yaml:"transition_retries"`

	// AMQPURL enables the RabbitMQ event sink when set.
	AMQPURL string `json:"amqp_url" mapstructure:"amqp_url" yaml:"amqp_url"`

	// AMQPExchange is the topic exchange events are published to
	// (default: "paytrail.events").
	AMQPExchange string `json:"amqp_exchange" mapstructure:"amqp_exchange" yaml:"amqp_exchange"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HomeCurrency:      paytrail.DefaultHomeCurrency,
		Timezone:          "UTC",
		DefaultPerPage:    audit.DefaultPerPage,
		MaxPerPage:        audit.MaxPerPage,
		TransitionRetries: paytrail.DefaultTransitionRetries,
	}
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("paytrail: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
