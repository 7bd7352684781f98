package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/paytrail/audit"
	"github.com/xraph/paytrail/payment"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onPaymentCreated      []OnPaymentCreated
	onPaymentTransitioned []OnPaymentTransitioned
	onPaymentRefunded     []OnPaymentRefunded
	onPaymentNotesUpdated []OnPaymentNotesUpdated
	onAuditRecorded       []OnAuditRecorded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPaymentCreated); ok {
		r.onPaymentCreated = append(r.onPaymentCreated, v)
	}
	if v, ok := p.(OnPaymentTransitioned); ok {
		r.onPaymentTransitioned = append(r.onPaymentTransitioned, v)
	}
	if v, ok := p.(OnPaymentRefunded); ok {
		r.onPaymentRefunded = append(r.onPaymentRefunded, v)
	}
	if v, ok := p.(OnPaymentNotesUpdated); ok {
		r.onPaymentNotesUpdated = append(r.onPaymentNotesUpdated, v)
	}
	if v, ok := p.(OnAuditRecorded); ok {
		r.onAuditRecorded = append(r.onAuditRecorded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// Unregister removes the plugin registered under name. It reports whether
// one was found. Dispatches already in flight still reach it.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.plugins)
	r.plugins = without(r.plugins, name)
	if len(r.plugins) == n {
		return false
	}

	r.onInit = without(r.onInit, name)
	r.onShutdown = without(r.onShutdown, name)
	r.onPaymentCreated = without(r.onPaymentCreated, name)
	r.onPaymentTransitioned = without(r.onPaymentTransitioned, name)
	r.onPaymentRefunded = without(r.onPaymentRefunded, name)
	r.onPaymentNotesUpdated = without(r.onPaymentNotesUpdated, name)
	r.onAuditRecorded = without(r.onAuditRecorded, name)

	r.logger.Info("plugin unregistered", "name", name)
	return true
}

// without returns a fresh slice so emitters holding the old one are unaffected.
func without[T Plugin](list []T, name string) []T {
	out := make([]T, 0, len(list))
	for _, p := range list {
		if p.Name() != name {
			out = append(out, p)
		}
	}
	return out
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnPaymentCreated](), "OnPaymentCreated"},
	{reflect.TypeFor[OnPaymentTransitioned](), "OnPaymentTransitioned"},
	{reflect.TypeFor[OnPaymentRefunded](), "OnPaymentRefunded"},
	{reflect.TypeFor[OnPaymentNotesUpdated](), "OnPaymentNotesUpdated"},
	{reflect.TypeFor[OnAuditRecorded](), "OnAuditRecorded"},
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(ctx, r, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitPaymentCreated emits a payment created event. Each plugin receives
// its own copy of the payment.
func (r *Registry) EmitPaymentCreated(ctx context.Context, req audit.RequestInfo, pay *payment.Payment) {
	r.mu.RLock()
	plugins := r.onPaymentCreated
	r.mu.RUnlock()

	dispatch(ctx, r, "OnPaymentCreated", plugins, func(p OnPaymentCreated) error {
		return p.OnPaymentCreated(ctx, req, pay.Clone())
	})
}

// EmitPaymentTransitioned emits a payment status change.
func (r *Registry) EmitPaymentTransitioned(ctx context.Context, req audit.RequestInfo, pay *payment.Payment, from payment.Status) {
	r.mu.RLock()
	plugins := r.onPaymentTransitioned
	r.mu.RUnlock()

	dispatch(ctx, r, "OnPaymentTransitioned", plugins, func(p OnPaymentTransitioned) error {
		return p.OnPaymentTransitioned(ctx, req, pay.Clone(), from)
	})
}

// EmitPaymentRefunded emits a refund.
func (r *Registry) EmitPaymentRefunded(ctx context.Context, req audit.RequestInfo, pay *payment.Payment) {
	r.mu.RLock()
	plugins := r.onPaymentRefunded
	r.mu.RUnlock()

	dispatch(ctx, r, "OnPaymentRefunded", plugins, func(p OnPaymentRefunded) error {
		return p.OnPaymentRefunded(ctx, req, pay.Clone())
	})
}

// EmitPaymentNotesUpdated emits a notes change.
func (r *Registry) EmitPaymentNotesUpdated(ctx context.Context, req audit.RequestInfo, pay *payment.Payment) {
	r.mu.RLock()
	plugins := r.onPaymentNotesUpdated
	r.mu.RUnlock()

	dispatch(ctx, r, "OnPaymentNotesUpdated", plugins, func(p OnPaymentNotesUpdated) error {
		return p.OnPaymentNotesUpdated(ctx, req, pay.Clone())
	})
}

// EmitAuditRecorded emits a newly written audit entry.
func (r *Registry) EmitAuditRecorded(ctx context.Context, e *audit.Entry) {
	r.mu.RLock()
	plugins := r.onAuditRecorded
	r.mu.RUnlock()

	dispatch(ctx, r, "OnAuditRecorded", plugins, func(p OnAuditRecorded) error {
		return p.OnAuditRecorded(ctx, e.Clone())
	})
}

// dispatch runs call for every plugin, logging failures. Hook errors never
// propagate to the operation that emitted the event.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, call func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
