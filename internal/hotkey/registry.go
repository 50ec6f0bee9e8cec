package hotkey

import (
	"errors"
	"fmt"
	"sync"

	"justcall/internal/logging"
)

// Backend abstracts the OS global-shortcut facility. Register installs
// the combo and arranges for fire to run on every press; the returned
// function tears the registration down.
type Backend interface {
	Register(c Combo, fire func()) (unregister func(), err error)
}

type binding struct {
	combo      Combo
	action     Action
	unregister func()
}

// Registry tracks live shortcut registrations. A combo maps to exactly
// one action; registering an already-bound combo unregisters the old
// binding first, so the last registration wins.
type Registry struct {
	mu       sync.Mutex
	backend  Backend
	onAction func(Action)
	bindings map[string]*binding
	log      *logging.Logger
}

// NewRegistry wires a backend to an action sink. The sink runs on the
// backend's dispatch goroutine and must not block.
func NewRegistry(b Backend, onAction func(Action)) *Registry {
	return &Registry{
		backend:  b,
		onAction: onAction,
		bindings: make(map[string]*binding),
		log:      logging.Default().WithComponent("hotkey"),
	}
}

// Register binds a combo to an action. Parse failures and backend
// refusals (typically the combo being taken by another application) are
// returned; a previously held binding for the same combo is released
// either way before the new one is attempted.
func (r *Registry) Register(combo string, a Action) error {
	c, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	key := c.Normalized()

	r.mu.Lock()
	old := r.bindings[key]
	delete(r.bindings, key)
	r.mu.Unlock()
	if old != nil {
		old.unregister()
		r.log.Debug("rebinding combo", "combo", c.String(), "was", old.action.String())
	}

	unregister, err := r.backend.Register(c, func() { r.fire(key) })
	if err != nil {
		return fmt.Errorf("register %s: %w", c, err)
	}

	r.mu.Lock()
	r.bindings[key] = &binding{combo: c, action: a, unregister: unregister}
	r.mu.Unlock()
	r.log.Info("registered shortcut", "combo", c.String(), "action", a.String())
	return nil
}

// fire resolves the current action for a combo at press time, so a
// rebind between registration and press dispatches the new action.
func (r *Registry) fire(key string) {
	r.mu.Lock()
	b := r.bindings[key]
	r.mu.Unlock()
	if b == nil {
		return
	}
	r.onAction(b.action)
}

// Unregister releases a combo. An unparseable combo is an error; a
// combo that is not registered is a silent no-op.
func (r *Registry) Unregister(combo string) error {
	c, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	key := c.Normalized()

	r.mu.Lock()
	b := r.bindings[key]
	delete(r.bindings, key)
	r.mu.Unlock()
	if b != nil {
		b.unregister()
		r.log.Info("unregistered shortcut", "combo", c.String())
	}
	return nil
}

// IsRegistered reports whether a combo currently has a binding. Strings
// that do not parse are trivially not registered.
func (r *Registry) IsRegistered(combo string) bool {
	c, err := ParseCombo(combo)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindings[c.Normalized()] != nil
}

// Bindings returns the live combo -> action table, for status reporting.
func (r *Registry) Bindings() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.bindings))
	for _, b := range r.bindings {
		out[b.combo.String()] = b.action.String()
	}
	return out
}

// UnregisterAll releases every binding, logging and continuing past
// nothing: backend teardown funcs do not fail.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	bindings := r.bindings
	r.bindings = make(map[string]*binding)
	r.mu.Unlock()
	for _, b := range bindings {
		b.unregister()
		r.log.Debug("released shortcut", "combo", b.combo.String())
	}
}

// Close releases every live binding. Safe to call more than once.
func (r *Registry) Close() {
	r.UnregisterAll()
}

// SetupDefaults binds the join-primary and hangup shortcuts. Each
// binding is attempted independently and empty combos are skipped, so a
// conflict on one does not cost the other. All failures are reported.
func (r *Registry) SetupDefaults(joinPrimary, hangup string) error {
	var errs []error
	if joinPrimary != "" {
		if err := r.Register(joinPrimary, JoinPrimary()); err != nil {
			errs = append(errs, fmt.Errorf("join-primary: %w", err))
		}
	}
	if hangup != "" {
		if err := r.Register(hangup, Hangup()); err != nil {
			errs = append(errs, fmt.Errorf("hangup: %w", err))
		}
	}
	return errors.Join(errs...)
}
