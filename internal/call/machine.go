package call

import (
	"fmt"
	"sync"
)

// Machine owns the call state. All mutation goes through TransitionTo,
// so an illegal move can never be stored, and every stored move has
// been announced to observers.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []func(State)
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe adds an observer for state changes. Observers run
// synchronously inside the transition and must not block or call back
// into the machine.
func (m *Machine) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// TransitionTo moves the machine to next, or rejects the move with
// ErrInvalidTransition. Observers are notified before TransitionTo
// returns, so no caller sees a new state whose announcement is still
// pending.
func (m *Machine) TransitionTo(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
	}
	m.state = next
	for _, fn := range m.observers {
		fn(next)
	}
	return nil
}
