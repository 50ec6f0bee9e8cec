// Package call implements the call session lifecycle: the state
// machine that guards it and the orchestrator that drives it from
// shortcuts, IPC commands and remote-presence events.
package call

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by every rejected state change.
var ErrInvalidTransition = errors.New("invalid call state transition")

// State is a phase of the call session lifecycle.
type State uint8

const (
	// Idle means no call activity.
	Idle State = iota
	// Connecting means a call was launched and the remote side has not
	// joined yet.
	Connecting
	// InCall means both sides are in the room.
	InCall
	// Disconnecting means teardown is in progress.
	Disconnecting
)

// String returns the user-facing description of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "ready"
	case Connecting:
		return "connecting"
	case InCall:
		return "in call"
	case Disconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Tag returns the wire identifier of the state.
func (s State) Tag() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case InCall:
		return "in-call"
	case Disconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Busy reports whether any call activity is in progress.
func (s State) Busy() bool {
	return s != Idle
}

// CanTransitionTo reports whether the move from s to next is legal.
// There are no self-transitions; every state change is a real change.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case Idle:
		return next == Connecting
	case Connecting:
		return next == InCall || next == Disconnecting
	case InCall:
		return next == Disconnecting
	case Disconnecting:
		return next == Idle
	default:
		return false
	}
}
