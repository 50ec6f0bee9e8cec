package call

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"justcall/internal/hotkey"
	"justcall/internal/logging"
	"justcall/internal/pairing"
	"justcall/internal/settings"
)

// ErrTargetNotFound is returned when a join names a target the settings
// document does not contain.
var ErrTargetNotFound = errors.New("call target not found")

// ErrNoPrimaryTarget is returned by a primary join when no target is
// configured yet.
var ErrNoPrimaryTarget = errors.New("no primary target configured")

// LaunchSpec tells a launcher what to open and how the call starts.
type LaunchSpec struct {
	RoomID         string
	TargetLabel    string
	DisplayName    string
	StartWithAudio bool
	StartWithVideo bool
}

// Launcher hands a call session to the conference surface. Open is
// fire-and-forget: the session continues regardless of what the surface
// does afterwards. Close asks the surface to leave the room and must be
// safe to call when nothing is open.
type Launcher interface {
	Open(spec LaunchSpec) error
	Close()
}

// TargetSource resolves call targets. *settings.Store satisfies it.
type TargetSource interface {
	Target(id string) (settings.Target, bool)
	PrimaryTarget() (settings.Target, bool)
}

// Recorder persists call sessions. *history.Store satisfies it.
type Recorder interface {
	CallStarted(targetID, targetLabel, roomID string, at time.Time) (int64, error)
	CallEnded(id int64, at time.Time, outcome string) error
}

// Orchestrator drives the call lifecycle. One mutex guards the machine
// and the active target together, so concurrent joins, hangups and
// remote-presence events serialize into a consistent story.
type Orchestrator struct {
	mu       sync.Mutex
	machine  *Machine
	targets  TargetSource
	launcher Launcher
	history  Recorder
	log      *logging.Logger

	activeTarget string
	activeCallID int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistory makes the orchestrator record call sessions.
func WithHistory(r Recorder) Option {
	return func(o *Orchestrator) { o.history = r }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// NewOrchestrator wires a machine, a target source and a launcher.
func NewOrchestrator(m *Machine, targets TargetSource, l Launcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		machine:  m,
		targets:  targets,
		launcher: l,
		log:      logging.Default().WithComponent("call"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current call state.
func (o *Orchestrator) State() State {
	return o.machine.State()
}

// ActiveTarget returns the id of the target being called, if any.
func (o *Orchestrator) ActiveTarget() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTarget, o.activeTarget != ""
}

// Join starts a call to the given target. It only succeeds from Idle.
// An unknown target fails before the state machine is touched. The
// launch itself is fire-and-forget: once the session is Connecting, a
// launcher failure is logged but does not roll the session back.
func (o *Orchestrator) Join(targetID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	target, ok := o.targets.Target(targetID)
	if !ok {
		return fmt.Errorf("join %s: %w", targetID, ErrTargetNotFound)
	}
	return o.startLocked(target)
}

// JoinPrimary starts a call to the primary target.
func (o *Orchestrator) JoinPrimary() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	target, ok := o.targets.PrimaryTarget()
	if !ok {
		return ErrNoPrimaryTarget
	}
	return o.startLocked(target)
}

func (o *Orchestrator) startLocked(target settings.Target) error {
	if err := o.machine.TransitionTo(Connecting); err != nil {
		return fmt.Errorf("join %s: %w", target.Label, err)
	}
	o.activeTarget = target.ID

	roomID := pairing.RoomID(target.Code)
	o.log.Info("joining call", "target", target.Label, "room", roomID)

	if o.history != nil {
		id, err := o.history.CallStarted(target.ID, target.Label, roomID, time.Now().UTC())
		if err != nil {
			o.log.Warn("record call start", "error", err)
		} else {
			o.activeCallID = id
		}
	}

	spec := LaunchSpec{
		RoomID:         roomID,
		TargetLabel:    target.Label,
		DisplayName:    target.CallDefaults.DisplayName,
		StartWithAudio: target.CallDefaults.StartWithAudio,
		StartWithVideo: target.CallDefaults.StartWithVideo,
	}
	if err := o.launcher.Open(spec); err != nil {
		// The session is already Connecting; the user hangs up if the
		// surface never appears.
		o.log.Error("launch conference", "target", target.Label, "error", err)
	}
	return nil
}

// Hangup ends or cancels the current call. From Idle it is a harmless
// no-op. Otherwise the session passes through Disconnecting to Idle,
// announcing both steps, and the active target is cleared.
func (o *Orchestrator) Hangup() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.machine.State()
	if st == Idle {
		return nil
	}

	outcome := "completed"
	if st == Connecting {
		outcome = "cancelled"
	}

	if st != Disconnecting {
		if err := o.machine.TransitionTo(Disconnecting); err != nil {
			return fmt.Errorf("hangup: %w", err)
		}
	}
	o.launcher.Close()
	o.finishLocked(outcome)
	return nil
}

// OnRemoteJoined marks the session established. It only applies while
// Connecting; stale events from a surface that outlived its session are
// dropped.
func (o *Orchestrator) OnRemoteJoined() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.machine.State() != Connecting {
		o.log.Debug("remote joined outside Connecting, ignoring")
		return
	}
	if err := o.machine.TransitionTo(InCall); err != nil {
		o.log.Warn("remote joined", "error", err)
	}
}

// OnRemoteLeft ends the session when the other side leaves. A no-op
// while Idle; otherwise the session unwinds to Idle and the active
// target is cleared.
func (o *Orchestrator) OnRemoteLeft() {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.machine.State()
	if st == Idle {
		return
	}
	if st != Disconnecting {
		if err := o.machine.TransitionTo(Disconnecting); err != nil {
			o.log.Warn("remote left", "error", err)
			return
		}
	}
	o.finishLocked("remote-left")
}

// finishLocked returns the session to Idle and closes out bookkeeping.
func (o *Orchestrator) finishLocked(outcome string) {
	if err := o.machine.TransitionTo(Idle); err != nil {
		o.log.Warn("finish call", "error", err)
	}
	o.activeTarget = ""
	if o.history != nil && o.activeCallID != 0 {
		if err := o.history.CallEnded(o.activeCallID, time.Now().UTC(), outcome); err != nil {
			o.log.Warn("record call end", "error", err)
		}
		o.activeCallID = 0
	}
	o.log.Info("call ended", "outcome", outcome)
}

// HandleAction dispatches a fired shortcut. Shortcut dispatch has no
// caller to report to, so failures are logged.
func (o *Orchestrator) HandleAction(a hotkey.Action) {
	var err error
	switch a.Kind {
	case hotkey.ActionJoinPrimary:
		err = o.JoinPrimary()
	case hotkey.ActionJoinTarget:
		err = o.Join(a.TargetID)
	case hotkey.ActionHangup:
		err = o.Hangup()
	default:
		o.log.Warn("unknown shortcut action", "action", a.String())
		return
	}
	if err != nil {
		o.log.Warn("shortcut action failed", "action", a.String(), "error", err)
	}
}
