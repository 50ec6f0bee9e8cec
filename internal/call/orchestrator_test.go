package call

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justcall/internal/hotkey"
	"justcall/internal/pairing"
	"justcall/internal/settings"
)

func hotkeyAction(s string) hotkey.Action {
	a, err := hotkey.ParseAction(s)
	if err != nil {
		panic(err)
	}
	return a
}

type fakeTargets struct {
	targets map[string]settings.Target
	primary string
}

func (f *fakeTargets) Target(id string) (settings.Target, bool) {
	t, ok := f.targets[id]
	return t, ok
}

func (f *fakeTargets) PrimaryTarget() (settings.Target, bool) {
	return f.Target(f.primary)
}

type fakeLauncher struct {
	mu      sync.Mutex
	opened  []LaunchSpec
	closed  int
	openErr error
}

func (f *fakeLauncher) Open(spec LaunchSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, spec)
	return f.openErr
}

func (f *fakeLauncher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

type recordedCall struct {
	targetID, label, roomID string
	outcome                 string
	ended                   bool
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) CallStarted(targetID, label, roomID string, at time.Time) (int64, error) {
	f.calls = append(f.calls, recordedCall{targetID: targetID, label: label, roomID: roomID})
	return int64(len(f.calls)), nil
}

func (f *fakeRecorder) CallEnded(id int64, at time.Time, outcome string) error {
	f.calls[id-1].ended = true
	f.calls[id-1].outcome = outcome
	return nil
}

func testTargets() *fakeTargets {
	alice := settings.NewTarget("Alice", "aaaa-bbbb-cccc-dddd-eeee", settings.TargetPerson)
	alice.IsPrimary = true
	bob := settings.NewTarget("Bob", "ffff-gggg-hhhh-iiii-jjjj", settings.TargetPerson)
	bob.CallDefaults.StartWithVideo = false
	bob.CallDefaults.DisplayName = "Me"
	return &fakeTargets{
		targets: map[string]settings.Target{alice.ID: alice, bob.ID: bob},
		primary: alice.ID,
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *Machine, *fakeTargets, *fakeLauncher) {
	t.Helper()
	m := NewMachine()
	targets := testTargets()
	launcher := &fakeLauncher{}
	return NewOrchestrator(m, targets, launcher), m, targets, launcher
}

func TestJoinFromIdle(t *testing.T) {
	o, m, targets, launcher := newTestOrchestrator(t)

	require.NoError(t, o.Join(targets.primary))
	assert.Equal(t, Connecting, m.State())

	active, ok := o.ActiveTarget()
	require.True(t, ok)
	assert.Equal(t, targets.primary, active)

	require.Len(t, launcher.opened, 1)
	spec := launcher.opened[0]
	alice := targets.targets[targets.primary]
	assert.Equal(t, pairing.RoomID(alice.Code), spec.RoomID)
	assert.Equal(t, "Alice", spec.TargetLabel)
	assert.True(t, spec.StartWithAudio)
}

func TestJoinUnknownTargetLeavesStateUntouched(t *testing.T) {
	o, m, _, launcher := newTestOrchestrator(t)

	err := o.Join("no-such-target")
	require.ErrorIs(t, err, ErrTargetNotFound)
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, launcher.opened)
	_, ok := o.ActiveTarget()
	assert.False(t, ok)
}

func TestJoinWhileBusyRejected(t *testing.T) {
	o, m, targets, launcher := newTestOrchestrator(t)

	require.NoError(t, o.JoinPrimary())
	err := o.Join(targets.primary)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Connecting, m.State())
	assert.Len(t, launcher.opened, 1, "second join must not launch")
}

func TestJoinPrimaryWithoutPrimary(t *testing.T) {
	m := NewMachine()
	o := NewOrchestrator(m, &fakeTargets{targets: map[string]settings.Target{}}, &fakeLauncher{})
	require.ErrorIs(t, o.JoinPrimary(), ErrNoPrimaryTarget)
	assert.Equal(t, Idle, m.State())
}

func TestLaunchFailureDoesNotRollBack(t *testing.T) {
	m := NewMachine()
	targets := testTargets()
	launcher := &fakeLauncher{openErr: errors.New("no browser")}
	o := NewOrchestrator(m, targets, launcher)

	require.NoError(t, o.JoinPrimary(), "launch failure must not fail the join")
	assert.Equal(t, Connecting, m.State())
	_, ok := o.ActiveTarget()
	assert.True(t, ok, "active target cleared by launch failure")
}

func TestHangupWhileIdleIsNoop(t *testing.T) {
	o, m, _, launcher := newTestOrchestrator(t)

	var notified []State
	m.Subscribe(func(s State) { notified = append(notified, s) })

	require.NoError(t, o.Hangup())
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, notified, "idle hangup must not announce anything")
	assert.Zero(t, launcher.closed)
}

func TestHangupAnnouncesBothSteps(t *testing.T) {
	o, m, _, launcher := newTestOrchestrator(t)
	require.NoError(t, o.JoinPrimary())
	require.NoError(t, m.TransitionTo(InCall))

	var notified []State
	m.Subscribe(func(s State) { notified = append(notified, s) })

	require.NoError(t, o.Hangup())
	assert.Equal(t, []State{Disconnecting, Idle}, notified)
	assert.Equal(t, 1, launcher.closed)
	_, ok := o.ActiveTarget()
	assert.False(t, ok, "hangup must clear the active target")
}

func TestHangupWhileConnectingCancels(t *testing.T) {
	o, m, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.JoinPrimary())
	require.NoError(t, o.Hangup())
	assert.Equal(t, Idle, m.State())

	// A fresh join works immediately after.
	require.NoError(t, o.JoinPrimary())
	assert.Equal(t, Connecting, m.State())
}

func TestOnRemoteJoined(t *testing.T) {
	o, m, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.JoinPrimary())

	o.OnRemoteJoined()
	assert.Equal(t, InCall, m.State())

	// Repeated and out-of-phase events are dropped.
	o.OnRemoteJoined()
	assert.Equal(t, InCall, m.State())
}

func TestOnRemoteJoinedWhileIdleIgnored(t *testing.T) {
	o, m, _, _ := newTestOrchestrator(t)
	o.OnRemoteJoined()
	assert.Equal(t, Idle, m.State())
}

func TestOnRemoteLeftEndsCall(t *testing.T) {
	o, m, _, _ := newTestOrchestrator(t)
	require.NoError(t, o.JoinPrimary())
	o.OnRemoteJoined()

	o.OnRemoteLeft()
	assert.Equal(t, Idle, m.State())
	_, ok := o.ActiveTarget()
	assert.False(t, ok)
}

func TestOnRemoteLeftWhileIdleIgnored(t *testing.T) {
	o, m, _, _ := newTestOrchestrator(t)
	var notified int
	m.Subscribe(func(State) { notified++ })
	o.OnRemoteLeft()
	assert.Equal(t, Idle, m.State())
	assert.Zero(t, notified)
}

func TestHistoryRecording(t *testing.T) {
	m := NewMachine()
	targets := testTargets()
	rec := &fakeRecorder{}
	o := NewOrchestrator(m, targets, &fakeLauncher{}, WithHistory(rec))

	require.NoError(t, o.JoinPrimary())
	o.OnRemoteJoined()
	require.NoError(t, o.Hangup())

	require.Len(t, rec.calls, 1)
	call := rec.calls[0]
	assert.Equal(t, targets.primary, call.targetID)
	assert.True(t, call.ended)
	assert.Equal(t, "completed", call.outcome)
}

func TestHistoryOutcomeCancelled(t *testing.T) {
	m := NewMachine()
	rec := &fakeRecorder{}
	o := NewOrchestrator(m, testTargets(), &fakeLauncher{}, WithHistory(rec))

	require.NoError(t, o.JoinPrimary())
	require.NoError(t, o.Hangup())

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "cancelled", rec.calls[0].outcome)
}

func TestHandleAction(t *testing.T) {
	o, m, targets, _ := newTestOrchestrator(t)

	var bobID string
	for id, tgt := range targets.targets {
		if tgt.Label == "Bob" {
			bobID = id
		}
	}

	o.HandleAction(hotkeyAction("join-target:" + bobID))
	assert.Equal(t, Connecting, m.State())
	active, _ := o.ActiveTarget()
	assert.Equal(t, bobID, active)

	o.HandleAction(hotkeyAction("hangup"))
	assert.Equal(t, Idle, m.State())

	o.HandleAction(hotkeyAction("join-primary"))
	assert.Equal(t, Connecting, m.State())
}

func TestConcurrentJoinsSingleWinner(t *testing.T) {
	o, m, targets, launcher := newTestOrchestrator(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = o.Join(targets.primary)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent join must win")
	assert.Equal(t, Connecting, m.State())
	assert.Len(t, launcher.opened, 1)
}
