package hotkey

import (
	"errors"
	"sync"
	"testing"
)

// fakeBackend records registrations and lets tests press combos.
type fakeBackend struct {
	mu       sync.Mutex
	fires    map[string]func()
	failNext error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fires: make(map[string]func())}
}

func (f *fakeBackend) Register(c Combo, fire func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	key := c.Normalized()
	f.fires[key] = fire
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fires, key)
	}, nil
}

func (f *fakeBackend) press(t *testing.T, combo string) {
	t.Helper()
	c, err := ParseCombo(combo)
	if err != nil {
		t.Fatalf("press %q: %v", combo, err)
	}
	f.mu.Lock()
	fire := f.fires[c.Normalized()]
	f.mu.Unlock()
	if fire == nil {
		t.Fatalf("press %q: not registered with backend", combo)
	}
	fire()
}

func (f *fakeBackend) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fires)
}

func TestRegisterAndFire(t *testing.T) {
	backend := newFakeBackend()
	var fired []Action
	r := NewRegistry(backend, func(a Action) { fired = append(fired, a) })

	if err := r.Register("Ctrl+Shift+J", JoinPrimary()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	backend.press(t, "Ctrl+Shift+J")
	if len(fired) != 1 || fired[0].Kind != ActionJoinPrimary {
		t.Errorf("fired = %+v, want one join-primary", fired)
	}
}

func TestRebindLastWins(t *testing.T) {
	backend := newFakeBackend()
	var fired []Action
	r := NewRegistry(backend, func(a Action) { fired = append(fired, a) })

	if err := r.Register("Ctrl+Shift+J", JoinPrimary()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("ctrl+shift+j", Hangup()); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if backend.live() != 1 {
		t.Errorf("backend holds %d registrations after rebind, want 1", backend.live())
	}
	backend.press(t, "Ctrl+Shift+J")
	if len(fired) != 1 || fired[0].Kind != ActionHangup {
		t.Errorf("fired = %+v, want the rebound hangup action", fired)
	}
}

func TestRegisterInvalidCombo(t *testing.T) {
	r := NewRegistry(newFakeBackend(), func(Action) {})
	if err := r.Register("NotAKey", JoinPrimary()); !errors.Is(err, ErrInvalidCombo) {
		t.Errorf("Register error = %v, want ErrInvalidCombo", err)
	}
}

func TestRegisterBackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failNext = errors.New("combo taken by another application")
	r := NewRegistry(backend, func(Action) {})
	if err := r.Register("Ctrl+Shift+J", JoinPrimary()); err == nil {
		t.Fatal("expected backend failure to surface")
	}
	if r.IsRegistered("Ctrl+Shift+J") {
		t.Error("failed registration left the combo registered")
	}
}

func TestUnregister(t *testing.T) {
	backend := newFakeBackend()
	r := NewRegistry(backend, func(Action) {})

	if err := r.Register("Ctrl+Shift+H", Hangup()); err != nil {
		t.Fatal(err)
	}
	if err := r.Unregister("ctrl+shift+h"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if r.IsRegistered("Ctrl+Shift+H") {
		t.Error("combo still registered after Unregister")
	}
	if backend.live() != 0 {
		t.Error("backend registration leaked")
	}

	// Absent combo is a silent no-op, garbage is an error.
	if err := r.Unregister("Ctrl+Shift+H"); err != nil {
		t.Errorf("Unregister of absent combo: %v", err)
	}
	if err := r.Unregister("garbage"); !errors.Is(err, ErrInvalidCombo) {
		t.Errorf("Unregister(garbage) error = %v, want ErrInvalidCombo", err)
	}
}

func TestIsRegistered(t *testing.T) {
	r := NewRegistry(newFakeBackend(), func(Action) {})
	if err := r.Register("Ctrl+Shift+J", JoinPrimary()); err != nil {
		t.Fatal(err)
	}
	if !r.IsRegistered("Shift+Ctrl+j") {
		t.Error("equivalent spelling not recognized as registered")
	}
	if r.IsRegistered("Ctrl+Shift+K") {
		t.Error("unbound combo reported registered")
	}
	if r.IsRegistered("not a combo") {
		t.Error("unparseable combo reported registered")
	}
}

func TestUnregisterAllAndClose(t *testing.T) {
	backend := newFakeBackend()
	r := NewRegistry(backend, func(Action) {})
	for combo, a := range map[string]Action{
		"Ctrl+Shift+J": JoinPrimary(),
		"Ctrl+Shift+H": Hangup(),
		"Ctrl+Shift+1": JoinTarget("t1"),
	} {
		if err := r.Register(combo, a); err != nil {
			t.Fatal(err)
		}
	}
	r.UnregisterAll()
	if backend.live() != 0 {
		t.Errorf("%d backend registrations survive UnregisterAll", backend.live())
	}
	r.Close()
	r.Close()
}

func TestSetupDefaults(t *testing.T) {
	backend := newFakeBackend()
	r := NewRegistry(backend, func(Action) {})
	if err := r.SetupDefaults("Ctrl+Shift+J", "Ctrl+Shift+H"); err != nil {
		t.Fatalf("SetupDefaults: %v", err)
	}
	if !r.IsRegistered("Ctrl+Shift+J") || !r.IsRegistered("Ctrl+Shift+H") {
		t.Error("default bindings missing")
	}
}

func TestSetupDefaultsIndependentFailures(t *testing.T) {
	backend := newFakeBackend()
	r := NewRegistry(backend, func(Action) {})
	err := r.SetupDefaults("broken", "Ctrl+Shift+H")
	if err == nil {
		t.Fatal("expected failure for the broken binding")
	}
	if !r.IsRegistered("Ctrl+Shift+H") {
		t.Error("hangup binding lost to the join-primary failure")
	}
}

func TestSetupDefaultsSkipsEmpty(t *testing.T) {
	backend := newFakeBackend()
	r := NewRegistry(backend, func(Action) {})
	if err := r.SetupDefaults("", ""); err != nil {
		t.Errorf("SetupDefaults with empty combos: %v", err)
	}
	if backend.live() != 0 {
		t.Error("empty combos produced registrations")
	}
}

func TestStalePressAfterUnregisterIsDropped(t *testing.T) {
	backend := newFakeBackend()
	var fired int
	r := NewRegistry(backend, func(Action) { fired++ })
	if err := r.Register("Ctrl+Shift+J", JoinPrimary()); err != nil {
		t.Fatal(err)
	}
	c, _ := ParseCombo("Ctrl+Shift+J")
	backend.mu.Lock()
	stale := backend.fires[c.Normalized()]
	backend.mu.Unlock()

	if err := r.Unregister("Ctrl+Shift+J"); err != nil {
		t.Fatal(err)
	}
	stale()
	if fired != 0 {
		t.Errorf("stale press dispatched %d actions", fired)
	}
}
