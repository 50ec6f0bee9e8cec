package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// ErrTargetNotFound is returned when an operation names a target id that
// is not in the document.
var ErrTargetNotFound = errors.New("target not found")

// Store owns the settings document. All mutating operations take the
// store lock, apply the change in memory, then persist. A failed write
// leaves the in-memory change in place and is reported to the caller;
// Dirty tells whether memory and disk have diverged.
type Store struct {
	mu       sync.Mutex
	path     string
	settings *Settings
	dirty    bool
}

// DefaultPath returns the platform settings file location, honoring the
// JUSTCALL_SETTINGS_PATH override.
func DefaultPath() string {
	if p := os.Getenv("JUSTCALL_SETTINGS_PATH"); p != "" {
		return p
	}
	var base string
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		base = os.Getenv("APPDATA")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "justcall", "settings.json")
}

// Load opens the store at the default path.
func Load() (*Store, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath opens the store backed by the given file. A missing file
// yields defaults; a file that exists but does not parse or validate is
// an error, never a silent reset.
func LoadFromPath(path string) (*Store, error) {
	s := &Store{path: path, settings: Default()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := json.Unmarshal(data, s.settings); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return s, nil
}

// NewWithPath returns a store with default settings that will persist to
// path. Used when a corrupt document must not stop the daemon.
func NewWithPath(path string) *Store {
	return &Store{path: path, settings: Default()}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Dirty reports whether in-memory settings have changes the last save
// failed to persist.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Settings returns a copy of the current document.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() Settings {
	out := *s.settings
	out.Targets = append([]Target(nil), s.settings.Targets...)
	if s.settings.Keybinds.TargetHotkeys != nil {
		hk := make(map[string]string, len(s.settings.Keybinds.TargetHotkeys))
		for k, v := range s.settings.Keybinds.TargetHotkeys {
			hk[k] = v
		}
		out.Keybinds.TargetHotkeys = hk
	}
	return out
}

// Save persists the document atomically: write a sibling temp file, then
// rename over the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.dirty = true
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		s.dirty = true
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		s.dirty = true
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.dirty = true
		return fmt.Errorf("replace settings: %w", err)
	}
	s.dirty = false
	return nil
}

// Target looks up a target by id.
func (s *Store) Target(id string) (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.settings.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// PrimaryTarget returns the target hotkeys and bare join commands
// default to.
func (s *Store) PrimaryTarget() (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.settings.Targets {
		if t.IsPrimary {
			return t, true
		}
	}
	return Target{}, false
}

// Targets returns a copy of the target list.
func (s *Store) Targets() []Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Target(nil), s.settings.Targets...)
}

// AddTarget appends a target and persists. The first target in the
// document is forced primary regardless of the flag it carries.
func (s *Store) AddTarget(t Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.settings.Targets) == 0 {
		t.IsPrimary = true
	}
	s.settings.Targets = append(s.settings.Targets, t)
	return s.saveLocked()
}

// RemoveTarget deletes a target by id. Removing the primary promotes the
// first remaining target so the single-primary invariant holds. Returns
// false without touching disk when the id is unknown.
func (s *Store) RemoveTarget(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, t := range s.settings.Targets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	wasPrimary := s.settings.Targets[idx].IsPrimary
	s.settings.Targets = append(s.settings.Targets[:idx], s.settings.Targets[idx+1:]...)
	if wasPrimary && len(s.settings.Targets) > 0 {
		s.settings.Targets[0].IsPrimary = true
	}
	return true, s.saveLocked()
}

// UpdateTarget replaces the target with the same id and persists. The
// pairing code is the identity of the relationship and is kept from the
// stored target. Returns false without touching disk when the id is
// unknown.
func (s *Store) UpdateTarget(t Target) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.settings.Targets {
		if existing.ID == t.ID {
			t.Code = existing.Code
			t.CreatedAt = existing.CreatedAt
			s.settings.Targets[i] = t
			return true, s.saveLocked()
		}
	}
	return false, nil
}

// SetPrimary marks the given target primary and clears the flag on the
// rest. An unknown id fails before anything is touched, so the
// single-primary invariant survives the error.
func (s *Store) SetPrimary(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, t := range s.settings.Targets {
		if t.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("set primary %s: %w", id, ErrTargetNotFound)
	}
	for i := range s.settings.Targets {
		s.settings.Targets[i].IsPrimary = s.settings.Targets[i].ID == id
	}
	return s.saveLocked()
}

// SetAppSettings replaces application preferences and persists.
func (s *Store) SetAppSettings(a AppSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AppSettings = a
	return s.saveLocked()
}

// SetKeybinds replaces the hotkey bindings and persists.
func (s *Store) SetKeybinds(kb Keybinds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Keybinds = kb
	return s.saveLocked()
}
