package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := LoadFromPath(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	return s
}

func TestLoadMissingFileDefaults(t *testing.T) {
	s := tempStore(t)
	got := s.Settings()
	if got.Version != Version {
		t.Errorf("version = %d, want %d", got.Version, Version)
	}
	if got.AppSettings != DefaultAppSettings() {
		t.Errorf("app settings = %+v, want defaults", got.AppSettings)
	}
	if len(got.Targets) != 0 {
		t.Errorf("expected no targets, got %d", len(got.Targets))
	}
	if got.Keybinds.JoinPrimary == "" || got.Keybinds.Hangup == "" {
		t.Error("default keybinds missing")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	target := NewTarget("Mom", "abcd-efgh-ijkl-mnop-qrst", TargetPerson)
	target.Notes = "landline backup: none"
	if err := s.AddTarget(target); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}

	reloaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	targets := reloaded.Targets()
	if len(targets) != 1 {
		t.Fatalf("expected 1 target after reload, got %d", len(targets))
	}
	got := targets[0]
	if got.ID != target.ID || got.Label != "Mom" || got.Code != target.Code {
		t.Errorf("target did not survive round trip: %+v", got)
	}
	if !got.IsPrimary {
		t.Error("first target not primary after reload")
	}
	if !got.CallDefaults.StartWithAudio || !got.CallDefaults.StartWithVideo {
		t.Errorf("call defaults lost: %+v", got.CallDefaults)
	}
}

func TestSaveIsPrettyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"version\"") {
		t.Errorf("settings file not indented:\n%s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestFirstTargetForcedPrimary(t *testing.T) {
	s := tempStore(t)
	target := NewTarget("Alice", "aaaa-bbbb-cccc-dddd-eeee", TargetPerson)
	target.IsPrimary = false
	if err := s.AddTarget(target); err != nil {
		t.Fatal(err)
	}
	got, ok := s.PrimaryTarget()
	if !ok {
		t.Fatal("no primary after first add")
	}
	if got.ID != target.ID {
		t.Errorf("primary = %s, want %s", got.ID, target.ID)
	}
}

func TestRemovePrimaryPromotesFirstRemaining(t *testing.T) {
	s := tempStore(t)
	a := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	b := NewTarget("B", "bbbb-bbbb-bbbb-bbbb-bbbb", TargetPerson)
	c := NewTarget("C", "cccc-cccc-cccc-cccc-cccc", TargetGroup)
	for _, tgt := range []Target{a, b, c} {
		if err := s.AddTarget(tgt); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.RemoveTarget(a.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveTarget(A) = %v, %v", removed, err)
	}
	primary, ok := s.PrimaryTarget()
	if !ok {
		t.Fatal("no primary after removing primary")
	}
	if primary.ID != b.ID {
		t.Errorf("promoted %s, want %s (first remaining)", primary.Label, "B")
	}
	assertSinglePrimary(t, s)
}

func TestRemoveNonPrimaryKeepsPrimary(t *testing.T) {
	s := tempStore(t)
	a := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	b := NewTarget("B", "bbbb-bbbb-bbbb-bbbb-bbbb", TargetPerson)
	if err := s.AddTarget(a); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTarget(b); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveTarget(b.ID); err != nil {
		t.Fatal(err)
	}
	primary, ok := s.PrimaryTarget()
	if !ok || primary.ID != a.ID {
		t.Errorf("primary changed after removing non-primary")
	}
	assertSinglePrimary(t, s)
}

func TestRemoveUnknownTargetNoop(t *testing.T) {
	s := tempStore(t)
	removed, err := s.RemoveTarget("no-such-id")
	if err != nil {
		t.Fatalf("RemoveTarget: %v", err)
	}
	if removed {
		t.Error("reported removal of unknown id")
	}
	if _, statErr := os.Stat(s.Path()); !os.IsNotExist(statErr) {
		t.Error("no-op removal wrote the settings file")
	}
}

func TestUpdateTargetPreservesCode(t *testing.T) {
	s := tempStore(t)
	tgt := NewTarget("Old", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	if err := s.AddTarget(tgt); err != nil {
		t.Fatal(err)
	}
	edited := tgt
	edited.Label = "New"
	edited.Code = "zzzz-zzzz-zzzz-zzzz-zzzz"
	ok, err := s.UpdateTarget(edited)
	if err != nil || !ok {
		t.Fatalf("UpdateTarget = %v, %v", ok, err)
	}
	got, _ := s.Target(tgt.ID)
	if got.Label != "New" {
		t.Errorf("label not updated: %q", got.Label)
	}
	if got.Code != tgt.Code {
		t.Errorf("pairing code changed on update: %q", got.Code)
	}
}

func TestUpdateUnknownTargetNoop(t *testing.T) {
	s := tempStore(t)
	ok, err := s.UpdateTarget(NewTarget("Ghost", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("update of unknown target reported success")
	}
}

func TestSetPrimaryMovesFlag(t *testing.T) {
	s := tempStore(t)
	a := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	b := NewTarget("B", "bbbb-bbbb-bbbb-bbbb-bbbb", TargetPerson)
	if err := s.AddTarget(a); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTarget(b); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPrimary(b.ID); err != nil {
		t.Fatalf("SetPrimary: %v", err)
	}
	primary, _ := s.PrimaryTarget()
	if primary.ID != b.ID {
		t.Errorf("primary = %s, want B", primary.Label)
	}
	assertSinglePrimary(t, s)

	if err := s.SetPrimary("no-such-id"); err == nil {
		t.Error("SetPrimary accepted unknown id")
	}
}

func TestSetPrimaryUnknownLeavesFlagsAlone(t *testing.T) {
	s := tempStore(t)
	a := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	b := NewTarget("B", "bbbb-bbbb-bbbb-bbbb-bbbb", TargetPerson)
	if err := s.AddTarget(a); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTarget(b); err != nil {
		t.Fatal(err)
	}

	err := s.SetPrimary("no-such-id")
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}

	// The failed call must not have touched any flag.
	primary, ok := s.PrimaryTarget()
	if !ok {
		t.Fatal("no primary left after failed SetPrimary")
	}
	if primary.ID != a.ID {
		t.Errorf("primary = %s, want A", primary.Label)
	}
	assertSinglePrimary(t, s)

	// The collection is still fully usable: removing the non-primary
	// keeps A primary.
	if _, err := s.RemoveTarget(b.ID); err != nil {
		t.Fatal(err)
	}
	primary, ok = s.PrimaryTarget()
	if !ok || primary.ID != a.ID {
		t.Error("primary lost after removal following failed SetPrimary")
	}
}

func TestLoadCorruptDocumentFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for corrupt document")
	}
}

func TestLoadMissingRequiredFieldFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{"version": 1, "app_settings": {}, "targets": []}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("expected schema error for document without keybinds")
	}
	if !strings.Contains(err.Error(), "keybinds") {
		t.Errorf("error does not name the missing field: %v", err)
	}
}

func TestLoadOldDocumentAppliesFieldDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{
  "version": 1,
  "app_settings": {"autostart": true},
  "keybinds": {"join_primary": "Ctrl+Shift+J", "hangup": "Ctrl+Shift+H"},
  "targets": [
    {"id": "t1", "label": "Pat", "code": "aaaa-bbbb-cccc-dddd-eeee",
     "type": "person", "is_primary": true, "call_defaults": {}}
  ]
}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	got := s.Settings()
	if !got.AppSettings.Autostart {
		t.Error("explicit autostart lost")
	}
	if !got.AppSettings.ShowNotifications || got.AppSettings.Theme != ThemeSystem {
		t.Errorf("absent app_settings fields did not default: %+v", got.AppSettings)
	}
	tgt, ok := s.Target("t1")
	if !ok {
		t.Fatal("target t1 missing")
	}
	if !tgt.CallDefaults.StartWithAudio || !tgt.CallDefaults.StartWithVideo {
		t.Errorf("empty call_defaults did not default to on: %+v", tgt.CallDefaults)
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{
  "version": 1,
  "app_settings": {},
  "keybinds": {"join_primary": "Ctrl+Shift+J", "hangup": "Ctrl+Shift+H"},
  "targets": [],
  "experimental_flag": {"nested": true}
}`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err != nil {
		t.Errorf("unknown top-level field rejected: %v", err)
	}
}

func TestDirtyAfterFailedSave(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadFromPath(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	// Make the settings path a directory so rename fails.
	s.path = filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(s.path, "sub"), 0700); err != nil {
		t.Fatal(err)
	}
	tgt := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	if err := s.AddTarget(tgt); err == nil {
		t.Fatal("expected save failure")
	}
	if !s.Dirty() {
		t.Error("store not marked dirty after failed save")
	}
	// The in-memory mutation stands.
	if _, ok := s.Target(tgt.ID); !ok {
		t.Error("failed save rolled back the in-memory change")
	}
}

func TestDefaultKeybindsShape(t *testing.T) {
	kb := DefaultKeybinds()
	if !strings.HasSuffix(kb.JoinPrimary, "+Shift+J") {
		t.Errorf("join_primary = %q", kb.JoinPrimary)
	}
	if !strings.HasSuffix(kb.Hangup, "+Shift+H") {
		t.Errorf("hangup = %q", kb.Hangup)
	}
}

func TestNewTargetIDsUnique(t *testing.T) {
	a := NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)
	b := NewTarget("B", "bbbb-bbbb-bbbb-bbbb-bbbb", TargetPerson)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("target ids not unique: %q, %q", a.ID, b.ID)
	}
}

func TestSettingsCopyIsolated(t *testing.T) {
	s := tempStore(t)
	if err := s.AddTarget(NewTarget("A", "aaaa-aaaa-aaaa-aaaa-aaaa", TargetPerson)); err != nil {
		t.Fatal(err)
	}
	snap := s.Settings()
	snap.Targets[0].Label = "mutated"
	if got := s.Targets()[0].Label; got != "A" {
		t.Errorf("snapshot mutation leaked into store: %q", got)
	}
}

func assertSinglePrimary(t *testing.T, s *Store) {
	t.Helper()
	count := 0
	for _, tgt := range s.Targets() {
		if tgt.IsPrimary {
			count++
		}
	}
	if count != 1 {
		t.Errorf("primary count = %d, want 1", count)
	}
}

func TestDocumentFieldNames(t *testing.T) {
	data, err := json.Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"version", "app_settings", "keybinds", "targets", "join_primary", "hangup"} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("document missing field %q:\n%s", field, data)
		}
	}
}
