// Package settings holds the user-facing settings document: application
// preferences, hotkey bindings and the list of call targets. The
// document lives as pretty-printed JSON in the user's config directory
// and is shared with whatever front end edits it.
package settings

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Version is the current settings document version.
const Version = 1

// Settings is the root of the on-disk document.
type Settings struct {
	Version     int         `json:"version"`
	AppSettings AppSettings `json:"app_settings"`
	Keybinds    Keybinds    `json:"keybinds"`
	Targets     []Target    `json:"targets"`
}

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// AppSettings are global application preferences.
type AppSettings struct {
	// Autostart launches the daemon at login.
	Autostart bool `json:"autostart"`
	// AlwaysOnTop keeps the conference window above other windows.
	AlwaysOnTop bool `json:"always_on_top"`
	// PlayJoinSound plays a chime when the remote side joins.
	PlayJoinSound bool `json:"play_join_sound"`
	// ShowNotifications raises desktop notifications on call events.
	ShowNotifications bool  `json:"show_notifications"`
	Theme             Theme `json:"theme"`
}

// UnmarshalJSON applies field defaults before decoding, so documents
// written by older versions pick up defaults for fields they lack.
func (a *AppSettings) UnmarshalJSON(data []byte) error {
	type plain AppSettings
	p := plain(DefaultAppSettings())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AppSettings(p)
	return nil
}

// DefaultAppSettings returns the preferences a fresh install starts with.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Autostart:         false,
		AlwaysOnTop:       true,
		PlayJoinSound:     true,
		ShowNotifications: true,
		Theme:             ThemeSystem,
	}
}

// Keybinds maps global shortcuts to call actions. Combos are stored as
// strings ("Ctrl+Shift+J") and validated when registered, not at load,
// so an unparseable combo disables that binding without rejecting the
// whole document.
type Keybinds struct {
	JoinPrimary string `json:"join_primary"`
	Hangup      string `json:"hangup"`
	// TargetHotkeys maps target ids to per-target join shortcuts.
	TargetHotkeys map[string]string `json:"target_hotkeys,omitempty"`
	ToggleMute    string            `json:"toggle_mute,omitempty"`
	ToggleVideo   string            `json:"toggle_video,omitempty"`
}

// DefaultKeybinds returns the platform defaults: the primary modifier is
// Cmd on macOS and Ctrl everywhere else.
func DefaultKeybinds() Keybinds {
	mod := "Ctrl"
	if runtime.GOOS == "darwin" {
		mod = "Cmd"
	}
	return Keybinds{
		JoinPrimary: mod + "+Shift+J",
		Hangup:      mod + "+Shift+H",
	}
}

// TargetType distinguishes 1:1 partners from group rooms.
type TargetType string

const (
	TargetPerson TargetType = "person"
	TargetGroup  TargetType = "group"
)

// Target is a callable partner or group. The pairing code is the
// identity of the relationship and never changes after creation; edit
// anything else, or remove and re-pair.
type Target struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Code         string       `json:"code"`
	Type         TargetType   `json:"type"`
	IsPrimary    bool         `json:"is_primary"`
	CallDefaults CallDefaults `json:"call_defaults"`
	CreatedAt    time.Time    `json:"created_at"`
	Notes        string       `json:"notes,omitempty"`
}

// CallDefaults choose how calls to a target start.
type CallDefaults struct {
	StartWithAudio bool   `json:"start_with_audio"`
	StartWithVideo bool   `json:"start_with_video"`
	DisplayName    string `json:"display_name,omitempty"`
}

// UnmarshalJSON defaults both media flags to on when absent.
func (c *CallDefaults) UnmarshalJSON(data []byte) error {
	type plain CallDefaults
	p := plain{StartWithAudio: true, StartWithVideo: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CallDefaults(p)
	return nil
}

// DefaultCallDefaults starts calls with audio and video enabled.
func DefaultCallDefaults() CallDefaults {
	return CallDefaults{StartWithAudio: true, StartWithVideo: true}
}

// NewTarget builds a target with a fresh id and default call settings.
func NewTarget(label, code string, typ TargetType) Target {
	return Target{
		ID:           uuid.NewString(),
		Label:        label,
		Code:         code,
		Type:         typ,
		CallDefaults: DefaultCallDefaults(),
		CreatedAt:    time.Now().UTC(),
	}
}

// Default returns the document a fresh install starts with.
func Default() *Settings {
	return &Settings{
		Version:     Version,
		AppSettings: DefaultAppSettings(),
		Keybinds:    DefaultKeybinds(),
		Targets:     []Target{},
	}
}
