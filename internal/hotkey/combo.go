// Package hotkey parses key combinations and manages global shortcut
// registrations through a pluggable OS backend.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCombo is wrapped by every combo parse failure.
var ErrInvalidCombo = errors.New("invalid hotkey combo")

// Modifier is a canonical modifier key. Cmd stands for the platform
// primary command key (Cmd on macOS, Win/Super elsewhere).
type Modifier string

const (
	ModCtrl  Modifier = "Ctrl"
	ModShift Modifier = "Shift"
	ModAlt   Modifier = "Alt"
	ModCmd   Modifier = "Cmd"
)

// modifierAliases maps accepted spellings to canonical modifiers.
var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"opt":     ModAlt,
	"option":  ModAlt,
	"cmd":     ModCmd,
	"command": ModCmd,
	"super":   ModCmd,
	"meta":    ModCmd,
	"win":     ModCmd,
}

// namedKeys are the non-character keys the grammar accepts, keyed by
// lowercase name.
var namedKeys = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"escape": "Escape",
	"tab":    "Tab",
	"delete": "Delete",
	"up":     "Up",
	"down":   "Down",
	"left":   "Left",
	"right":  "Right",
}

// Combo is a parsed key combination: one or more modifiers plus a final
// key. The zero value is not a valid combo.
type Combo struct {
	Modifiers []Modifier
	Key       string
}

// ParseCombo parses "Modifier(+Modifier)*+Key". Matching is
// case-insensitive; the parsed form carries canonical casing. At least
// one modifier is required, duplicates are rejected.
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	if len(parts) < 2 {
		return Combo{}, fmt.Errorf("%w: %q needs at least one modifier and a key", ErrInvalidCombo, s)
	}

	var c Combo
	seen := map[Modifier]bool{}
	for _, part := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(part))
		mod, ok := modifierAliases[name]
		if !ok {
			return Combo{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidCombo, part, s)
		}
		if seen[mod] {
			return Combo{}, fmt.Errorf("%w: duplicate modifier %q in %q", ErrInvalidCombo, mod, s)
		}
		seen[mod] = true
		c.Modifiers = append(c.Modifiers, mod)
	}

	key := strings.TrimSpace(parts[len(parts)-1])
	switch {
	case key == "":
		return Combo{}, fmt.Errorf("%w: %q is missing a key", ErrInvalidCombo, s)
	case len(key) == 1 && isLetterOrDigit(key[0]):
		c.Key = strings.ToUpper(key)
	default:
		named, ok := namedKeys[strings.ToLower(key)]
		if !ok {
			return Combo{}, fmt.Errorf("%w: unsupported key %q in %q", ErrInvalidCombo, key, s)
		}
		c.Key = named
	}
	return c, nil
}

func isLetterOrDigit(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// String renders the combo in canonical modifier order.
func (c Combo) String() string {
	order := []Modifier{ModCtrl, ModCmd, ModAlt, ModShift}
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, want := range order {
		for _, m := range c.Modifiers {
			if m == want {
				parts = append(parts, string(m))
			}
		}
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Normalized is the case-folded canonical form used as a registry key,
// so "ctrl+shift+j" and "Shift+Ctrl+J" identify the same binding.
func (c Combo) Normalized() string {
	return strings.ToLower(c.String())
}
