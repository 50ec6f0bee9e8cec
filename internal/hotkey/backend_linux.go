//go:build linux

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

// systemModifiers maps canonical modifiers to X11 modifier masks. Alt is
// Mod1 and Super is Mod4 under the default modifier map.
func systemModifiers(mods []Modifier) ([]xhotkey.Modifier, error) {
	out := make([]xhotkey.Modifier, 0, len(mods))
	for _, m := range mods {
		switch m {
		case ModCtrl:
			out = append(out, xhotkey.ModCtrl)
		case ModShift:
			out = append(out, xhotkey.ModShift)
		case ModAlt:
			out = append(out, xhotkey.Mod1)
		case ModCmd:
			out = append(out, xhotkey.Mod4)
		default:
			return nil, fmt.Errorf("%w: modifier %q", ErrInvalidCombo, m)
		}
	}
	return out, nil
}
