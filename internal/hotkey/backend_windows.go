//go:build windows

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

func systemModifiers(mods []Modifier) ([]xhotkey.Modifier, error) {
	out := make([]xhotkey.Modifier, 0, len(mods))
	for _, m := range mods {
		switch m {
		case ModCtrl:
			out = append(out, xhotkey.ModCtrl)
		case ModShift:
			out = append(out, xhotkey.ModShift)
		case ModAlt:
			out = append(out, xhotkey.ModAlt)
		case ModCmd:
			out = append(out, xhotkey.ModWin)
		default:
			return nil, fmt.Errorf("%w: modifier %q", ErrInvalidCombo, m)
		}
	}
	return out, nil
}
