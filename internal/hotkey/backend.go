package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"
)

// SystemBackend registers combos with the OS through
// golang.design/x/hotkey. Each registration runs a goroutine pumping
// key-down events into the fire callback until unregistered.
type SystemBackend struct{}

func (SystemBackend) Register(c Combo, fire func()) (func(), error) {
	mods, err := systemModifiers(c.Modifiers)
	if err != nil {
		return nil, err
	}
	key, err := systemKey(c.Key)
	if err != nil {
		return nil, err
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("os shortcut %s: %w", c, err)
	}

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-hk.Keydown():
				fire()
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		hk.Unregister()
	}, nil
}

// systemKey maps the grammar's key names onto the backend's key codes.
func systemKey(name string) (xhotkey.Key, error) {
	if len(name) == 1 {
		b := name[0]
		switch {
		case b >= 'A' && b <= 'Z':
			return letterKeys[b-'A'], nil
		case b >= '0' && b <= '9':
			return digitKeys[b-'0'], nil
		}
	}
	if k, ok := specialKeys[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: no key code for %q", ErrInvalidCombo, name)
}

var letterKeys = [26]xhotkey.Key{
	xhotkey.KeyA, xhotkey.KeyB, xhotkey.KeyC, xhotkey.KeyD, xhotkey.KeyE,
	xhotkey.KeyF, xhotkey.KeyG, xhotkey.KeyH, xhotkey.KeyI, xhotkey.KeyJ,
	xhotkey.KeyK, xhotkey.KeyL, xhotkey.KeyM, xhotkey.KeyN, xhotkey.KeyO,
	xhotkey.KeyP, xhotkey.KeyQ, xhotkey.KeyR, xhotkey.KeyS, xhotkey.KeyT,
	xhotkey.KeyU, xhotkey.KeyV, xhotkey.KeyW, xhotkey.KeyX, xhotkey.KeyY,
	xhotkey.KeyZ,
}

var digitKeys = [10]xhotkey.Key{
	xhotkey.Key0, xhotkey.Key1, xhotkey.Key2, xhotkey.Key3, xhotkey.Key4,
	xhotkey.Key5, xhotkey.Key6, xhotkey.Key7, xhotkey.Key8, xhotkey.Key9,
}

var specialKeys = map[string]xhotkey.Key{
	"Space":  xhotkey.KeySpace,
	"Enter":  xhotkey.KeyReturn,
	"Escape": xhotkey.KeyEscape,
	"Tab":    xhotkey.KeyTab,
	"Delete": xhotkey.KeyDelete,
	"Up":     xhotkey.KeyUp,
	"Down":   xhotkey.KeyDown,
	"Left":   xhotkey.KeyLeft,
	"Right":  xhotkey.KeyRight,
}
