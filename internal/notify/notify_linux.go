//go:build linux

package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	notifyTimeoutMs = 5000
)

// dbusBackend delivers notifications over the session bus.
type dbusBackend struct {
	conn *dbus.Conn
}

func newBackend() (backend, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &dbusBackend{conn: conn}, nil
}

func (b *dbusBackend) notify(summary, body string) error {
	obj := b.conn.Object(notifyService, notifyPath)
	call := obj.Call(notifyMethod, 0,
		"justcall",                // app_name
		uint32(0),                 // replaces_id
		"",                        // app_icon
		summary,                   // summary
		body,                      // body
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		int32(notifyTimeoutMs),    // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("notify call: %w", call.Err)
	}
	return nil
}

func (b *dbusBackend) close() {
	// The session bus connection is shared; do not close it.
}
