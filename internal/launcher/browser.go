// Package launcher hands call sessions to a conference surface: the
// system browser, or an embedded window behind the bridge.
package launcher

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"justcall/internal/call"
	"justcall/internal/logging"
)

// DefaultConferenceHost is used when no host is configured.
const DefaultConferenceHost = "meet.jit.si"

// Browser opens meetings in the system default browser. The browser
// window is not ours: Close cannot reach it, so leaving the room is up
// to the user, and presence events never arrive on this path.
type Browser struct {
	host string
	log  *logging.Logger
}

// NewBrowser returns a launcher for the given conference host.
func NewBrowser(host string) *Browser {
	if host == "" {
		host = DefaultConferenceHost
	}
	return &Browser{
		host: host,
		log:  logging.Default().WithComponent("launcher"),
	}
}

// Open spawns the platform opener on the meeting URL and returns without
// waiting for the browser.
func (b *Browser) Open(spec call.LaunchSpec) error {
	u := url.URL{Scheme: "https", Host: b.host, Path: "/" + spec.RoomID}
	b.log.Info("opening meeting", "url", u.String(), "target", spec.TargetLabel)
	return openURL(u.String())
}

// Close is a no-op: an external browser window cannot be closed from
// here.
func (b *Browser) Close() {}

// openURL hands a URL to the platform opener without waiting for it.
func openURL(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn opener: %w", err)
	}
	// Reap the opener so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
