//go:build !linux

package notify

// Desktop notifications are only wired up for freedesktop systems; the
// other platforms get the logging no-op.
func newBackend() (backend, error) {
	return noopBackend{}, nil
}
