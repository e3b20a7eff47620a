//go:build !linux

package notify

// New returns a no-op notifier on platforms without a session bus.
func New() (Notifier, error) {
	return &stubNotifier{}, nil
}
