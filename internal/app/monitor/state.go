// Package monitor provides the play-session decision engine. It consumes
// now-playing snapshots and decides when a track has started, when it has
// played long enough to count as a listen, and when the session ends.
package monitor

// State represents the engine's session state.
type State int

const (
	StateEmpty             State = iota // No active session
	StateActiveUnscrobbled              // Session active, listen not yet counted
	StateActiveScrobbled                // Session active, listen already counted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateActiveUnscrobbled:
		return "active_unscrobbled"
	case StateActiveScrobbled:
		return "active_scrobbled"
	default:
		return "unknown"
	}
}
