package bingosync

// ConnState represents the current state of the event channel.
type ConnState int

const (
	// StateIdle means no session is active and no retry is pending.
	StateIdle ConnState = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateOpen means the channel is open and ready.
	StateOpen

	// StateRetryWait means the channel closed unexpectedly and a
	// reconnect attempt is scheduled.
	StateRetryWait
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateRetryWait:
		return "retry_wait"
	default:
		return "unknown"
	}
}

// StateEvent represents a connection state change.
type StateEvent struct {
	OldState ConnState
	NewState ConnState
	Error    error // Optional error that caused the state change
}
