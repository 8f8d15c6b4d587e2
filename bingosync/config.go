package bingosync

import "time"

// Config controls how the SDK connects to the game feed.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	// The event channel path and token parameter are appended per event.
	BaseURL string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables; game feeds can stay quiet between calls
	WriteTimeout     time.Duration

	// ReconnectDelay is the fixed wait before each reconnect attempt.
	// There is no exponential backoff and no jitter.
	ReconnectDelay time.Duration

	// MaxReconnectAttempts bounds consecutive reconnect attempts after an
	// unexpected close. Once exhausted the client stays idle until the next
	// explicit Connect.
	MaxReconnectAttempts int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
		ReconnectDelay:       3 * time.Second,
		MaxReconnectAttempts: 5,
	}
}
