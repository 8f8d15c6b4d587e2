package bingosync

// NumberCalledEvent emitted when the caller draws a number.
type NumberCalledEvent struct {
	Number   int    `json:"number"`
	CalledAt string `json:"calledAt,omitempty"` // RFC 3339
}

// WinnerInfo identifies the winning player and card.
type WinnerInfo struct {
	UserID        int    `json:"userId"`
	UserName      string `json:"userName"`
	CardID        int    `json:"cardId"`
	IsCurrentUser bool   `json:"isCurrentUser"`
}

// GameSnapshot is the full authoritative game state sent on (re)connect.
// The server is the source of truth after a reconnect; clients replace their
// local state wholesale instead of replaying intermediate events.
type GameSnapshot struct {
	CalledNumbers []int       `json:"calledNumbers"`
	CurrentNumber *int        `json:"currentNumber"`
	IsPlaying     bool        `json:"isPlaying"`
	WinnerInfo    *WinnerInfo `json:"winnerInfo"`
	LastCalledAt  *string     `json:"lastCalledAt"`
}

// CallNumberCommand asks the server to call a number for an event.
type CallNumberCommand struct {
	EventID string `json:"eventId"`
	Number  int    `json:"number"`
}

// ServerErrorEvent is the server's error envelope payload.
type ServerErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
