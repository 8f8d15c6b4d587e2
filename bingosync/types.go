package bingosync

import "encoding/json"

// Server -> client message types.
const (
	MsgNumberCalled   = "NUMBER_CALLED"
	MsgWinnerDeclared = "WINNER_DECLARED"
	MsgGameReset      = "GAME_RESET"
	MsgGameState      = "GAME_STATE"
	MsgServerError    = "ERROR"
)

// Client -> server message types.
const (
	MsgCallNumber = "CALL_NUMBER"
)

// MinNumber and MaxNumber bound the callable pool.
const (
	MinNumber = 1
	MaxNumber = 75
)

// Command is the envelope client -> server.
type Command struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope is the envelope server -> client. Payload stays raw until the
// dispatcher decodes it for the matching message type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UnmarshalPayload decodes an envelope payload into target.
func UnmarshalPayload(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
