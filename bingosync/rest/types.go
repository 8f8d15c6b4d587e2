package rest

import "time"

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse contains the bearer token returned after authentication.
// The same token authenticates the game feed connection.
type TokenResponse struct {
	Token string `json:"token"`
}

// Event types

// EventStatus represents the lifecycle state of a bingo event.
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusLive      EventStatus = "live"
	EventStatusFinished  EventStatus = "finished"
)

// EventInfo represents bingo event metadata.
type EventInfo struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    EventStatus `json:"status"`
	CardPrice int         `json:"card_price"` // smallest currency unit
	StartsAt  time.Time   `json:"starts_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// Card types

// CardInfo represents a purchased bingo card. Numbers hold the 5x5 grid in
// row order; the free center cell is 0.
type CardInfo struct {
	ID      int     `json:"id"`
	EventID string  `json:"event_id"`
	UserID  int     `json:"user_id"`
	Numbers [][]int `json:"numbers"`
}

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
