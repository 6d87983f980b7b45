package models

import "time"

// Game is the archived record of one finished game.
type Game struct {
	ID           int64     `json:"id"`            // Primary key
	RoomID       string    `json:"room_id"`       // Room uuid at the time of the game
	RoomName     string    `json:"room_name"`     // Display name of the room
	Winner       string    `json:"winner"`        // Winner display name
	WinningCards []int32   `json:"winning_cards"` // Indices of the winning cards
	TotalCards   int       `json:"total_cards"`   // Cards the winner held
	NumbersDrawn []int32   `json:"numbers_drawn"` // Draw order
	Players      int       `json:"players"`       // Members when the game ended
	Prize        string    `json:"prize"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
