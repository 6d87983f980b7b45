package models

import (
	"time"
)

// User is what a login returns to the client.
type User struct {
	UserId    string    `json:"user_id"`
	Name      string    `json:"name"`
	Room      string    `json:"room,omitempty"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
