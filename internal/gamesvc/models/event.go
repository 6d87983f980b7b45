package models

import "time"

// RoomEvent is one entry of the room audit log. Entries expire at ExpiresAt.
type RoomEvent struct {
	RoomID    string    `json:"room_id" bson:"room_id"`
	RoomName  string    `json:"room_name" bson:"room_name"`
	Type      string    `json:"type" bson:"type"`
	Username  string    `json:"username" bson:"username"`
	Detail    string    `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
