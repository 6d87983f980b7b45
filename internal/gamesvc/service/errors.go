package service

import "errors"

// Errors returned by GameService. Messages are shown to players as-is.
var (
	ErrCapacityExceeded = errors.New("room is full")
	ErrInvalidTarget    = errors.New("player not found in room")
	ErrNotAuthorized    = errors.New("only the room admin can do that")
	ErrNoNumbersLeft    = errors.New("all numbers have been drawn")
	ErrGameNotActive    = errors.New("game is not active")
	ErrNoMembers        = errors.New("room has no players")

	ErrRoomNotFound  = errors.New("room not found")
	ErrUnknownUser   = errors.New("unknown user, log in first")
	ErrInvalidName   = errors.New("name must have at least 3 characters")
	ErrRoomExists    = errors.New("room already exists")
	ErrAlreadyInRoom = errors.New("player is already in another room")
	ErrNotInRoom     = errors.New("player is not in this room")
	ErrAlreadyAdmin  = errors.New("player is already the admin")
)
