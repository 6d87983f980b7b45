package service

import "github.com/avvvet/bingo-rooms/internal/gamesvc/game"

// Results are snapshots taken while the room was locked, so they always
// describe committed state.

type JoinResult struct {
	Username string
	Room     game.RoomInfo
	Players  []string
	Cards    []game.CardStatus
	IsAdmin  bool
	Rejoined bool // already a member, only the session was bound
}

type LeaveResult struct {
	Username string
	Room     game.RoomInfo
	Players  []string
	Closed   bool // room was destroyed because it emptied
}

// GameUpdate is returned by operations that redeal or remark every member's cards.
type GameUpdate struct {
	Room  game.RoomInfo
	Cards map[string][]game.CardStatus
}

type DrawResult struct {
	GameUpdate
	Number     int
	Call       string
	TotalDrawn int
	Remaining  int
	Winner     *game.Winner
}

type CardsUpdate struct {
	Room        game.RoomInfo
	Username    string
	NumCards    int
	Regenerated bool
	Cards       []game.CardStatus
}

type CheckInsUpdate struct {
	Room     game.RoomInfo
	Username string
	CheckIns int
}

type AdminUpdate struct {
	Room     game.RoomInfo
	OldAdmin string
	NewAdmin string
}
