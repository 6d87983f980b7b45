package comm

import (
	"encoding/json"

	"github.com/avvvet/bingo-rooms/internal/gamesvc/game"
)

// NATS subjects between the socket service and the game service.
const (
	SocketSubject = "socket.service" // client events, socket -> game
	GameSubject   = "game.service"   // replies and broadcasts, game -> socket
)

// Client events.
const (
	CreateRoom       = "create-room"
	JoinRoom         = "join-room"
	LeaveRoom        = "leave-room"
	StartGame        = "start-game"
	DrawNumber       = "draw-number"
	ResetGame        = "reset-game"
	SetPlayerCards   = "set-player-cards"
	GetPlayersConfig = "get-players-config"
	UpdateCheckIns   = "update-check-ins"
	TransferAdmin    = "transfer-admin"
	SetPrize         = "set-prize"
	Disconnect       = "disconnect" // published by the socket service, never by clients
)

// Game service events.
const (
	RoomCreated        = "room-created"
	PlayerJoined       = "player-joined"
	GameState          = "game-state"
	RoomFull           = "room-full"
	PlayerLeft         = "player-left"
	GameStarted        = "game-started"
	NumberDrawn        = "number-drawn"
	CardUpdated        = "card-updated"
	GameFinished       = "game-finished"
	GameReset          = "game-reset"
	PlayerCardsUpdated = "player-cards-updated"
	CardsRegenerated   = "cards-regenerated"
	PlayersConfig      = "players-config"
	CheckInsUpdated    = "check-ins-updated"
	AdminTransferred   = "admin-transferred"
	PrizeUpdated       = "prize-updated"
	Error              = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "join-room", "number-drawn"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
	Username string          `json:"username,omitempty"` // set by the socket service from the token
}

// NewMessage encodes payload into a message addressed to socketId.
func NewMessage(msgType, socketId string, payload any) (*WSMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: data, SocketId: socketId}, nil
}

// requests

type CreateRoomRequest struct {
	Room       string `json:"room"`
	MaxPlayers int    `json:"max_players"`
}

// RoomRequest is the payload of join, leave, start, draw, reset and
// get-players-config.
type RoomRequest struct {
	Room string `json:"room"`
}

type SetPlayerCardsRequest struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	NumCards int    `json:"num_cards"`
}

type UpdateCheckInsRequest struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	CheckIns int    `json:"check_ins"`
}

type TransferAdminRequest struct {
	Room     string `json:"room"`
	NewAdmin string `json:"new_admin"`
}

type SetPrizeRequest struct {
	Room  string `json:"room"`
	Prize string `json:"prize"`
}

// responses and broadcasts

type RoomUpdate struct {
	RoomInfo game.RoomInfo `json:"room_info"`
	Message  string        `json:"message,omitempty"`
}

type PlayersUpdate struct {
	Username     string        `json:"username"`
	Players      []string      `json:"players"`
	PlayersCount int           `json:"players_count"`
	IsAdmin      bool          `json:"is_admin"`
	RoomInfo     game.RoomInfo `json:"room_info"`
}

// GameStateData is sent to one session; it carries that player's cards.
type GameStateData struct {
	RoomInfo     game.RoomInfo     `json:"room_info"`
	Cards        []game.CardStatus `json:"cards"`
	NumbersDrawn []int             `json:"numbers_drawn"`
	Players      []string          `json:"players"`
	PlayersCount int               `json:"players_count"`
	IsAdmin      bool              `json:"is_admin"`
}

type NumberDrawnData struct {
	Number     int           `json:"number"`
	Call       string        `json:"call"`
	TotalDrawn int           `json:"total_drawn"`
	Remaining  int           `json:"remaining"`
	RoomInfo   game.RoomInfo `json:"room_info"`
}

type CardsData struct {
	Cards    []game.CardStatus `json:"cards"`
	RoomInfo game.RoomInfo     `json:"room_info"`
	Message  string            `json:"message,omitempty"`
}

type GameFinishedData struct {
	Winner   *game.Winner  `json:"winner"`
	Message  string        `json:"message"`
	RoomInfo game.RoomInfo `json:"room_info"`
}

type PlayerCardsData struct {
	Username string        `json:"username"`
	NumCards int           `json:"num_cards"`
	RoomInfo game.RoomInfo `json:"room_info"`
}

type PlayersConfigData struct {
	Room    string              `json:"room"`
	Players []game.PlayerConfig `json:"players"`
}

type CheckInsData struct {
	Username string        `json:"username"`
	CheckIns int           `json:"check_ins"`
	RoomInfo game.RoomInfo `json:"room_info"`
}

type AdminData struct {
	OldAdmin string        `json:"old_admin"`
	NewAdmin string        `json:"new_admin"`
	Message  string        `json:"message"`
	RoomInfo game.RoomInfo `json:"room_info"`
}

type PrizeData struct {
	Prize    string        `json:"prize"`
	Message  string        `json:"message"`
	RoomInfo game.RoomInfo `json:"room_info"`
}

type ErrorData struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
