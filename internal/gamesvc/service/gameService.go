package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/avvvet/bingo-rooms/internal/gamesvc/game"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/metrics"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	log "github.com/sirupsen/logrus"
)

const minNameLength = 3

// GameRecorder archives finished games.
type GameRecorder interface {
	RecordGame(ctx context.Context, game *models.Game) error
}

// EventLogger appends to the room audit log.
type EventLogger interface {
	LogEvent(ctx context.Context, event models.RoomEvent) error
}

type roomEntry struct {
	mu     sync.Mutex
	room   *game.Room
	closed bool
}

// GameService owns every player, room and bound session of the process.
//
// Lock order is s.mu, then a room's mu, then s.sessMu. Membership changes hold
// s.mu for their whole duration; game operations only hold the room lock.
type GameService struct {
	mu    sync.Mutex
	users map[string]*game.Player
	rooms map[string]*roomEntry

	sessMu   sync.Mutex
	sessions map[string]Session

	maxPlayers int
	recorder   GameRecorder
	events     EventLogger
	metrics    *metrics.Metrics
	newRand    func() *rand.Rand
}

// NewGameService creates the service. recorder, events and m may be nil.
func NewGameService(maxPlayers int, recorder GameRecorder, events EventLogger, m *metrics.Metrics) *GameService {
	if maxPlayers <= 0 {
		maxPlayers = game.DefaultMaxPlayers
	}
	return &GameService{
		users:      make(map[string]*game.Player),
		rooms:      make(map[string]*roomEntry),
		sessions:   make(map[string]Session),
		maxPlayers: maxPlayers,
		recorder:   recorder,
		events:     events,
		metrics:    m,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Login returns the player registered under name, creating it on first use.
func (s *GameService) Login(name string) (*models.User, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[name]
	if !ok {
		p = game.NewPlayer(name)
		s.users[name] = p
		log.Infof("player %s logged in for the first time", name)
	}

	return &models.User{
		UserId:    p.ID,
		Name:      p.Name,
		Room:      p.Room(),
		CreatedAt: p.CreatedAt,
	}, nil
}

// Logout removes the player from its room and drops its sessions. The player
// itself is kept, so logging in again with the same name resumes it.
func (s *GameService) Logout(ctx context.Context, username string) (*LeaveResult, error) {
	s.mu.Lock()
	p, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownUser
	}

	var res *LeaveResult
	if p.Room() != "" {
		if e := s.rooms[p.Room()]; e != nil {
			res = s.leaveLocked(e, p)
		}
	}
	s.mu.Unlock()

	s.dropUserSessions(username, "")
	if res != nil {
		s.logEvent(ctx, res.Room, "player-left", username, "logout")
	}
	return res, nil
}

// CreateRoom opens a room whose creator becomes its first member and admin.
func (s *GameService) CreateRoom(ctx context.Context, name, creator string, maxPlayers int) (game.RoomInfo, error) {
	name, err := cleanName(name)
	if err != nil {
		return game.RoomInfo{}, err
	}
	if maxPlayers <= 0 {
		maxPlayers = s.maxPlayers
	}

	s.mu.Lock()
	p, ok := s.users[creator]
	if !ok {
		s.mu.Unlock()
		return game.RoomInfo{}, ErrUnknownUser
	}
	if _, exists := s.rooms[name]; exists {
		s.mu.Unlock()
		return game.RoomInfo{}, ErrRoomExists
	}
	if p.Room() != "" {
		s.mu.Unlock()
		return game.RoomInfo{}, ErrAlreadyInRoom
	}

	r := game.NewRoom(name, maxPlayers, game.WithRand(s.newRand()))
	r.AddPlayer(p)
	s.rooms[name] = &roomEntry{room: r}
	info := r.Snapshot()
	s.metrics.SetRooms(len(s.rooms))
	s.mu.Unlock()

	log.Infof("room %s created by %s (max %d players)", name, creator, maxPlayers)
	s.logEvent(ctx, info, "room-created", creator, "")
	return info, nil
}

// JoinRoom adds username to the room and binds socketID to it. A member
// coming back on a new socket keeps its membership and cards.
func (s *GameService) JoinRoom(ctx context.Context, socketID, roomName, username string) (*JoinResult, error) {
	res, err := s.join(socketID, roomName, username)
	if err != nil {
		return nil, err
	}
	if !res.Rejoined {
		s.logEvent(ctx, res.Room, "player-joined", username, "")
	}
	return res, nil
}

func (s *GameService) join(socketID, roomName, username string) (*JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[username]
	if !ok {
		return nil, ErrUnknownUser
	}
	e, ok := s.rooms[roomName]
	if !ok {
		return nil, ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.room

	rejoined := r.Member(username) != nil
	if !rejoined {
		if p.Room() != "" {
			return nil, ErrAlreadyInRoom
		}
		if !r.AddPlayer(p) {
			return nil, ErrCapacityExceeded
		}
		if r.Started() {
			r.RegenerateCards(username)
		}
	}

	if socketID != "" {
		s.BindSession(socketID, username, roomName)
	}

	return &JoinResult{
		Username: username,
		Room:     r.Snapshot(),
		Players:  r.Members(),
		Cards:    p.CardsSnapshot(),
		IsAdmin:  p.IsAdmin(),
		Rejoined: rejoined,
	}, nil
}

// LeaveRoom removes username from the room; an emptied room is destroyed.
func (s *GameService) LeaveRoom(ctx context.Context, roomName, username string) (*LeaveResult, error) {
	s.mu.Lock()
	p, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownUser
	}
	e, ok := s.rooms[roomName]
	if !ok {
		s.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if p.Room() != roomName {
		s.mu.Unlock()
		return nil, ErrNotInRoom
	}
	res := s.leaveLocked(e, p)
	s.mu.Unlock()

	s.dropUserSessions(username, roomName)
	s.logEvent(ctx, res.Room, "player-left", username, "")
	return res, nil
}

// leaveLocked must be called with s.mu held.
func (s *GameService) leaveLocked(e *roomEntry, p *game.Player) *LeaveResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.room
	r.RemovePlayer(p)
	res := &LeaveResult{
		Username: p.Name,
		Room:     r.Snapshot(),
		Players:  r.Members(),
	}
	if r.Len() == 0 {
		e.closed = true
		delete(s.rooms, r.Name)
		res.Closed = true
		s.metrics.SetRooms(len(s.rooms))
		log.Infof("room %s closed, last player %s left", r.Name, p.Name)
	}
	return res
}

func (s *GameService) withRoom(roomName string, fn func(r *game.Room) error) error {
	s.mu.Lock()
	e := s.rooms[roomName]
	s.mu.Unlock()
	if e == nil {
		return ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrRoomNotFound
	}
	return fn(e.room)
}

// withAdmin runs fn only when actor is the room's admin.
func (s *GameService) withAdmin(roomName, actor string, fn func(r *game.Room) error) error {
	return s.withRoom(roomName, func(r *game.Room) error {
		if err := assertAdmin(r, actor); err != nil {
			return err
		}
		return fn(r)
	})
}

func assertAdmin(r *game.Room, username string) error {
	p := r.Member(username)
	if p == nil || !p.IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

func allCards(r *game.Room) map[string][]game.CardStatus {
	out := make(map[string][]game.CardStatus, r.Len())
	for _, name := range r.Members() {
		out[name] = r.Member(name).CardsSnapshot()
	}
	return out
}

func (s *GameService) StartGame(ctx context.Context, roomName, actor string) (*GameUpdate, error) {
	var res *GameUpdate
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		if !r.StartGame() {
			return ErrNoMembers
		}
		res = &GameUpdate{Room: r.Snapshot(), Cards: allCards(r)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.GameStarted()
	log.Infof("game started in room %s by %s", roomName, actor)
	s.logEvent(ctx, res.Room, "game-started", actor, "")
	return res, nil
}

// DrawNumber draws the next number, marks it on every member's cards and
// checks for a winner in one step.
func (s *GameService) DrawNumber(ctx context.Context, roomName, actor string) (*DrawResult, error) {
	var (
		res     *DrawResult
		archive *models.Game
	)
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		if r.State() != game.Active {
			return ErrGameNotActive
		}
		d, ok := r.DrawAndApply()
		if !ok {
			return ErrNoNumbersLeft
		}
		res = &DrawResult{
			GameUpdate: GameUpdate{Room: r.Snapshot(), Cards: allCards(r)},
			Number:     d.Number,
			Call:       game.Call(d.Number),
			TotalDrawn: game.MaxNumber - r.Remaining(),
			Remaining:  r.Remaining(),
		}
		if d.Winner != nil {
			res.Winner = r.Winner()
			archive = archiveRecord(r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.NumberDrawn()
	if res.Winner != nil {
		s.metrics.GameFinished()
		log.Infof("room %s: %s wins with card(s) %v after %d numbers",
			roomName, res.Winner.Username, res.Winner.WinningCards, res.TotalDrawn)
		s.record(ctx, archive)
		s.logEvent(ctx, res.Room, "game-finished", res.Winner.Username, res.Call)
	}
	return res, nil
}

func archiveRecord(r *game.Room) *models.Game {
	w := r.Winner()
	g := &models.Game{
		RoomID:     r.ID,
		RoomName:   r.Name,
		Winner:     w.Username,
		TotalCards: w.TotalCards,
		Players:    r.Len(),
		Prize:      r.Prize(),
		StartedAt:  r.StartedAt,
		FinishedAt: time.Now(),
	}
	for _, i := range w.WinningCards {
		g.WinningCards = append(g.WinningCards, int32(i))
	}
	for _, n := range r.NumbersDrawn() {
		g.NumbersDrawn = append(g.NumbersDrawn, int32(n))
	}
	return g
}

// ResetGame clears the draw and redeals every member's cards.
func (s *GameService) ResetGame(ctx context.Context, roomName, actor string) (*GameUpdate, error) {
	var res *GameUpdate
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		r.ResetGame()
		res = &GameUpdate{Room: r.Snapshot(), Cards: allCards(r)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, res.Room, "game-reset", actor, "")
	return res, nil
}

func (s *GameService) SetPlayerCards(ctx context.Context, roomName, actor, target string, n int) (*CardsUpdate, error) {
	var res *CardsUpdate
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		if !r.SetPlayerCardCount(target, n) {
			return ErrInvalidTarget
		}
		p := r.Member(target)
		res = &CardsUpdate{
			Room:        r.Snapshot(),
			Username:    target,
			NumCards:    p.CardCount(),
			Regenerated: r.Started(),
			Cards:       p.CardsSnapshot(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, res.Room, "player-cards-updated", target, "")
	return res, nil
}

func (s *GameService) UpdateCheckIns(ctx context.Context, roomName, actor, target string, n int) (*CheckInsUpdate, error) {
	var res *CheckInsUpdate
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		if !r.UpdateCheckIns(target, n) {
			return ErrInvalidTarget
		}
		res = &CheckInsUpdate{
			Room:     r.Snapshot(),
			Username: target,
			CheckIns: r.Member(target).CheckIns(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, res.Room, "check-ins-updated", target, "")
	return res, nil
}

func (s *GameService) TransferAdmin(ctx context.Context, roomName, actor, newAdmin string) (*AdminUpdate, error) {
	var res *AdminUpdate
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		if actor == newAdmin {
			return ErrAlreadyAdmin
		}
		if !r.TransferAdmin(newAdmin) {
			return ErrInvalidTarget
		}
		res = &AdminUpdate{Room: r.Snapshot(), OldAdmin: actor, NewAdmin: newAdmin}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("room %s: admin transferred from %s to %s", roomName, actor, newAdmin)
	s.logEvent(ctx, res.Room, "admin-transferred", newAdmin, actor)
	return res, nil
}

func (s *GameService) SetPrize(ctx context.Context, roomName, actor, prize string) (game.RoomInfo, error) {
	var info game.RoomInfo
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		r.SetPrize(prize)
		info = r.Snapshot()
		return nil
	})
	if err != nil {
		return game.RoomInfo{}, err
	}

	s.logEvent(ctx, info, "prize-updated", actor, info.Prize)
	return info, nil
}

func (s *GameService) PlayersConfig(roomName, actor string) ([]game.PlayerConfig, error) {
	var out []game.PlayerConfig
	err := s.withAdmin(roomName, actor, func(r *game.Room) error {
		out = r.PlayersConfig()
		return nil
	})
	return out, err
}

func (s *GameService) RoomInfo(roomName string) (game.RoomInfo, error) {
	var info game.RoomInfo
	err := s.withRoom(roomName, func(r *game.Room) error {
		info = r.Snapshot()
		return nil
	})
	return info, err
}

// Cards returns the cards username holds in the room.
func (s *GameService) Cards(roomName, username string) ([]game.CardStatus, error) {
	var out []game.CardStatus
	err := s.withRoom(roomName, func(r *game.Room) error {
		p := r.Member(username)
		if p == nil {
			return ErrNotInRoom
		}
		out = p.CardsSnapshot()
		return nil
	})
	return out, err
}

// Rooms lists every open room ordered by name.
func (s *GameService) Rooms() []game.RoomInfo {
	s.mu.Lock()
	entries := make([]*roomEntry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]game.RoomInfo, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed && e.room.Len() > 0 {
			out = append(out, e.room.Snapshot())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *GameService) record(ctx context.Context, g *models.Game) {
	if s.recorder == nil || g == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.recorder.RecordGame(ctx, g); err != nil {
		log.Errorf("Error [GameRecorder.RecordGame] room %s: %s", g.RoomName, err)
	}
}

func (s *GameService) logEvent(ctx context.Context, info game.RoomInfo, eventType, username, detail string) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := models.RoomEvent{
		RoomID:    info.ID,
		RoomName:  info.Name,
		Type:      eventType,
		Username:  username,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.events.LogEvent(ctx, event); err != nil {
		log.Errorf("Error [EventLogger.LogEvent] %s in room %s: %s", eventType, info.Name, err)
	}
}
