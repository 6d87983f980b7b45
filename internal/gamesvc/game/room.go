package game

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxPlayers = 50

type State int

const (
	Idle State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Winner is recorded once per completed game.
type Winner struct {
	Username     string `json:"username"`
	WinningCards []int  `json:"winning_cards"`
	TotalCards   int    `json:"total_cards"`
}

// PlayerConfig is one member's entry in the admin's card configuration list.
type PlayerConfig struct {
	Username string `json:"username"`
	NumCards int    `json:"num_cards"`
	CheckIns int    `json:"check_ins"`
	IsAdmin  bool   `json:"is_admin"`
}

// RoomInfo is the room-wide snapshot broadcast after every state change.
type RoomInfo struct {
	Name          string         `json:"room_name"`
	ID            string         `json:"room_id"`
	Admin         string         `json:"admin"`
	PlayersCount  int            `json:"players_count"`
	MaxPlayers    int            `json:"max_players"`
	IsActive      bool           `json:"is_active"`
	GameStarted   bool           `json:"game_started"`
	NumbersDrawn  []int          `json:"numbers_drawn"`
	Winner        *Winner        `json:"winner"`
	TotalCards    int            `json:"total_cards"`
	PlayersConfig []PlayerConfig `json:"players_config"`
	Prize         string         `json:"prize"`
}

// Draw is the outcome of one DrawAndApply call.
type Draw struct {
	Number int
	Winner *Player
}

// Room is not safe for concurrent use; callers serialise access per room.
type Room struct {
	ID         string
	Name       string
	MaxPlayers int
	CreatedAt  time.Time
	StartedAt  time.Time

	adminName  string
	members    []*Player
	cardCounts map[string]int
	drawn      []int
	state      State
	winner     *Winner
	prize      string
	rng        *rand.Rand
}

type Option func(*Room)

// WithRand sets the random source used for cards and draws.
func WithRand(rng *rand.Rand) Option {
	return func(r *Room) { r.rng = rng }
}

func NewRoom(name string, maxPlayers int, opts ...Option) *Room {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	r := &Room{
		ID:         uuid.New().String(),
		Name:       name,
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
		cardCounts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

func (r *Room) State() State { return r.state }
func (r *Room) Started() bool { return r.state != Idle }
func (r *Room) Admin() string { return r.adminName }
func (r *Room) Len() int { return len(r.members) }
func (r *Room) Prize() string { return r.prize }
func (r *Room) Remaining() int { return MaxNumber - len(r.drawn) }
func (r *Room) Winner() *Winner { return copyWinner(r.winner) }
func (r *Room) NumbersDrawn() []int {
	out := make([]int, len(r.drawn))
	copy(out, r.drawn)
	return out
}

// Member returns the member with the given name, or nil.
func (r *Room) Member(name string) *Player {
	for _, p := range r.members {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Members returns member names in join order.
func (r *Room) Members() []string {
	names := make([]string, len(r.members))
	for i, p := range r.members {
		names[i] = p.Name
	}
	return names
}

func (r *Room) isMember(p *Player) bool {
	for _, m := range r.members {
		if m == p {
			return true
		}
	}
	return false
}

// AddPlayer admits p unless the room is full, p is already a member or p
// belongs to another room. The first member becomes admin.
func (r *Room) AddPlayer(p *Player) bool {
	if len(r.members) >= r.MaxPlayers || r.isMember(p) {
		return false
	}
	if p.room != "" && p.room != r.Name {
		return false
	}
	r.members = append(r.members, p)
	p.room = r.Name
	p.isAdmin = false
	if len(r.members) == 1 {
		p.isAdmin = true
		r.adminName = p.Name
	}
	r.cardCounts[p.Name] = 1
	p.SetCardCount(1)
	return true
}

// RemovePlayer drops p and promotes the earliest remaining member when the
// admin leaves. The lifecycle state is left alone.
func (r *Room) RemovePlayer(p *Player) bool {
	idx := -1
	for i, m := range r.members {
		if m == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	wasAdmin := p.isAdmin || p.Name == r.adminName
	p.room = ""
	p.isAdmin = false
	p.clearCards()
	delete(r.cardCounts, p.Name)

	switch {
	case len(r.members) == 0:
		r.adminName = ""
	case wasAdmin:
		r.members[0].isAdmin = true
		r.adminName = r.members[0].Name
	}
	return true
}

// SetPlayerCardCount changes a member's card count; cards are redealt at
// once when a game has been started.
func (r *Room) SetPlayerCardCount(username string, n int) bool {
	if _, ok := r.cardCounts[username]; !ok {
		return false
	}
	p := r.Member(username)
	if p == nil {
		return false
	}
	n = max(1, n)
	r.cardCounts[username] = n
	p.SetCardCount(n)
	if r.Started() {
		p.deal(r.rng)
	}
	return true
}

// RegenerateCards deals fresh cards to one member according to its configuration.
func (r *Room) RegenerateCards(username string) bool {
	p := r.Member(username)
	if p == nil {
		return false
	}
	r.dealTo(p)
	return true
}

func (r *Room) dealTo(p *Player) {
	n, ok := r.cardCounts[p.Name]
	if !ok {
		n = 1
	}
	p.SetCardCount(n)
	p.deal(r.rng)
}

func (r *Room) UpdateCheckIns(username string, n int) bool {
	p := r.Member(username)
	if p == nil {
		return false
	}
	p.setCheckIns(n)
	return true
}

func (r *Room) TransferAdmin(newAdmin string) bool {
	var current, next *Player
	for _, p := range r.members {
		if p.isAdmin {
			current = p
		}
		if p.Name == newAdmin {
			next = p
		}
	}
	if current == nil || next == nil {
		return false
	}
	current.isAdmin = false
	next.isAdmin = true
	r.adminName = next.Name
	return true
}

func (r *Room) SetPrize(text string) {
	r.prize = strings.TrimSpace(text)
}

// StartGame deals cards to every member and opens the draw.
func (r *Room) StartGame() bool {
	if len(r.members) == 0 {
		return false
	}
	for _, p := range r.members {
		r.dealTo(p)
	}
	r.drawn = nil
	r.winner = nil
	r.state = Active
	r.StartedAt = time.Now()
	return true
}

// DrawNumber picks a not yet drawn number while the game is active.
func (r *Room) DrawNumber() (int, bool) {
	if r.state != Active {
		return 0, false
	}
	seen := make(map[int]bool, len(r.drawn))
	for _, n := range r.drawn {
		seen[n] = true
	}
	pool := make([]int, 0, MaxNumber-len(r.drawn))
	for n := 1; n <= MaxNumber; n++ {
		if !seen[n] {
			pool = append(pool, n)
		}
	}
	if len(pool) == 0 {
		return 0, false
	}
	n := pool[r.rng.Intn(len(pool))]
	r.drawn = append(r.drawn, n)
	return n, true
}

// DrawAndApply draws a number, marks it on every member's cards and checks
// for a winner as one step.
func (r *Room) DrawAndApply() (Draw, bool) {
	n, ok := r.DrawNumber()
	if !ok {
		return Draw{}, false
	}
	for _, p := range r.members {
		p.MarkNumber(n)
	}
	return Draw{Number: n, Winner: r.CheckWinner()}, true
}

// CheckWinner declares the first member in join order holding a winning card.
func (r *Room) CheckWinner() *Player {
	for _, p := range r.members {
		cards := p.WinningCards()
		if len(cards) == 0 {
			continue
		}
		r.winner = &Winner{
			Username:     p.Name,
			WinningCards: cards,
			TotalCards:   len(p.cards),
		}
		r.state = Finished
		return p
	}
	return nil
}

// ResetGame returns the room to Idle and redeals cards; card counts survive.
func (r *Room) ResetGame() {
	r.drawn = nil
	r.winner = nil
	r.state = Idle
	for _, p := range r.members {
		r.dealTo(p)
	}
}

func (r *Room) PlayersConfig() []PlayerConfig {
	out := make([]PlayerConfig, 0, len(r.members))
	for _, p := range r.members {
		n, ok := r.cardCounts[p.Name]
		if !ok {
			n = 1
		}
		out = append(out, PlayerConfig{
			Username: p.Name,
			NumCards: n,
			CheckIns: p.checkIns,
			IsAdmin:  p.isAdmin,
		})
	}
	return out
}

func (r *Room) Snapshot() RoomInfo {
	total := 0
	for _, n := range r.cardCounts {
		total += n
	}
	return RoomInfo{
		Name:          r.Name,
		ID:            r.ID,
		Admin:         r.adminName,
		PlayersCount:  len(r.members),
		MaxPlayers:    r.MaxPlayers,
		IsActive:      r.state == Active,
		GameStarted:   r.Started(),
		NumbersDrawn:  r.NumbersDrawn(),
		Winner:        copyWinner(r.winner),
		TotalCards:    total,
		PlayersConfig: r.PlayersConfig(),
		Prize:         r.prize,
	}
}

func copyWinner(w *Winner) *Winner {
	if w == nil {
		return nil
	}
	cp := *w
	cp.WinningCards = append([]int(nil), w.WinningCards...)
	return &cp
}
