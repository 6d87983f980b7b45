package game

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Player is a logged-in user and the cards it holds in its current room.
type Player struct {
	ID        string
	Name      string
	CreatedAt time.Time

	cards    []Card
	marked   []map[Cell]struct{}
	numCards int
	isAdmin  bool
	checkIns int
	room     string
}

// CardStatus is the per-card record relayed to a player's clients.
type CardStatus struct {
	Index       int    `json:"card_index"`
	Cells       []Cell `json:"card"`
	Marked      []Cell `json:"marked"`
	MarkedCount int    `json:"total_marked"`
	TotalCount  int    `json:"total_numbers"`
	IsWinner    bool   `json:"is_winner"`
	Owner       string `json:"owner"`
}

func NewPlayer(name string) *Player {
	return &Player{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		numCards:  1,
	}
}

func (p *Player) IsAdmin() bool { return p.isAdmin }
func (p *Player) CheckIns() int { return p.checkIns }
func (p *Player) CardCount() int { return p.numCards }

// Room is the name of the room the player is a member of, "" when none.
func (p *Player) Room() string { return p.room }

// SetCardCount records how many cards the player should hold (minimum 1).
// Cards themselves are dealt by the room.
func (p *Player) SetCardCount(n int) {
	p.numCards = max(1, n)
	for len(p.marked) < len(p.cards) {
		p.marked = append(p.marked, map[Cell]struct{}{Free: {}})
	}
}

func (p *Player) setCheckIns(n int) {
	p.checkIns = max(0, n)
}

// deal replaces every card with a fresh one; previous marks are discarded.
func (p *Player) deal(rng *rand.Rand) {
	p.cards = make([]Card, p.numCards)
	p.marked = make([]map[Cell]struct{}, p.numCards)
	for i := range p.cards {
		p.cards[i] = GenerateCard(rng)
		p.marked[i] = map[Cell]struct{}{Free: {}}
	}
}

func (p *Player) clearCards() {
	p.cards = nil
	p.marked = nil
}

// Cards returns a copy of the player's cards.
func (p *Player) Cards() []Card {
	out := make([]Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// MarkNumber marks n on every owned card that contains it.
func (p *Player) MarkNumber(n int) bool {
	matched := false
	for i, card := range p.cards {
		if card.Contains(n) {
			p.marked[i][Cell(n)] = struct{}{}
			matched = true
		}
	}
	return matched
}

// CheckBingo reports whether every non-free cell of the card at index is marked.
func (p *Player) CheckBingo(index int) bool {
	if index < 0 || index >= len(p.cards) {
		return false
	}
	marked := p.marked[index]
	for _, cell := range p.cards[index] {
		if cell.IsFree() {
			continue
		}
		if _, ok := marked[cell]; !ok {
			return false
		}
	}
	return true
}

// HasBingo reports whether at least one card wins.
func (p *Player) HasBingo() bool {
	for i := range p.cards {
		if p.CheckBingo(i) {
			return true
		}
	}
	return false
}

// WinningCards returns the ascending indices of winning cards.
func (p *Player) WinningCards() []int {
	var out []int
	for i := range p.cards {
		if p.CheckBingo(i) {
			out = append(out, i)
		}
	}
	return out
}

func (p *Player) CardsSnapshot() []CardStatus {
	out := make([]CardStatus, 0, len(p.cards))
	for i, card := range p.cards {
		cells := make([]Cell, CardSize)
		copy(cells, card[:])

		marked := make([]Cell, 0, len(p.marked[i]))
		count := 0
		for c := range p.marked[i] {
			marked = append(marked, c)
			if !c.IsFree() {
				count++
			}
		}
		sort.Slice(marked, func(a, b int) bool { return marked[a] < marked[b] })

		out = append(out, CardStatus{
			Index:       i,
			Cells:       cells,
			Marked:      marked,
			MarkedCount: count,
			TotalCount:  CardSize - 1,
			IsWinner:    p.CheckBingo(i),
			Owner:       p.Name,
		})
	}
	return out
}
