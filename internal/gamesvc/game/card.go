package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
)

const (
	CardSize  = 25
	FreeIndex = 12 // middle of the N column
	MaxNumber = 75

	columnSize = 5
	freeLabel  = "FREE"
)

// Cell is one square of a card. Free marks the centre square.
type Cell int

const Free Cell = 0

func (c Cell) IsFree() bool {
	return c == Free
}

func (c Cell) String() string {
	if c.IsFree() {
		return freeLabel
	}
	return strconv.Itoa(int(c))
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.IsFree() {
		return []byte(`"` + freeLabel + `"`), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"`+freeLabel+`"`)) {
		*c = Free
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid card cell %s: %w", data, err)
	}
	*c = Cell(n)
	return nil
}

// Card holds 25 cells in column-major order: 0-4 B, 5-9 I, 10-14 N, 15-19 G, 20-24 O.
type Card [CardSize]Cell

type columnRange struct {
	letter string
	lo, hi int
}

var columns = [columnSize]columnRange{
	{"B", 1, 15},
	{"I", 16, 30},
	{"N", 31, 45},
	{"G", 46, 60},
	{"O", 61, 75},
}

// GenerateCard samples five distinct values per column range and frees the centre.
func GenerateCard(rng *rand.Rand) Card {
	var card Card
	for col, r := range columns {
		picks := rng.Perm(r.hi - r.lo + 1)[:columnSize]
		for i, p := range picks {
			card[col*columnSize+i] = Cell(r.lo + p)
		}
	}
	card[FreeIndex] = Free
	return card
}

// Contains reports whether n is printed on the card.
func (c Card) Contains(n int) bool {
	if n < 1 || n > MaxNumber {
		return false
	}
	for _, cell := range c {
		if int(cell) == n {
			return true
		}
	}
	return false
}

// Letter returns the column letter a drawn number belongs to, or "" when out of range.
func Letter(n int) string {
	for _, r := range columns {
		if n >= r.lo && n <= r.hi {
			return r.letter
		}
	}
	return ""
}

// Call formats a drawn number the way a caller announces it, e.g. "B-7".
func Call(n int) string {
	l := Letter(n)
	if l == "" {
		return ""
	}
	return l + "-" + strconv.Itoa(n)
}
