package tile

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes numbered tiles from jokers.
type Kind byte

const (
	KindNumber Kind = 0
	KindJoker  Kind = 1
)

// Tile is an immutable game piece. ID is stable for the lifetime of a game.
//
// Jokers carry ColorNone and Number 0.
type Tile struct {
	ID     int
	Kind   Kind
	Color  Color
	Number int
}

const (
	MinNumber = 1
	MaxNumber = 13
)

// New returns a numbered tile.
func New(id int, c Color, number int) Tile {
	return Tile{ID: id, Kind: KindNumber, Color: c, Number: number}
}

// NewJoker returns a joker tile.
func NewJoker(id int) Tile {
	return Tile{ID: id, Kind: KindJoker}
}

func (t Tile) IsJoker() bool { return t.Kind == KindJoker }

// Valid reports whether the tile is a well-formed joker or numbered tile.
func (t Tile) Valid() bool {
	if t.IsJoker() {
		return t.Color == ColorNone && t.Number == 0
	}
	return t.Color.Valid() && t.Number >= MinNumber && t.Number <= MaxNumber
}

// Face returns the short label, e.g. "R13", "K1" or "JK".
func (t Tile) Face() string {
	if t.IsJoker() {
		return "JK"
	}
	return t.Color.Letter() + strconv.Itoa(t.Number)
}

func (t Tile) String() string {
	return fmt.Sprintf("%s#%d", t.Face(), t.ID)
}

// ParseFace parses a label produced by Face. The returned tile has the given id.
func ParseFace(id int, face string) (Tile, error) {
	face = strings.ToUpper(strings.TrimSpace(face))
	if face == "JK" || face == "J" {
		return NewJoker(id), nil
	}
	if len(face) < 2 {
		return Tile{}, fmt.Errorf("invalid tile face: %q", face)
	}
	c, err := ColorFromLetter(face[:1])
	if err != nil {
		return Tile{}, err
	}
	n, err := strconv.Atoi(face[1:])
	if err != nil || n < MinNumber || n > MaxNumber {
		return Tile{}, fmt.Errorf("invalid tile number: %q", face)
	}
	return New(id, c, n), nil
}
