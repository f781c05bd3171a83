package rummy

import "rummy-lite/tile"

// PlayerInfo is what a caller supplies when seating a player.
type PlayerInfo struct {
	ID         string
	Name       string
	IsAI       bool
	Difficulty Difficulty
}

type Player struct {
	ID         string
	Name       string
	IsAI       bool
	Difficulty Difficulty
	IsHost     bool

	hand           tile.List
	hasInitialMeld bool
}

func (p *Player) Hand() tile.List      { return p.hand }
func (p *Player) HasInitialMeld() bool { return p.hasInitialMeld }
func (p *Player) HandCount() int       { return len(p.hand) }

func (p *Player) clone() *Player {
	cp := *p
	cp.hand = p.hand.Clone()
	return &cp
}
