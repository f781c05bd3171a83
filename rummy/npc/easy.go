package npc

import "rummy-lite/rummy"

// EasyBrain plays the first legal set it finds and never manipulates.
type EasyBrain struct{}

func NewEasyBrain() *EasyBrain { return &EasyBrain{} }

func (b *EasyBrain) Name() string { return "easy" }

func (b *EasyBrain) Decide(view GameView) Decision {
	floor := 0
	if !view.HasInitialMeld {
		floor = view.MeldPoints
	}
	if set, ok := rummy.FindFirstSet(view.Hand, floor); ok {
		return playDecision(set, "first set found")
	}
	return drawDecision("no playable set")
}
