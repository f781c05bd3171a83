package rummy

import (
	"fmt"

	"rummy-lite/tile"
)

type Config struct {
	MinPlayers int
	MaxPlayers int

	HandSize          int
	InitialMeldPoints int

	// Upper bound on sets returned by FindAllPossibleSets.
	MaxCandidateSets int

	// RNG seed (0 => time-based)
	Seed int64

	// DeckOverride replaces the shuffled deck. Tiles are dealt from the end.
	DeckOverride []tile.Tile
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:        DefaultMinPlayers,
		MaxPlayers:        DefaultMaxPlayers,
		HandSize:          DefaultHandSize,
		InitialMeldPoints: DefaultInitialMeldPoints,
		MaxCandidateSets:  DefaultMaxCandidateSets,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinPlayers == 0 {
		c.MinPlayers = d.MinPlayers
	}
	if c.MaxPlayers == 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.HandSize == 0 {
		c.HandSize = d.HandSize
	}
	if c.InitialMeldPoints == 0 {
		c.InitialMeldPoints = d.InitialMeldPoints
	}
	if c.MaxCandidateSets == 0 {
		c.MaxCandidateSets = d.MaxCandidateSets
	}
	return c
}

func (c Config) validate() error {
	if c.MinPlayers <= 0 {
		return fmt.Errorf("MinPlayers must be > 0")
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("MinPlayers must be <= MaxPlayers")
	}
	if c.HandSize <= 0 {
		return fmt.Errorf("HandSize must be > 0")
	}
	if c.HandSize*c.MaxPlayers >= tile.DeckSize {
		return fmt.Errorf("deck too small: %d players x %d tiles", c.MaxPlayers, c.HandSize)
	}
	if c.InitialMeldPoints < 0 {
		return fmt.Errorf("InitialMeldPoints must be >= 0")
	}
	if c.MaxCandidateSets < 0 {
		return fmt.Errorf("MaxCandidateSets must be >= 0")
	}
	if c.DeckOverride != nil {
		return validateDeckOverride(c.DeckOverride)
	}
	return nil
}

// validateDeckOverride requires a permutation of tile.NewDeck.
func validateDeckOverride(deck []tile.Tile) error {
	if len(deck) != tile.DeckSize {
		return fmt.Errorf("deck override must contain %d tiles, got %d", tile.DeckSize, len(deck))
	}
	canonical := tile.NewDeck()
	seen := make(map[int]bool, len(deck))
	for _, t := range deck {
		if t.ID < 0 || t.ID >= len(canonical) {
			return fmt.Errorf("deck override has unknown tile id %d", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("deck override has duplicate tile id %d", t.ID)
		}
		seen[t.ID] = true
		if canonical[t.ID] != t {
			return fmt.Errorf("deck override tile %v does not match %v", t, canonical[t.ID])
		}
	}
	return nil
}
