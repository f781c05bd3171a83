package rummy

import (
	"fmt"
	"strings"
)

// Phase 游戏阶段
type Phase byte

const (
	PhaseWaiting  Phase = 0
	PhasePlaying  Phase = 1
	PhaseFinished Phase = 2
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:  "waiting",
	PhasePlaying:  "playing",
	PhaseFinished: "finished",
}

func (p Phase) String() string { return PhaseDictionary[p] }

// ActionType identifies a turn operation.
type ActionType byte

const (
	ActionNone                ActionType = 0
	ActionDraw                ActionType = 1
	ActionPlaySet             ActionType = 2
	ActionStartManipulation   ActionType = 3
	ActionMutateManipulation  ActionType = 4
	ActionConfirmManipulation ActionType = 5
	ActionCancelManipulation  ActionType = 6
	ActionLeave               ActionType = 7
)

var ActionTypeDictionary = map[ActionType]string{
	ActionNone:                "none",
	ActionDraw:                "draw",
	ActionPlaySet:             "play_set",
	ActionStartManipulation:   "start_manipulation",
	ActionMutateManipulation:  "mutate_manipulation",
	ActionConfirmManipulation: "confirm_manipulation",
	ActionCancelManipulation:  "cancel_manipulation",
	ActionLeave:               "leave",
}

func (a ActionType) String() string { return ActionTypeDictionary[a] }

// ParseAction maps a wire name back to an ActionType.
func ParseAction(s string) (ActionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range ActionTypeDictionary {
		if name == s && a != ActionNone {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// Difficulty is the AI tier of a computer-controlled player.
type Difficulty byte

const (
	DifficultyNone   Difficulty = 0
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

var DifficultyDictionary = map[Difficulty]string{
	DifficultyNone:   "",
	DifficultyEasy:   "easy",
	DifficultyMedium: "medium",
	DifficultyHard:   "hard",
}

func (d Difficulty) String() string { return DifficultyDictionary[d] }

// ParseDifficulty defaults to medium for an empty string.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "", "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return DifficultyNone, fmt.Errorf("unknown difficulty %q", s)
}

// Intent is one state-transition request against a game.
type Intent struct {
	PlayerID string
	Action   ActionType
	TileIDs  []int   // play_set
	Table    [][]int // mutate_manipulation: full proposed layout
}

// ActionRecord describes the last committed action.
type ActionRecord struct {
	Type     ActionType
	PlayerID string
	TileIDs  []int
	Turn     int
}

const (
	DefaultMinPlayers        = 2
	DefaultMaxPlayers        = 4
	DefaultHandSize          = 14
	DefaultInitialMeldPoints = 30
	DefaultMaxCandidateSets  = 2048

	// JokerPenalty is the end-of-game value of a joker left in hand.
	JokerPenalty = 30
)
