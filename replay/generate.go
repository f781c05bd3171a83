package replay

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

type normalizedAction struct {
	intent rummy.Intent
	name   string
}

func normalizeSpec(spec GameSpec) ([]normalizedAction, rummy.Config, error) {
	cfg := rummy.DefaultConfig()
	cfg.Seed = spec.Seed
	if spec.MeldPoints > 0 {
		cfg.InitialMeldPoints = spec.MeldPoints
	}
	if spec.HandSize > 0 {
		cfg.HandSize = spec.HandSize
	}
	if spec.MaxPlayers > 0 {
		cfg.MaxPlayers = spec.MaxPlayers
	}
	if spec.Seed == 0 && len(spec.Deck) == 0 {
		return nil, cfg, &ReplayError{StepIndex: -1, Reason: "invalid_spec", Message: "seed or deck required"}
	}
	if len(spec.Deck) > 0 {
		canonical := tile.NewDeck()
		deck := make([]tile.Tile, 0, len(spec.Deck))
		for _, id := range spec.Deck {
			if id < 0 || id >= len(canonical) {
				return nil, cfg, &ReplayError{StepIndex: -1, Reason: "invalid_deck", Message: fmt.Sprintf("unknown tile id %d", id)}
			}
			deck = append(deck, canonical[id])
		}
		cfg.DeckOverride = deck
	}
	seen := make(map[string]bool, len(spec.Players))
	for _, p := range spec.Players {
		if p.ID == "" || seen[p.ID] {
			return nil, cfg, &ReplayError{StepIndex: -1, Reason: "invalid_players", Message: fmt.Sprintf("bad or duplicate player id %q", p.ID)}
		}
		seen[p.ID] = true
	}

	out := make([]normalizedAction, 0, len(spec.Actions))
	for i, a := range spec.Actions {
		typ, err := rummy.ParseAction(a.Type)
		if err != nil {
			return nil, cfg, &ReplayError{StepIndex: int32(i), Reason: "unknown_action", Message: err.Error()}
		}
		out = append(out, normalizedAction{
			name: typ.String(),
			intent: rummy.Intent{
				PlayerID: a.Player,
				Action:   typ,
				TileIDs:  a.TileIDs,
				Table:    a.Table,
			},
		})
	}
	return out, cfg, nil
}

// Run re-executes spec against a fresh game and returns it. Any rejected
// action aborts with a *ReplayError naming the step.
func Run(spec GameSpec) (*rummy.Game, error) {
	return run(spec, nil)
}

func run(spec GameSpec, onStep func(step int, a *normalizedAction, g *rummy.Game) error) (*rummy.Game, error) {
	actions, cfg, err := normalizeSpec(spec)
	if err != nil {
		return nil, err
	}
	game, err := rummy.NewGame(spec.GameID, cfg)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}
	for _, p := range spec.Players {
		d, _ := rummy.ParseDifficulty(p.Difficulty)
		if !p.IsAI {
			d = rummy.DifficultyNone
		}
		if err := game.AddPlayer(rummy.PlayerInfo{ID: p.ID, Name: p.Name, IsAI: p.IsAI, Difficulty: d}); err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: "seat_init_failed", Message: err.Error()}
		}
	}
	if err := game.Start(); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "start_failed", Message: err.Error()}
	}
	if onStep != nil {
		if err := onStep(-1, nil, game); err != nil {
			return nil, err
		}
	}

	for i := range actions {
		a := &actions[i]
		before := game.Snapshot()
		if before.Phase != rummy.PhasePlaying {
			return nil, &ReplayError{
				StepIndex: int32(i),
				Reason:    "no_action_expected",
				Message:   "game is already finished; no further actions are allowed",
			}
		}
		if err := game.Apply(a.intent); err != nil {
			reason := "rejected"
			if rummy.KindOf(err) == rummy.KindNotYourTurn {
				reason = "out_of_turn"
			}
			return nil, &ReplayError{
				StepIndex: int32(i),
				Reason:    reason,
				Message:   err.Error(),
				Expected: &ExpectedState{
					CurrentPlayer: before.CurrentPlayerID,
					Turn:          before.Turn,
					Phase:         before.Phase.String(),
				},
			}
		}
		if onStep != nil {
			if err := onStep(i, a, game); err != nil {
				return nil, err
			}
		}
	}
	return game, nil
}

// GenerateReplayTape re-runs spec and records a viewer-filtered snapshot
// after the deal and after every action.
func GenerateReplayTape(spec GameSpec) (*ReplayTape, error) {
	tape := &ReplayTape{TapeVersion: TapeVersion, GameID: spec.GameID, Hero: spec.Hero}
	var seq uint64
	addEvent := func(step int, typ string, a *normalizedAction, snap rummy.Snapshot) error {
		view := snap.ForViewer(spec.Hero)
		msg, err := snapshotToStruct(view)
		if err != nil {
			return &ReplayError{StepIndex: int32(step), Reason: "encode_failed", Message: err.Error()}
		}
		raw, err := protojson.Marshal(msg)
		if err != nil {
			return &ReplayError{StepIndex: int32(step), Reason: "encode_failed", Message: err.Error()}
		}
		bin, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
		if err != nil {
			return &ReplayError{StepIndex: int32(step), Reason: "encode_failed", Message: err.Error()}
		}
		seq++
		ev := ReplayEvent{
			Type:        typ,
			Seq:         seq,
			Turn:        view.Turn,
			Value:       raw,
			EnvelopeB64: base64.StdEncoding.EncodeToString(bin),
		}
		if a != nil {
			ev.PlayerID = a.intent.PlayerID
			ev.Action = a.name
		}
		tape.Events = append(tape.Events, ev)
		return nil
	}

	_, err := run(spec, func(step int, a *normalizedAction, g *rummy.Game) error {
		snap := g.Snapshot()
		if a == nil {
			return addEvent(step, EventGameStart, nil, snap)
		}
		if err := addEvent(step, EventActionResult, a, snap); err != nil {
			return err
		}
		if snap.Phase == rummy.PhaseFinished {
			return addEvent(step, EventGameEnd, nil, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tape, nil
}
