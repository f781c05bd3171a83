package replay

import "encoding/json"

// WireReplayTape is the camelCase shape handed to browser clients.
// State carries the protojson snapshot; EnvelopeB64 the same snapshot as
// deterministic proto bytes for byte-level comparison.
type WireReplayTape struct {
	TapeVersion int               `json:"tapeVersion"`
	GameID      string            `json:"gameId"`
	Hero        string            `json:"hero,omitempty"`
	Steps       int               `json:"steps"`
	Events      []WireReplayEvent `json:"events"`
}

type WireReplayEvent struct {
	Type        string          `json:"type"`
	Seq         uint64          `json:"seq"`
	Turn        int             `json:"turn"`
	Player      string          `json:"player,omitempty"`
	Action      string          `json:"action,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
	EnvelopeB64 string          `json:"envelopeB64,omitempty"`
}

// ToWireReplayTape converts tape; Steps counts the action results only.
func ToWireReplayTape(tape *ReplayTape) *WireReplayTape {
	if tape == nil {
		return nil
	}
	out := &WireReplayTape{
		TapeVersion: tape.TapeVersion,
		GameID:      tape.GameID,
		Hero:        tape.Hero,
		Events:      make([]WireReplayEvent, len(tape.Events)),
	}
	for i, e := range tape.Events {
		if e.Type == EventActionResult {
			out.Steps++
		}
		out.Events[i] = WireReplayEvent{
			Type:        e.Type,
			Seq:         e.Seq,
			Turn:        e.Turn,
			Player:      e.PlayerID,
			Action:      e.Action,
			State:       e.Value,
			EnvelopeB64: e.EnvelopeB64,
		}
	}
	return out
}
