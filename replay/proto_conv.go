package replay

import (
	"google.golang.org/protobuf/types/known/structpb"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

func tilesToValues(tiles []tile.Tile) []any {
	out := make([]any, len(tiles))
	for i, t := range tiles {
		out[i] = map[string]any{
			"id":   t.ID,
			"face": t.Face(),
		}
	}
	return out
}

func setsToValues(sets [][]tile.Tile) []any {
	out := make([]any, len(sets))
	for i, s := range sets {
		out[i] = tilesToValues(s)
	}
	return out
}

// snapshotToStruct flattens a (viewer-filtered) snapshot into a protobuf Struct.
func snapshotToStruct(s rummy.Snapshot) (*structpb.Struct, error) {
	players := make([]any, len(s.Players))
	for i, p := range s.Players {
		pm := map[string]any{
			"id":               p.ID,
			"name":             p.Name,
			"is_ai":            p.IsAI,
			"is_host":          p.IsHost,
			"has_initial_meld": p.HasInitialMeld,
			"hand_count":       p.HandCount,
		}
		if p.Hand != nil {
			pm["hand"] = tilesToValues(p.Hand)
		}
		players[i] = pm
	}
	m := map[string]any{
		"game_id":        s.ID,
		"phase":          s.Phase.String(),
		"turn":           s.Turn,
		"current_player": s.CurrentPlayerID,
		"pool_count":     s.PoolCount,
		"table":          setsToValues(s.Table),
		"players":        players,
		"manipulating":   s.ManipulationInProgress,
	}
	if s.Pending != nil {
		m["pending"] = setsToValues(s.Pending)
	}
	if s.Winner != "" {
		m["winner"] = s.Winner
	}
	if s.FinalScores != nil {
		scores := make(map[string]any, len(s.FinalScores))
		for id, v := range s.FinalScores {
			scores[id] = v
		}
		m["final_scores"] = scores
	}
	return structpb.NewStruct(m)
}
