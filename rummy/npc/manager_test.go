package npc

import (
	"testing"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

func TestRegistry_DefaultPersonas(t *testing.T) {
	r := DefaultRegistry()
	for _, d := range []rummy.Difficulty{rummy.DifficultyEasy, rummy.DifficultyMedium, rummy.DifficultyHard} {
		if len(r.ByDifficulty(d)) == 0 {
			t.Fatalf("no built-in persona for %v", d)
		}
	}
	if err := r.LoadFromJSON([]byte(`[{"id":"x","name":"X","difficulty":"impossible"}]`)); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
	if r.Get("x") != nil {
		t.Fatalf("rejected persona must not be registered")
	}
}

func TestManager_SpawnNPC(t *testing.T) {
	m := NewManager(nil, ManagerConfig{Seed: 3})
	g, err := rummy.NewGame("ROOM01", rummy.Config{Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.AddPlayer(rummy.PlayerInfo{ID: "human", Name: "Human"}); err != nil {
		t.Fatal(err)
	}
	inst, err := m.SpawnNPC(g, rummy.DifficultyHard)
	if err != nil {
		t.Fatalf("SpawnNPC err: %v", err)
	}
	if !m.IsNPC(inst.PlayerID) || m.IsNPC("human") {
		t.Fatalf("IsNPC mismatch")
	}
	if m.GetThinkDelay(inst.PlayerID) != 0 {
		t.Fatalf("expected zero think delay with ThinkScale 0")
	}
	p, ok := g.Player(inst.PlayerID)
	if !ok || !p.IsAI || p.Difficulty != rummy.DifficultyHard {
		t.Fatalf("spawned player not seated as hard AI: %+v", p)
	}
	m.DespawnGame("ROOM01")
	if m.IsNPC(inst.PlayerID) {
		t.Fatalf("expected NPC removed with its game")
	}
}

func TestManager_ThinkDelayRange(t *testing.T) {
	m := NewManager(nil, ManagerConfig{ThinkScale: 1, Seed: 5})
	g, err := rummy.NewGame("ROOM02", rummy.Config{Seed: 5})
	if err != nil {
		t.Fatal(err)
	}
	inst, err := m.SpawnNPC(g, rummy.DifficultyEasy)
	if err != nil {
		t.Fatal(err)
	}
	lo := thinkRanges[rummy.DifficultyEasy][0]
	hi := lo + thinkRanges[rummy.DifficultyEasy][1]
	tempo := inst.Persona.tempo()
	d := inst.ThinkDelay
	if float64(d) < float64(lo)*tempo-1 || float64(d) > float64(hi)*tempo+1 {
		t.Fatalf("think delay %v outside [%v, %v] x %.2f", d, lo, hi, tempo)
	}
}

func TestManager_CandidateSetBound(t *testing.T) {
	var hand []tile.Tile
	for n := 1; n <= 10; n++ {
		hand = append(hand, tile.New(n-1, tile.Red, n))
	}
	if all := rummy.FindAllPossibleSets(hand, 0); len(all) <= 5 {
		t.Fatalf("hand should yield more than 5 sets, got %d", len(all))
	}
	for _, cacheSize := range []int{0, 16} {
		m := NewManager(nil, ManagerConfig{Seed: 1, SetCacheSize: cacheSize, MaxCandidateSets: 5})
		if got := len(m.finder(hand)); got != 5 {
			t.Fatalf("cache %d: expected 5 sets, got %d", cacheSize, got)
		}
	}
	m := NewManager(nil, ManagerConfig{Seed: 1})
	if got, want := len(m.finder(hand)), len(rummy.FindAllPossibleSets(hand, 0)); got != want {
		t.Fatalf("unbounded config: expected %d sets, got %d", want, got)
	}
}

// Four AI players run a whole game through the state machine; every
// decision must be accepted.
func TestManager_AllAIGameCompletes(t *testing.T) {
	m := NewManager(nil, ManagerConfig{Seed: 11, SetCacheSize: 256})
	g, err := rummy.NewGame("ROOM03", rummy.Config{Seed: 11})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []rummy.Difficulty{rummy.DifficultyEasy, rummy.DifficultyMedium, rummy.DifficultyHard, rummy.DifficultyHard} {
		if _, err := m.SpawnNPC(g, d); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}

	for step := 0; g.Phase() == rummy.PhasePlaying; step++ {
		if step > 1000 {
			t.Fatalf("game did not finish")
		}
		snap := g.Snapshot()
		pid := snap.CurrentPlayerID
		d := m.OnTurn(pid, snap.ForViewer(pid))
		for _, in := range d.Intents(pid) {
			if err := g.Apply(in); err != nil {
				t.Fatalf("step %d: %v %+v rejected: %v", step, d.Kind, d, err)
			}
		}
	}
	snap := g.Snapshot()
	if snap.Winner == "" || len(snap.FinalScores) != 4 {
		t.Fatalf("expected finished game with winner, got %q %v", snap.Winner, snap.FinalScores)
	}
	if !rummy.ValidateTableState(toLists(snap.Table)) {
		t.Fatalf("final table invalid")
	}
}

func toLists(sets [][]tile.Tile) []tile.List {
	out := make([]tile.List, len(sets))
	for i, s := range sets {
		out[i] = s
	}
	return out
}
