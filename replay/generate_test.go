package replay

import (
	"reflect"
	"testing"

	"rummy-lite/rummy"
	"rummy-lite/rummy/npc"
)

// recordAIGame plays a short all-AI game and returns the live game plus
// its recording.
func recordAIGame(t *testing.T, seed int64, maxSteps int) (*rummy.Game, GameSpec) {
	t.Helper()
	g, err := rummy.NewGame("REPLAY", rummy.Config{Seed: seed})
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder("REPLAY", g.Seed(), g.Config())
	m := npc.NewManager(nil, npc.ManagerConfig{Seed: seed})
	for _, d := range []rummy.Difficulty{rummy.DifficultyMedium, rummy.DifficultyHard} {
		inst, err := m.SpawnNPC(g, d)
		if err != nil {
			t.Fatal(err)
		}
		p, _ := g.Player(inst.PlayerID)
		rec.Seat(rummy.PlayerInfo{ID: p.ID, Name: p.Name, IsAI: true, Difficulty: p.Difficulty})
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	for step := 0; step < maxSteps && g.Phase() == rummy.PhasePlaying; step++ {
		snap := g.Snapshot()
		pid := snap.CurrentPlayerID
		for _, in := range m.OnTurn(pid, snap.ForViewer(pid)).Intents(pid) {
			if err := g.Apply(in); err != nil {
				t.Fatalf("apply %+v: %v", in, err)
			}
			rec.Record(in)
		}
	}
	return g, rec.Spec()
}

func TestRun_RederivesRecordedGame(t *testing.T) {
	live, spec := recordAIGame(t, 21, 60)
	replayed, err := Run(spec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(live.Snapshot(), replayed.Snapshot()) {
		t.Fatalf("replayed game diverged from the live game")
	}
}

func TestGenerateReplayTape_IsDeterministic(t *testing.T) {
	_, spec := recordAIGame(t, 5, 20)
	spec.Hero = spec.Players[0].ID

	tapeA, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape A failed: %v", err)
	}
	tapeB, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape B failed: %v", err)
	}
	if !reflect.DeepEqual(tapeA, tapeB) {
		t.Fatalf("expected deterministic replay tape for the same GameSpec")
	}
	if len(tapeA.Events) != len(spec.Actions)+1 && len(tapeA.Events) != len(spec.Actions)+2 {
		t.Fatalf("expected one event per action plus start, got %d for %d actions", len(tapeA.Events), len(spec.Actions))
	}
	if tapeA.Events[0].Type != EventGameStart {
		t.Fatalf("expected gameStart first, got %s", tapeA.Events[0].Type)
	}
	wire := ToWireReplayTape(tapeA)
	if len(wire.Events) != len(tapeA.Events) {
		t.Fatalf("wire tape lost events")
	}
	if wire.Steps != len(spec.Actions) {
		t.Fatalf("expected %d wire steps, got %d", len(spec.Actions), wire.Steps)
	}
	if first := wire.Events[1]; first.Player == "" || first.Action == "" || len(first.State) == 0 {
		t.Fatalf("action events must name player, action and state: %+v", first)
	}
}

func TestGenerateReplayTape_ReturnsReplayErrorOnOutOfTurnAction(t *testing.T) {
	spec := GameSpec{
		GameID:  "REPLAY",
		Seed:    42,
		Players: []PlayerSpec{{ID: "a"}, {ID: "b"}},
		Actions: []ActionSpec{
			{Player: "a", Type: "draw"},
			{Player: "a", Type: "draw"},
		},
	}
	_, err := GenerateReplayTape(spec)
	if err == nil {
		t.Fatalf("expected replay generation to fail on out-of-turn action")
	}
	replayErr, ok := err.(*ReplayError)
	if !ok {
		t.Fatalf("expected ReplayError type, got %T", err)
	}
	if replayErr.Reason != "out_of_turn" || replayErr.StepIndex != 1 {
		t.Fatalf("unexpected error: %+v", replayErr)
	}
	if replayErr.Expected == nil || replayErr.Expected.CurrentPlayer != "b" {
		t.Fatalf("expected replay error to name the player on turn, got %+v", replayErr.Expected)
	}
}

func TestRun_RejectsBadSpec(t *testing.T) {
	cases := []GameSpec{
		{GameID: "X", Players: []PlayerSpec{{ID: "a"}, {ID: "b"}}},
		{GameID: "X", Seed: 1, Players: []PlayerSpec{{ID: "a"}, {ID: "a"}}},
		{GameID: "X", Seed: 1, Players: []PlayerSpec{{ID: "a"}, {ID: "b"}}, Actions: []ActionSpec{{Player: "a", Type: "fold"}}},
		{GameID: "X", Seed: 1, Players: []PlayerSpec{{ID: "a"}}},
	}
	for i, spec := range cases {
		if _, err := Run(spec); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
