package rummy

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"rummy-lite/tile"
)

// faceID returns the id of a numbered tile in tile.NewDeck; copyIdx is 0 or 1.
func faceID(t *testing.T, face string, copyIdx int) int {
	t.Helper()
	if face == "JK" {
		return 104 + copyIdx
	}
	tl, err := tile.ParseFace(0, face)
	if err != nil {
		t.Fatalf("ParseFace(%q): %v", face, err)
	}
	colorIdx := -1
	for i, c := range tile.Colors {
		if c == tl.Color {
			colorIdx = i
		}
	}
	return copyIdx*52 + (tl.Number-1)*4 + colorIdx
}

func ids(t *testing.T, faces ...string) []int {
	t.Helper()
	out := make([]int, len(faces))
	for i, f := range faces {
		out[i] = faceID(t, f, 0)
	}
	return out
}

// riggedDeck orders a full deck so that seat p is dealt hands[p] first,
// topped up with arbitrary leftovers.
func riggedDeck(handSize int, hands ...[]int) []tile.Tile {
	deck := tile.NewDeck()
	used := map[int]bool{}
	for _, h := range hands {
		for _, id := range h {
			used[id] = true
		}
	}
	var rest []tile.Tile
	for _, tl := range deck {
		if !used[tl.ID] {
			rest = append(rest, tl)
		}
	}
	full := make([][]tile.Tile, len(hands))
	for p, h := range hands {
		for _, id := range h {
			full[p] = append(full[p], deck[id])
		}
		for len(full[p]) < handSize {
			full[p] = append(full[p], rest[0])
			rest = rest[1:]
		}
	}
	var dealt []tile.Tile
	for r := 0; r < handSize; r++ {
		for p := range full {
			dealt = append(dealt, full[p][r])
		}
	}
	out := append([]tile.Tile{}, rest...)
	for i := len(dealt) - 1; i >= 0; i-- {
		out = append(out, dealt[i])
	}
	return out
}

func newStartedGame(t *testing.T, players int, cfg Config) *Game {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 7
	}
	g, err := NewGame("ROOM01", cfg)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	for i := 0; i < players; i++ {
		if err := g.AddPlayer(PlayerInfo{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("player %d", i)}); err != nil {
			t.Fatalf("AddPlayer err: %v", err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	return g
}

func assertConservation(t *testing.T, g *Game) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := map[int]bool{}
	add := func(l tile.List) {
		for _, tl := range l {
			if seen[tl.ID] {
				t.Fatalf("tile %v appears twice", tl)
			}
			seen[tl.ID] = true
		}
	}
	add(g.st.pool)
	for _, p := range g.st.players {
		add(p.hand)
	}
	for _, s := range g.st.table {
		add(s)
	}
	if len(seen) != tile.DeckSize {
		t.Fatalf("expected %d tiles, found %d", tile.DeckSize, len(seen))
	}
}

func TestStart_DealsHands(t *testing.T) {
	g := newStartedGame(t, 3, Config{})
	snap := g.Snapshot()
	if snap.Phase != PhasePlaying {
		t.Fatalf("expected playing, got %v", snap.Phase)
	}
	for _, p := range snap.Players {
		if p.HandCount != DefaultHandSize {
			t.Fatalf("expected %d tiles for %s, got %d", DefaultHandSize, p.ID, p.HandCount)
		}
	}
	if snap.PoolCount != tile.DeckSize-3*DefaultHandSize {
		t.Fatalf("unexpected pool size %d", snap.PoolCount)
	}
	if snap.CurrentPlayerID != "p0" {
		t.Fatalf("expected p0 to start, got %s", snap.CurrentPlayerID)
	}
	assertConservation(t, g)

	if err := g.Start(); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Fatalf("expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestStart_SameSeedSameDeal(t *testing.T) {
	a := newStartedGame(t, 2, Config{Seed: 99})
	b := newStartedGame(t, 2, Config{Seed: 99})
	ha, _ := a.Snapshot().Self("p0")
	hb, _ := b.Snapshot().Self("p0")
	for i := range ha.Hand {
		if ha.Hand[i] != hb.Hand[i] {
			t.Fatalf("hands diverge at %d: %v vs %v", i, ha.Hand[i], hb.Hand[i])
		}
	}
}

func TestStart_NotEnoughPlayers(t *testing.T) {
	g, err := NewGame("ROOM01", Config{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.AddPlayer(PlayerInfo{ID: "p0"}); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
	if g.Phase() != PhaseWaiting {
		t.Fatalf("failed start must not change phase")
	}
}

func TestAddPlayer_RoomFullAndStarted(t *testing.T) {
	g, err := NewGame("ROOM01", Config{MaxPlayers: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if err := g.AddPlayer(PlayerInfo{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.AddPlayer(PlayerInfo{ID: "c"}); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if !g.IsHost("a") || g.IsHost("b") {
		t.Fatalf("expected first player to be host")
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	if err := g.RemovePlayer("b"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddPlayer(PlayerInfo{ID: "c"}); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Fatalf("expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestDraw_TurnMonotonicity(t *testing.T) {
	g := newStartedGame(t, 3, Config{})
	for i := 0; i < 6; i++ {
		before := g.Snapshot()
		if err := g.Draw(before.CurrentPlayerID); err != nil {
			t.Fatalf("draw %d err: %v", i, err)
		}
		after := g.Snapshot()
		if after.CurrentPlayerIndex != (before.CurrentPlayerIndex+1)%3 {
			t.Fatalf("expected index %d, got %d", (before.CurrentPlayerIndex+1)%3, after.CurrentPlayerIndex)
		}
		if after.Turn != before.Turn+1 {
			t.Fatalf("expected turn %d, got %d", before.Turn+1, after.Turn)
		}
		if after.LastAction == nil || after.LastAction.Type != ActionDraw {
			t.Fatalf("expected last action draw, got %+v", after.LastAction)
		}
	}
	assertConservation(t, g)

	before := g.Snapshot()
	other := before.Players[(before.CurrentPlayerIndex+1)%3].ID
	if err := g.Draw(other); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if err := g.Draw("nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if g.Snapshot().CurrentPlayerIndex != before.CurrentPlayerIndex {
		t.Fatalf("failed draw moved the turn")
	}
}

func TestDraw_ConcurrentOnlyOneWins(t *testing.T) {
	g := newStartedGame(t, 2, Config{})
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Draw("p0")
		}(i)
	}
	wg.Wait()
	ok, notTurn := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotYourTurn):
			notTurn++
		}
	}
	if ok != 1 || notTurn != 1 {
		t.Fatalf("expected one success and one NotYourTurn, got %v", errs)
	}
	assertConservation(t, g)
}

func TestPlaySet_MeldFloor(t *testing.T) {
	hand := ids(t, "R1", "R2", "R3", "R10", "R11", "R12")
	g := newStartedGame(t, 2, Config{DeckOverride: riggedDeck(DefaultHandSize, hand)})

	err := g.PlaySet("p0", ids(t, "R1", "R2", "R3"))
	if !errors.Is(err, ErrMeldBelowMinimum) {
		t.Fatalf("expected ErrMeldBelowMinimum, got %v", err)
	}
	if KindOf(err) != KindMeldBelowMinimum {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
	snap := g.Snapshot()
	if p, _ := snap.Self("p0"); p.HandCount != DefaultHandSize || p.HasInitialMeld {
		t.Fatalf("rejected meld was partially applied: %+v", p)
	}
	if len(snap.Table) != 0 || snap.CurrentPlayerIndex != 0 {
		t.Fatalf("rejected meld changed table or turn")
	}

	if err := g.PlaySet("p0", ids(t, "R10", "R11", "R12")); err != nil {
		t.Fatalf("meld err: %v", err)
	}
	snap = g.Snapshot()
	p, _ := snap.Self("p0")
	if !p.HasInitialMeld || p.HandCount != DefaultHandSize-3 {
		t.Fatalf("unexpected player after meld: %+v", p)
	}
	if len(snap.Table) != 1 || snap.CurrentPlayerIndex != 1 {
		t.Fatalf("expected one table set and turn 1, got %d sets, turn %d", len(snap.Table), snap.CurrentPlayerIndex)
	}
	assertConservation(t, g)

	// After meld there is no floor.
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}
	if err := g.PlaySet("p0", ids(t, "R1", "R2", "R3")); err != nil {
		t.Fatalf("post-meld small set err: %v", err)
	}
}

func TestPlaySet_RejectsBadSelection(t *testing.T) {
	hand := ids(t, "R10", "R11", "R12", "B5")
	g := newStartedGame(t, 2, Config{DeckOverride: riggedDeck(DefaultHandSize, hand)})

	dup := []int{hand[0], hand[0], hand[1]}
	if err := g.PlaySet("p0", dup); !errors.Is(err, ErrInvalidTileSelection) {
		t.Fatalf("expected ErrInvalidTileSelection for duplicate, got %v", err)
	}
	missing := []int{hand[0], hand[1], faceID(t, "K13", 1)}
	if err := g.PlaySet("p0", missing); !errors.Is(err, ErrInvalidTileSelection) {
		t.Fatalf("expected ErrInvalidTileSelection for missing tile, got %v", err)
	}
	if err := g.PlaySet("p0", []int{hand[0], hand[1], hand[3]}); !errors.Is(err, ErrInvalidSet) {
		t.Fatalf("expected ErrInvalidSet, got %v", err)
	}
	if err := g.PlaySet("p1", hand[:3]); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	assertConservation(t, g)
}

func TestPlaySet_EmptyHandFinishes(t *testing.T) {
	hand := ids(t, "R10", "R11", "R12")
	g := newStartedGame(t, 2, Config{HandSize: 3, DeckOverride: riggedDeck(3, hand)})
	if err := g.PlaySet("p0", hand); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.Phase != PhaseFinished || snap.Winner != "p0" {
		t.Fatalf("expected p0 to win, got phase %v winner %q", snap.Phase, snap.Winner)
	}
	loser := snap.FinalScores["p1"]
	if loser >= 0 || snap.FinalScores["p0"] != -loser {
		t.Fatalf("winner must collect the loser's penalty, got %v", snap.FinalScores)
	}
	if err := g.Draw("p1"); !errors.Is(err, ErrGameNotPlaying) {
		t.Fatalf("expected ErrGameNotPlaying, got %v", err)
	}
}

func TestManipulation_AddTileToTableSet(t *testing.T) {
	hand := ids(t, "R10", "R11", "R12", "R13")
	g := newStartedGame(t, 2, Config{DeckOverride: riggedDeck(DefaultHandSize, hand)})

	if err := g.StartManipulation("p0"); !errors.Is(err, ErrMeldRequired) {
		t.Fatalf("expected ErrMeldRequired, got %v", err)
	}
	if err := g.PlaySet("p0", hand[:3]); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}

	if err := g.MutateManipulation("p0", [][]int{hand}); !errors.Is(err, ErrNoManipulationInProgress) {
		t.Fatalf("expected ErrNoManipulationInProgress, got %v", err)
	}
	if err := g.StartManipulation("p0"); err != nil {
		t.Fatal(err)
	}
	if err := g.StartManipulation("p0"); !errors.Is(err, ErrManipulationInProgress) {
		t.Fatalf("expected ErrManipulationInProgress, got %v", err)
	}
	if err := g.Draw("p0"); !errors.Is(err, ErrManipulationInProgress) {
		t.Fatalf("expected draw blocked during manipulation, got %v", err)
	}
	// Transiently invalid layouts are accepted.
	if err := g.MutateManipulation("p0", [][]int{hand[:2], hand[2:]}); err != nil {
		t.Fatalf("mutate err: %v", err)
	}
	if err := g.MutateManipulation("p0", [][]int{hand}); err != nil {
		t.Fatalf("mutate err: %v", err)
	}

	// pending layout is visible to the actor only
	snap := g.Snapshot()
	if len(snap.ForViewer("p0").Pending) != 1 || snap.ForViewer("p1").Pending != nil {
		t.Fatalf("pending layout visibility wrong")
	}

	if err := g.ConfirmManipulation("p0"); err != nil {
		t.Fatalf("confirm err: %v", err)
	}
	snap = g.Snapshot()
	if snap.ManipulationInProgress || len(snap.Table) != 1 || len(snap.Table[0]) != 4 {
		t.Fatalf("unexpected table after confirm: %+v", snap.Table)
	}
	if p, _ := snap.Self("p0"); p.HandCount != DefaultHandSize-4 {
		t.Fatalf("expected hand %d, got %d", DefaultHandSize-4, p.HandCount)
	}
	if snap.CurrentPlayerIndex != 1 {
		t.Fatalf("confirm must advance turn")
	}
	assertConservation(t, g)
}

func TestManipulation_RejectsInvalidCommit(t *testing.T) {
	hand := ids(t, "R10", "R11", "R12", "R13", "B1")
	g := newStartedGame(t, 2, Config{DeckOverride: riggedDeck(DefaultHandSize, hand)})
	if err := g.PlaySet("p0", hand[:3]); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}
	if err := g.StartManipulation("p0"); err != nil {
		t.Fatal(err)
	}

	// dropping a table tile
	if err := g.MutateManipulation("p0", [][]int{{hand[1], hand[2], hand[3]}}); err != nil {
		t.Fatal(err)
	}
	if err := g.ConfirmManipulation("p0"); !errors.Is(err, ErrInvalidTableConfiguration) {
		t.Fatalf("expected ErrInvalidTableConfiguration for lost tile, got %v", err)
	}
	// invalid set
	if err := g.MutateManipulation("p0", [][]int{{hand[0], hand[1], hand[2], hand[4]}}); err != nil {
		t.Fatal(err)
	}
	if err := g.ConfirmManipulation("p0"); !errors.Is(err, ErrInvalidTableConfiguration) {
		t.Fatalf("expected ErrInvalidTableConfiguration for invalid set, got %v", err)
	}
	// no tile from hand
	if err := g.MutateManipulation("p0", [][]int{hand[:3]}); err != nil {
		t.Fatal(err)
	}
	if err := g.ConfirmManipulation("p0"); !errors.Is(err, ErrInvalidTableConfiguration) {
		t.Fatalf("expected ErrInvalidTableConfiguration for empty contribution, got %v", err)
	}
	// unknown tile
	if err := g.MutateManipulation("p0", [][]int{{hand[0], faceID(t, "K7", 1)}}); !errors.Is(err, ErrInvalidTileSelection) {
		t.Fatalf("expected ErrInvalidTileSelection, got %v", err)
	}

	if err := g.CancelManipulation("p0"); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.ManipulationInProgress || snap.Pending != nil {
		t.Fatalf("cancel must close manipulation")
	}
	if snap.CurrentPlayerIndex != 0 {
		t.Fatalf("cancel must not advance turn")
	}
	if len(snap.Table) != 1 || len(snap.Table[0]) != 3 {
		t.Fatalf("cancel must leave table untouched: %+v", snap.Table)
	}
	// cancel again is a no-op
	if err := g.CancelManipulation("p0"); err != nil {
		t.Fatalf("expected no-op cancel, got %v", err)
	}
	assertConservation(t, g)
}

func TestManipulate_AtomicStep(t *testing.T) {
	hand := ids(t, "R10", "R11", "R12", "R13")
	g := newStartedGame(t, 2, Config{DeckOverride: riggedDeck(DefaultHandSize, hand)})
	if err := g.PlaySet("p0", hand[:3]); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}
	if err := g.Manipulate("p0", [][]int{hand[1:]}); !errors.Is(err, ErrInvalidTableConfiguration) {
		t.Fatalf("expected ErrInvalidTableConfiguration, got %v", err)
	}
	if g.Snapshot().ManipulationInProgress {
		t.Fatalf("failed Manipulate must leave no open manipulation")
	}
	if err := g.Manipulate("p0", [][]int{hand}); err != nil {
		t.Fatal(err)
	}
	if g.Snapshot().CurrentPlayerIndex != 1 {
		t.Fatalf("expected turn to pass")
	}
}

func TestEndConditions_PoolExhausted(t *testing.T) {
	g := newStartedGame(t, 2, Config{})
	for g.Phase() == PhasePlaying {
		if err := g.Draw(g.CurrentPlayerID()); err != nil {
			t.Fatalf("draw err: %v", err)
		}
	}
	snap := g.Snapshot()
	if snap.PoolCount != 0 {
		t.Fatalf("expected empty pool, got %d", snap.PoolCount)
	}
	// 78 draws split evenly; the tie goes to the first seat.
	if snap.Winner != "p0" {
		t.Fatalf("expected p0 to win tie, got %q", snap.Winner)
	}
	if len(snap.FinalScores) != 2 {
		t.Fatalf("expected final scores, got %v", snap.FinalScores)
	}
	if !g.CheckEndConditions() {
		t.Fatalf("expected finished")
	}
	if again := g.Snapshot(); again.Winner != snap.Winner || again.Turn != snap.Turn {
		t.Fatalf("CheckEndConditions must be idempotent")
	}
	assertConservation(t, g)
}

// Pool exhaustion goes to the smallest hand and scores that seat as the
// winner even when its tiles are worth more.
func TestEndConditions_PoolExhaustedScoresFewestTiles(t *testing.T) {
	var heavy, light []int
	for n := 1; n <= tile.MaxNumber; n++ {
		for ci, c := range "RBYK" {
			for cp := 0; cp < 2; cp++ {
				id := faceID(t, fmt.Sprintf("%c%d", c, n), cp)
				switch {
				case n >= 8, n == 7 && cp == 0 && ci < 2:
					heavy = append(heavy, id)
				case n <= 6, n == 7 && (cp == 0 || ci < 2):
					light = append(light, id)
				}
			}
		}
	}
	heavy = append(heavy, faceID(t, "JK", 0), faceID(t, "JK", 1))
	const handSize = 52
	g := newStartedGame(t, 2, Config{MaxPlayers: 2, HandSize: handSize, DeckOverride: riggedDeck(handSize, heavy, light)})
	if n := g.Snapshot().PoolCount; n != 2 {
		t.Fatalf("expected 2 tiles in the pool, got %d", n)
	}

	if err := g.PlaySet("p0", ids(t, "R11", "R12", "R13")); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p0"); err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	if snap.Phase != PhaseFinished || snap.Winner != "p0" {
		t.Fatalf("expected p0 to win on fewest tiles, got %v %q", snap.Phase, snap.Winner)
	}
	p0, _ := snap.Self("p0")
	p1, _ := snap.Self("p1")
	if HandPenalty(p0.Hand) <= HandPenalty(p1.Hand) {
		t.Fatalf("rigged hands should leave the winner with the heavier hand")
	}
	want := map[string]int{"p0": HandPenalty(p1.Hand), "p1": -HandPenalty(p1.Hand)}
	if snap.FinalScores["p0"] != want["p0"] || snap.FinalScores["p1"] != want["p1"] {
		t.Fatalf("expected scores %v, got %v", want, snap.FinalScores)
	}
	assertConservation(t, g)
}

func TestRemovePlayer_DuringPlay(t *testing.T) {
	g := newStartedGame(t, 3, Config{})
	if err := g.Draw("p0"); err != nil {
		t.Fatal(err)
	}
	// p1 holds the turn and leaves; p2 inherits the seat index.
	if err := g.RemovePlayer("p1"); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.CurrentPlayerID != "p2" {
		t.Fatalf("expected p2 to act, got %s", snap.CurrentPlayerID)
	}
	assertConservation(t, g)

	if err := g.RemovePlayer("p0"); err != nil {
		t.Fatal(err)
	}
	snap = g.Snapshot()
	if snap.Phase != PhaseFinished || snap.Winner != "p2" {
		t.Fatalf("expected p2 to win by default, got %v %q", snap.Phase, snap.Winner)
	}
	if !g.IsHost("p2") {
		t.Fatalf("expected host to pass to p2")
	}
	if err := g.RemovePlayer("p0"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	assertConservation(t, g)
}

func TestRemovePlayer_HostSkipsAISeats(t *testing.T) {
	g, err := NewGame("ROOM01", Config{Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	for _, info := range []PlayerInfo{
		{ID: "h1", Name: "first"},
		{ID: "ai", Name: "bot", IsAI: true, Difficulty: DifficultyEasy},
		{ID: "h2", Name: "second"},
	} {
		if err := g.AddPlayer(info); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.RemovePlayer("h1"); err != nil {
		t.Fatal(err)
	}
	if g.IsHost("ai") || !g.IsHost("h2") {
		t.Fatalf("host must pass to the remaining human")
	}
	if err := g.RemovePlayer("h2"); err != nil {
		t.Fatal(err)
	}
	if !g.IsHost("ai") {
		t.Fatalf("with only AIs left the first seat hosts")
	}
}

func TestRemovePlayer_BeforeCurrentShiftsIndex(t *testing.T) {
	g := newStartedGame(t, 3, Config{})
	if err := g.Draw("p0"); err != nil {
		t.Fatal(err)
	}
	if err := g.Draw("p1"); err != nil {
		t.Fatal(err)
	}
	if err := g.RemovePlayer("p0"); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.CurrentPlayerID != "p2" || snap.CurrentPlayerIndex != 1 {
		t.Fatalf("expected p2 at index 1, got %s at %d", snap.CurrentPlayerID, snap.CurrentPlayerIndex)
	}
}

func TestSnapshot_ForViewerHidesOpponents(t *testing.T) {
	g := newStartedGame(t, 2, Config{})
	view := g.Snapshot().ForViewer("p1")
	for _, p := range view.Players {
		if p.ID == "p1" && len(p.Hand) != DefaultHandSize {
			t.Fatalf("viewer must see own hand")
		}
		if p.ID != "p1" && p.Hand != nil {
			t.Fatalf("viewer must not see %s's hand", p.ID)
		}
		if p.HandCount != DefaultHandSize {
			t.Fatalf("hand counts stay public")
		}
	}
	for _, p := range g.Snapshot().ForViewer("").Players {
		if p.Hand != nil {
			t.Fatalf("public view leaked a hand")
		}
	}
}

func TestSnapshot_ForViewerHidesDrawnTile(t *testing.T) {
	g := newStartedGame(t, 2, Config{})
	if err := g.Draw("p0"); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.LastAction == nil || len(snap.LastAction.TileIDs) != 1 {
		t.Fatalf("expected the draw to be recorded, got %+v", snap.LastAction)
	}
	if own := snap.ForViewer("p0").LastAction; len(own.TileIDs) != 1 {
		t.Fatalf("drawer should see the drawn tile, got %+v", own)
	}
	for _, viewer := range []string{"p1", ""} {
		last := snap.ForViewer(viewer).LastAction
		if last == nil || last.Type != ActionDraw || last.PlayerID != "p0" {
			t.Fatalf("viewer %q should still see who drew, got %+v", viewer, last)
		}
		if last.TileIDs != nil {
			t.Fatalf("viewer %q saw the drawn tile %v", viewer, last.TileIDs)
		}
	}
	if len(snap.LastAction.TileIDs) != 1 {
		t.Fatalf("redaction must not touch the source snapshot")
	}
}

func TestApply_Dispatch(t *testing.T) {
	g := newStartedGame(t, 2, Config{})
	if err := g.Apply(Intent{PlayerID: "p0", Action: ActionDraw}); err != nil {
		t.Fatal(err)
	}
	if err := g.Apply(Intent{PlayerID: "p1", Action: ActionNone}); err == nil {
		t.Fatalf("expected error for unsupported action")
	}
	if a, err := ParseAction("play_set"); err != nil || a != ActionPlaySet {
		t.Fatalf("ParseAction: %v %v", a, err)
	}
}
