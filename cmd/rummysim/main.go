// Command rummysim plays all-AI games headlessly and re-derives each one
// from its recorded spec. It is the quickest way to soak the engine and the
// AI tiers together.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"rummy-lite/replay"
	"rummy-lite/rummy"
	"rummy-lite/rummy/npc"
)

var (
	green  = color.New(color.FgHiGreen).SprintfFunc()
	red    = color.New(color.FgHiRed).SprintfFunc()
	yellow = color.New(color.FgHiYellow).SprintfFunc()
	bold   = color.New(color.Bold).SprintfFunc()
)

type result struct {
	gameID   string
	turns    int
	winner   string
	names    map[string]string
	scores   map[string]int
	tiers    map[string]rummy.Difficulty
	actions  int
	elapsed  time.Duration
	verified bool
}

func main() {
	games := flag.Int("games", 10, "number of games to play")
	players := flag.String("players", "easy,medium,hard", "comma separated AI tiers, one per seat")
	seed := flag.Int64("seed", 1, "base seed; game i uses seed+i")
	maxTurns := flag.Int("max-turns", 2000, "abort a game after this many turns")
	maxSets := flag.Int("max-sets", rummy.DefaultMaxCandidateSets, "cap on candidate sets per AI search")
	verify := flag.Bool("verify", true, "re-derive every game from its recorded spec")
	verbose := flag.Bool("v", false, "keep engine and NPC logs")
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	tiers, err := parseTiers(*players)
	if err != nil {
		fmt.Fprintln(os.Stderr, red("rummysim: %v", err))
		os.Exit(2)
	}

	mgr := npc.NewManager(npc.DefaultRegistry(), npc.ManagerConfig{
		ThinkScale:       0,
		SetCacheSize:     4096,
		MaxCandidateSets: *maxSets,
		Seed:             *seed,
	})

	wins := make(map[rummy.Difficulty]int)
	var totalTurns, totalActions, failures int
	start := time.Now()
	for i := 0; i < *games; i++ {
		res, err := playOne(mgr, fmt.Sprintf("sim-%d", i+1), *seed+int64(i), tiers, *maxTurns, *verify)
		if err != nil {
			failures++
			fmt.Println(red("%-8s FAILED  %v", fmt.Sprintf("sim-%d", i+1), err))
			continue
		}
		totalTurns += res.turns
		totalActions += res.actions
		wins[res.tiers[res.winner]]++
		printResult(res)
	}

	fmt.Println()
	fmt.Println(bold("%s games in %s, %s turns, %s committed intents",
		humanize.Comma(int64(*games)),
		time.Since(start).Round(time.Millisecond),
		humanize.Comma(int64(totalTurns)),
		humanize.Comma(int64(totalActions))))
	for _, d := range []rummy.Difficulty{rummy.DifficultyEasy, rummy.DifficultyMedium, rummy.DifficultyHard} {
		if n := wins[d]; n > 0 {
			fmt.Printf("  %-6s %s wins\n", d, humanize.Comma(int64(n)))
		}
	}
	if failures > 0 {
		fmt.Println(red("%d game(s) failed", failures))
		os.Exit(1)
	}
}

func parseTiers(raw string) ([]rummy.Difficulty, error) {
	var out []rummy.Difficulty
	for _, part := range strings.Split(raw, ",") {
		d, err := rummy.ParseDifficulty(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if len(out) < rummy.DefaultMinPlayers || len(out) > rummy.DefaultMaxPlayers {
		return nil, fmt.Errorf("need %d to %d seats, got %d", rummy.DefaultMinPlayers, rummy.DefaultMaxPlayers, len(out))
	}
	return out, nil
}

func playOne(mgr *npc.Manager, gameID string, seed int64, tiers []rummy.Difficulty, maxTurns int, verify bool) (*result, error) {
	cfg := rummy.DefaultConfig()
	cfg.Seed = seed
	game, err := rummy.NewGame(gameID, cfg)
	if err != nil {
		return nil, err
	}
	defer mgr.DespawnGame(gameID)

	rec := replay.NewRecorder(gameID, game.Seed(), game.Config())
	res := &result{
		gameID: gameID,
		names:  make(map[string]string),
		tiers:  make(map[string]rummy.Difficulty),
	}
	for _, d := range tiers {
		inst, err := mgr.SpawnNPC(game, d)
		if err != nil {
			return nil, err
		}
		rec.Seat(rummy.PlayerInfo{ID: inst.PlayerID, Name: inst.Persona.Name, IsAI: true, Difficulty: d})
		res.names[inst.PlayerID] = inst.Persona.Name
		res.tiers[inst.PlayerID] = d
	}

	began := time.Now()
	if err := game.Start(); err != nil {
		return nil, err
	}
	for game.Phase() == rummy.PhasePlaying {
		if game.Turn() > maxTurns {
			return nil, fmt.Errorf("no winner after %d turns", maxTurns)
		}
		playerID := game.CurrentPlayerID()
		decision := mgr.OnTurn(playerID, game.Snapshot().ForViewer(playerID))
		if err := apply(game, playerID, decision); err != nil {
			decision = npc.Decision{Kind: npc.DecisionDraw, Reason: "fallback"}
			if err := game.Draw(playerID); err != nil {
				return nil, fmt.Errorf("turn %d: %s cannot draw: %w", game.Turn(), playerID, err)
			}
		}
		for _, in := range decision.Intents(playerID) {
			rec.Record(in)
			res.actions++
		}
	}
	res.elapsed = time.Since(began)

	snap := game.Snapshot()
	res.turns = snap.Turn
	res.winner = snap.Winner
	res.scores = snap.FinalScores

	if verify {
		replayed, err := replay.Run(rec.Spec())
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		rs := replayed.Snapshot()
		if rs.Winner != snap.Winner || !sameScores(rs.FinalScores, snap.FinalScores) {
			return nil, fmt.Errorf("replay diverged: winner %s vs %s", rs.Winner, snap.Winner)
		}
		res.verified = true
	}
	return res, nil
}

func apply(game *rummy.Game, playerID string, d npc.Decision) error {
	switch d.Kind {
	case npc.DecisionPlaySet:
		return game.PlaySet(playerID, d.TileIDs)
	case npc.DecisionManipulate:
		return game.Manipulate(playerID, d.Table)
	}
	return game.Draw(playerID)
}

func sameScores(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func printResult(res *result) {
	ids := make([]string, 0, len(res.scores))
	for id := range res.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return res.scores[ids[i]] > res.scores[ids[j]] })

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		label := fmt.Sprintf("%s(%s) %+d", res.names[id], res.tiers[id], res.scores[id])
		if id == res.winner {
			label = green("%s", label)
		}
		parts = append(parts, label)
	}
	status := yellow("unverified")
	if res.verified {
		status = green("verified")
	}
	fmt.Printf("%-8s %4d turns %8s  %s  %s\n",
		res.gameID, res.turns, res.elapsed.Round(time.Microsecond), status, strings.Join(parts, "  "))
}
