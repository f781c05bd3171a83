package room

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"rummy-lite/rummy"
	"rummy-lite/rummy/npc"
)

// --- NPC support ---

func turnKey(snap rummy.Snapshot) string {
	return fmt.Sprintf("%d/%s", snap.Turn, snap.CurrentPlayerID)
}

// isNPC checks whether a playerID belongs to an NPC (caller must hold r.mu).
func (r *Room) isNPC(playerID string) bool {
	if r.npcManager == nil {
		return false
	}
	m := r.members[playerID]
	return m != nil && m.IsAI && r.npcManager.IsNPC(playerID)
}

// maybeScheduleNPC starts the think timer when the turn belongs to an NPC.
// The decision is made and submitted outside the actor so human intents
// are never queued behind NPC thinking.
func (r *Room) maybeScheduleNPC() {
	snap := r.game.Snapshot()
	if snap.Phase != rummy.PhasePlaying || !r.isNPC(snap.CurrentPlayerID) {
		return
	}
	key := turnKey(snap)
	if key == r.npcScheduled {
		return
	}
	r.npcScheduled = key

	playerID := snap.CurrentPlayerID
	view := snap.ForViewer(playerID)
	delay := r.npcManager.GetThinkDelay(playerID)
	done := r.done

	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-done:
				return
			}
		}
		start := time.Now()
		decision := r.npcManager.OnTurn(playerID, view)
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			log.Printf("[Room %s] NPC %s decided in %s", r.Code, playerID, humanize.FtoaWithDigits(elapsed.Seconds(), 2)+"s")
		}
		// Inject the decision back into the actor queue.
		reply := r.SubmitEvent(Event{
			Type:     EventNPCMove,
			PlayerID: playerID,
			Decision: decision,
			TurnKey:  key,
		})
		if reply.Err != nil && !errors.Is(reply.Err, ErrRoomClosed) {
			log.Printf("[Room %s] NPC %s move failed: %v", r.Code, playerID, reply.Err)
		}
	}()
}

// handleNPCMove applies a decision made for TurnKey. Decisions for a turn
// that has already passed are dropped. A rejected play or manipulation
// falls back to drawing.
func (r *Room) handleNPCMove(e Event) error {
	snap := r.game.Snapshot()
	if snap.Phase != rummy.PhasePlaying || turnKey(snap) != e.TurnKey {
		return nil
	}
	playerID := e.PlayerID
	d := e.Decision

	var err error
	switch d.Kind {
	case npc.DecisionPlaySet:
		err = r.game.PlaySet(playerID, d.TileIDs)
	case npc.DecisionManipulate:
		err = r.game.Manipulate(playerID, d.Table)
	default:
		err = r.game.Draw(playerID)
	}
	if err != nil && d.Kind != npc.DecisionDraw {
		log.Printf("[Room %s] NPC %s %s rejected (%v), drawing", r.Code, playerID, d.Kind, err)
		d = npc.Decision{Kind: npc.DecisionDraw, Reason: "fallback"}
		err = r.game.Draw(playerID)
	}
	if err != nil {
		return err
	}
	for _, in := range d.Intents(playerID) {
		r.recorder.Record(in)
	}
	log.Printf("[Room %s] NPC %s %s (turn=%d)", r.Code, playerID, d.Kind, r.game.Turn())
	r.afterCommit()
	return nil
}
