package room

import (
	"log"
	"sort"
	"time"

	"rummy-lite/apps/server/internal/codec"
	"rummy-lite/rummy"
)

// --- Fan-out helpers; callers hold r.mu ---

func (r *Room) nextSeq() uint64 {
	r.serverSeq++
	return r.serverSeq
}

// memberIDs returns connected human members in a stable order.
func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id, m := range r.members {
		if m.sub != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// deliver hands env to one member. A subscriber that cannot take it is
// dropped so it never sees a state stream with holes.
func (r *Room) deliver(m *Member, env *codec.Envelope) bool {
	if m.sub == nil {
		return false
	}
	if m.sub.Deliver(env) {
		return true
	}
	log.Printf("[Room %s] Subscriber for %s fell behind at seq=%d, dropping", r.Code, m.PlayerID, env.Seq)
	m.sub.Close()
	m.sub = nil
	m.Online = false
	m.LastSeen = time.Now()
	return false
}

// broadcast sends the same envelope to every connected member and reports
// who was dropped on the way.
func (r *Room) broadcast(env *codec.Envelope) []*Member {
	var dropped []*Member
	for _, id := range r.memberIDs() {
		m := r.members[id]
		if !r.deliver(m, env) {
			dropped = append(dropped, m)
		}
	}
	return dropped
}

func (r *Room) broadcastLifecycle(typ string, m *Member) {
	env := codec.Lifecycle(typ, r.Code, r.nextSeq(), m.PlayerID, m.Username)
	r.announceDropped(r.broadcast(env))
}

// broadcastState sends every connected member its own view of the current
// state. All views of one commit share a sequence number.
func (r *Room) broadcastState() {
	snap := r.game.Snapshot()
	seq := r.nextSeq()
	var dropped []*Member
	for _, id := range r.memberIDs() {
		m := r.members[id]
		env, err := codec.GameState(r.Code, seq, snap.ForViewer(id))
		if err != nil {
			log.Printf("[Room %s] Failed to encode state for %s: %v", r.Code, id, err)
			continue
		}
		if !r.deliver(m, env) {
			dropped = append(dropped, m)
		}
	}
	r.announceDropped(dropped)
}

func (r *Room) sendState(m *Member, snap rummy.Snapshot) {
	env, err := codec.GameState(r.Code, r.nextSeq(), snap.ForViewer(m.PlayerID))
	if err != nil {
		log.Printf("[Room %s] Failed to encode state for %s: %v", r.Code, m.PlayerID, err)
		return
	}
	if !r.deliver(m, env) {
		r.announceDropped([]*Member{m})
	}
}

// announceDropped tells the others about members dropped for falling
// behind. Drops caused by this notice itself are not announced again.
func (r *Room) announceDropped(dropped []*Member) {
	for _, m := range dropped {
		env := codec.Lifecycle(codec.TypePlayerDisconnected, r.Code, r.nextSeq(), m.PlayerID, m.Username)
		r.broadcast(env)
	}
}
