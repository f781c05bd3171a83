package room

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"rummy-lite/apps/server/internal/codec"
	"rummy-lite/replay"
	"rummy-lite/rummy"
	"rummy-lite/rummy/npc"
)

// Room owns one game. Every mutation goes through the events channel and
// is applied by the single run goroutine, so at most one transition is in
// flight per room.
type Room struct {
	Code string

	mu       sync.RWMutex
	rules    rummy.Config
	game     *rummy.Game
	members  map[string]*Member // playerID -> member
	closed   bool
	stopOnce sync.Once

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	// Server sequence for event ordering
	serverSeq uint64

	gameID    string
	recorder  *replay.Recorder
	createdAt time.Time
	startedAt time.Time
	ended     bool

	npcManager   *npc.Manager
	npcScheduled string // turn key of the last scheduled NPC move

	endHooks []GameEndHook
}

// Member is a seated player and its live connection, if any.
type Member struct {
	PlayerID string
	Username string
	IsAI     bool
	Online   bool
	LastSeen time.Time

	sub Subscriber
}

// Subscriber receives a player's envelopes in commit order.
type Subscriber interface {
	// Deliver must not block. Returning false means the subscriber fell
	// behind; the room drops it and the player has to reconnect to resync.
	Deliver(env *codec.Envelope) bool
	Close()
}

// Event types for the actor message queue
type EventType int

const (
	EventCreate EventType = iota
	EventJoin
	EventLeave
	EventAddAI
	EventStart
	EventIntent
	EventNPCMove
	EventConnLost
	EventSync
	EventClose
)

// Event represents a message to the room actor
type Event struct {
	Type       EventType
	PlayerID   string
	Username   string
	Subscriber Subscriber
	Intent     rummy.Intent
	Difficulty rummy.Difficulty
	Decision   npc.Decision
	TurnKey    string
	Timestamp  time.Time
	Response   chan Reply
}

// Reply goes back to the submitter only.
type Reply struct {
	// Snapshot is the submitter's view after the event; nil once they are
	// no longer seated.
	Snapshot *rummy.Snapshot
	// Empty is set when no human player remains.
	Empty bool
	Err   error
}

// GameEndInfo is emitted once per finished game.
type GameEndInfo struct {
	RoomCode  string
	GameID    string
	Snapshot  rummy.Snapshot
	Spec      replay.GameSpec
	StartedAt time.Time
	EndedAt   time.Time
}

// GameEndHook is a post-game callback.
type GameEndHook func(info GameEndInfo)

// ErrRoomClosed is returned for events submitted after the room stopped.
var ErrRoomClosed = rummy.Errorf(rummy.KindGameNotFound, "room closed")

// New creates a room and starts its actor goroutine.
func New(code string, rules rummy.Config, npcMgr *npc.Manager) (*Room, error) {
	r := &Room{
		Code:       code,
		rules:      rules,
		members:    make(map[string]*Member),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		createdAt:  time.Now(),
		npcManager: npcMgr,
	}
	if err := r.resetGameLocked(); err != nil {
		return nil, err
	}

	go r.run()

	log.Printf("[Room %s] Created (max=%d, meld=%d)", code, r.game.Config().MaxPlayers, r.game.Config().InitialMeldPoints)
	return r, nil
}

func (r *Room) resetGameLocked() error {
	game, err := rummy.NewGame(r.Code, r.rules)
	if err != nil {
		return err
	}
	r.game = game
	r.recorder = replay.NewRecorder(r.Code, game.Seed(), game.Config())
	r.gameID = ""
	r.ended = false
	r.npcScheduled = ""
	return nil
}

// run is the main actor loop
func (r *Room) run() {
	for {
		select {
		case event := <-r.events:
			reply := r.handleEvent(event)
			if event.Response != nil {
				event.Response <- reply
			}
		case <-r.done:
			log.Printf("[Room %s] Actor stopped", r.Code)
			return
		}
	}
}

// handleEvent processes a single event
func (r *Room) handleEvent(e Event) Reply {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed && e.Type != EventClose {
		return Reply{Err: ErrRoomClosed}
	}

	var err error
	switch e.Type {
	case EventCreate:
		err = r.handleJoin(e, true)
	case EventJoin:
		err = r.handleJoin(e, false)
	case EventLeave:
		err = r.handleLeave(e.PlayerID)
	case EventAddAI:
		err = r.handleAddAI(e.PlayerID, e.Difficulty)
	case EventStart:
		err = r.handleStart(e.PlayerID)
	case EventIntent:
		err = r.handleIntent(e.Intent)
	case EventNPCMove:
		err = r.handleNPCMove(e)
	case EventConnLost:
		err = r.handleConnLost(e.PlayerID, e.Subscriber)
	case EventSync:
		err = r.handleSync(e.PlayerID)
	case EventClose:
		r.stopLocked()
		return Reply{}
	default:
		err = fmt.Errorf("unknown event type: %d", e.Type)
	}

	reply := Reply{Err: err, Empty: r.humanCountLocked() == 0}
	if _, seated := r.members[e.PlayerID]; seated {
		snap := r.game.Snapshot().ForViewer(e.PlayerID)
		reply.Snapshot = &snap
	}
	return reply
}

func (r *Room) handleJoin(e Event, created bool) error {
	now := time.Now()
	name := normalizeUsername(e.Username, e.PlayerID)
	if m, exists := r.members[e.PlayerID]; exists {
		if m.sub != nil && m.sub != e.Subscriber {
			m.sub.Close()
		}
		m.sub = e.Subscriber
		m.Online = true
		m.LastSeen = now
		log.Printf("[Room %s] Player %s reconnected", r.Code, e.PlayerID)
		r.broadcastLifecycle(codec.TypePlayerReconnected, m)
		r.sendState(m, r.game.Snapshot())
		return nil
	}

	info := rummy.PlayerInfo{ID: e.PlayerID, Name: name}
	if err := r.game.AddPlayer(info); err != nil {
		return err
	}
	r.recorder.Seat(info)
	m := &Member{
		PlayerID: e.PlayerID,
		Username: name,
		Online:   true,
		LastSeen: now,
		sub:      e.Subscriber,
	}
	r.members[e.PlayerID] = m
	log.Printf("[Room %s] Player %s (%s) joined, seated=%d", r.Code, e.PlayerID, name, r.game.PlayerCount())

	typ := codec.TypeRoomJoined
	if created {
		typ = codec.TypeRoomCreated
	}
	r.broadcastLifecycle(typ, m)
	r.broadcastState()
	return nil
}

func (r *Room) handleLeave(playerID string) error {
	m, exists := r.members[playerID]
	if !exists {
		return nil
	}
	phase := r.game.Phase()
	if err := r.game.RemovePlayer(playerID); err != nil {
		return err
	}
	switch phase {
	case rummy.PhaseWaiting:
		r.recorder.Unseat(playerID)
	case rummy.PhasePlaying:
		r.recorder.Record(rummy.Intent{PlayerID: playerID, Action: rummy.ActionLeave})
	}
	delete(r.members, playerID)
	if m.IsAI && r.npcManager != nil {
		r.npcManager.DespawnNPC(playerID)
	}
	log.Printf("[Room %s] Player %s left, seated=%d", r.Code, playerID, r.game.PlayerCount())

	r.broadcastLifecycle(codec.TypePlayerLeft, m)
	r.afterCommit()
	return nil
}

func (r *Room) handleAddAI(playerID string, d rummy.Difficulty) error {
	if !r.game.IsHost(playerID) {
		return rummy.ErrNotHost
	}
	if r.npcManager == nil {
		return fmt.Errorf("NPC manager not available")
	}
	inst, err := r.npcManager.SpawnNPC(r.game, d)
	if err != nil {
		return err
	}
	r.recorder.Seat(rummy.PlayerInfo{ID: inst.PlayerID, Name: inst.Persona.Name, IsAI: true, Difficulty: inst.Difficulty})
	m := &Member{
		PlayerID: inst.PlayerID,
		Username: inst.Persona.Name,
		IsAI:     true,
		Online:   true,
		LastSeen: time.Now(),
	}
	r.members[inst.PlayerID] = m
	log.Printf("[Room %s] NPC %s (%s) seated by %s", r.Code, inst.Persona.Name, inst.Difficulty, playerID)

	r.broadcastLifecycle(codec.TypeRoomJoined, m)
	r.broadcastState()
	return nil
}

func (r *Room) handleStart(playerID string) error {
	if !r.game.IsHost(playerID) {
		return rummy.ErrNotHost
	}
	if r.game.Phase() == rummy.PhaseFinished {
		if err := r.rematchLocked(); err != nil {
			return err
		}
	}
	if err := r.game.Start(); err != nil {
		return err
	}
	r.gameID = uuid.NewString()
	r.startedAt = time.Now()
	log.Printf("[Room %s] Game %s started with %d players (seed=%d)", r.Code, r.gameID, r.game.PlayerCount(), r.game.Seed())
	r.afterCommit()
	return nil
}

// rematchLocked seats the current members in a fresh game, keeping the
// seat order of the finished one.
func (r *Room) rematchLocked() error {
	prev := r.game.Snapshot()
	if err := r.resetGameLocked(); err != nil {
		return err
	}
	for _, p := range prev.Players {
		info := rummy.PlayerInfo{ID: p.ID, Name: p.Name, IsAI: p.IsAI, Difficulty: p.Difficulty}
		if err := r.game.AddPlayer(info); err != nil {
			return err
		}
		r.recorder.Seat(info)
	}
	log.Printf("[Room %s] Rematch with %d players", r.Code, len(prev.Players))
	return nil
}

func (r *Room) handleIntent(in rummy.Intent) error {
	if _, exists := r.members[in.PlayerID]; !exists {
		return rummy.ErrPlayerNotFound
	}
	if in.Action == rummy.ActionLeave {
		return r.handleLeave(in.PlayerID)
	}
	if err := r.game.Apply(in); err != nil {
		log.Printf("[Room %s] Rejected %s from %s: %v", r.Code, in.Action, in.PlayerID, err)
		return err
	}
	r.recorder.Record(in)
	log.Printf("[Room %s] %s by %s (turn=%d)", r.Code, in.Action, in.PlayerID, r.game.Turn())
	r.afterCommit()
	return nil
}

func (r *Room) handleConnLost(playerID string, sub Subscriber) error {
	m := r.members[playerID]
	if m == nil || m.sub == nil || m.sub != sub {
		return nil
	}
	m.sub = nil
	m.Online = false
	m.LastSeen = time.Now()
	log.Printf("[Room %s] Player %s connection lost", r.Code, playerID)
	r.broadcastLifecycle(codec.TypePlayerDisconnected, m)
	return nil
}

func (r *Room) handleSync(playerID string) error {
	m := r.members[playerID]
	if m == nil {
		return rummy.ErrPlayerNotFound
	}
	r.sendState(m, r.game.Snapshot())
	return nil
}

// afterCommit fans the new state out, settles a finished game and hands
// the turn to an NPC if one is up.
func (r *Room) afterCommit() {
	r.game.CheckEndConditions()
	snap := r.game.Snapshot()
	r.broadcastState()
	if snap.Phase == rummy.PhaseFinished && !r.ended && r.gameID != "" {
		r.ended = true
		r.handleGameEnd(snap)
	}
	r.maybeScheduleNPC()
}

func (r *Room) handleGameEnd(snap rummy.Snapshot) {
	log.Printf("[Room %s] Game %s finished after %d turns, winner=%s", r.Code, r.gameID, snap.Turn, snap.Winner)
	env, err := codec.GameEnded(r.Code, r.nextSeq(), snap)
	if err != nil {
		log.Printf("[Room %s] Failed to build game end: %v", r.Code, err)
	} else {
		r.broadcast(env)
	}
	r.dispatchGameEndHooks(snap)
}

func (r *Room) dispatchGameEndHooks(snap rummy.Snapshot) {
	if len(r.endHooks) == 0 {
		return
	}
	info := GameEndInfo{
		RoomCode:  r.Code,
		GameID:    r.gameID,
		Snapshot:  snap,
		Spec:      r.recorder.Spec(),
		StartedAt: r.startedAt,
		EndedAt:   time.Now().UTC(),
	}
	hooks := append([]GameEndHook(nil), r.endHooks...)
	for _, hook := range hooks {
		go func(cb GameEndHook) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("[Room %s] game end hook panic: %v", r.Code, rec)
				}
			}()
			cb(info)
		}(hook)
	}
}

// SubmitEvent sends an event to the actor and waits for its reply.
func (r *Room) SubmitEvent(e Event) Reply {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan Reply, 1)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return Reply{Err: ErrRoomClosed}
	}

	select {
	case r.events <- e:
	case <-r.done:
		return Reply{Err: ErrRoomClosed}
	}

	select {
	case reply := <-e.Response:
		return reply
	case <-r.done:
		return Reply{Err: ErrRoomClosed}
	}
}

// Stop shuts down the room actor
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Room) stopLocked() {
	r.closed = true
	r.stopOnce.Do(func() {
		close(r.done)
		if r.npcManager != nil {
			r.npcManager.DespawnGame(r.Code)
		}
		log.Printf("[Room %s] Closed after %s", r.Code, humanize.RelTime(r.createdAt, time.Now(), "", ""))
	})
}

// AddGameEndHook registers a post-game callback.
func (r *Room) AddGameEndHook(hook GameEndHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.endHooks = append(r.endHooks, hook)
	r.mu.Unlock()
}

func (r *Room) IsClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// IsIdleFor reports whether no human has been connected for at least ttl.
func (r *Room) IsIdleFor(ttl time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return true
	}
	last := r.createdAt
	for _, m := range r.members {
		if m.IsAI {
			continue
		}
		if m.Online {
			return false
		}
		if m.LastSeen.After(last) {
			last = m.LastSeen
		}
	}
	return time.Since(last) >= ttl
}

// Snapshot returns the public view of the game (no hands, no pending layout).
func (r *Room) Snapshot() rummy.Snapshot {
	r.mu.RLock()
	game := r.game
	r.mu.RUnlock()
	return game.Snapshot().ForViewer("")
}

// Members returns a copy of the roster keyed by player id.
func (r *Room) Members() map[string]Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Member, len(r.members))
	for id, m := range r.members {
		c := *m
		c.sub = nil
		out[id] = c
	}
	return out
}

func (r *Room) humanCountLocked() int {
	n := 0
	for _, m := range r.members {
		if !m.IsAI {
			n++
		}
	}
	return n
}

func normalizeUsername(raw, playerID string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "player_" + shortID(playerID)
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
