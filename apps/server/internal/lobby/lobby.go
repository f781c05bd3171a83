package lobby

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"rummy-lite/apps/server/internal/ledger"
	"rummy-lite/apps/server/internal/room"
	"rummy-lite/rummy"
	"rummy-lite/rummy/npc"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator returns a random room code of the given length.
type CodeGenerator func(length int) (string, error)

// RandomCode draws length characters from A-Z0-9.
func RandomCode(length int) (string, error) {
	return randomCode(rand.Reader, length)
}

// codeByteLimit is the largest multiple of len(codeAlphabet) that fits in a
// byte; bytes at or above it are discarded so every character is equally
// likely.
const codeByteLimit = 256 / len(codeAlphabet) * len(codeAlphabet)

func randomCode(src io.Reader, length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= codeByteLimit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

type Config struct {
	Rules        rummy.Config
	CodeLength   int
	CodeAttempts int
}

// Lobby is the room/session coordinator: it owns the code -> room mapping
// and the lifecycle of every room.
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	cfg        Config
	generate   CodeGenerator
	npcManager *npc.Manager
	ledger     ledger.Service
}

// New creates a new lobby
func New(cfg Config, npcMgr *npc.Manager, ledgerService ledger.Service) *Lobby {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 10
	}
	if ledgerService == nil {
		ledgerService = ledger.NewNoopService()
	}
	return &Lobby{
		rooms:      make(map[string]*room.Room),
		cfg:        cfg,
		generate:   RandomCode,
		npcManager: npcMgr,
		ledger:     ledgerService,
	}
}

// SetCodeGenerator replaces the random code source.
func (l *Lobby) SetCodeGenerator(gen CodeGenerator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generate = gen
}

// GenerateCode returns a code that no live room uses.
func (l *Lobby) GenerateCode() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generateCodeLocked()
}

func (l *Lobby) generateCodeLocked() (string, error) {
	for i := 0; i < l.cfg.CodeAttempts; i++ {
		code, err := l.generate(l.cfg.CodeLength)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code = normalizeCode(code)
		if _, taken := l.rooms[code]; !taken && code != "" {
			return code, nil
		}
	}
	log.Printf("[Lobby] Code generation exhausted after %d attempts (rooms=%d)", l.cfg.CodeAttempts, len(l.rooms))
	return "", rummy.Errorf(rummy.KindCodeGenerationExhausted, fmt.Sprintf("%d attempts", l.cfg.CodeAttempts))
}

// Create opens a room and seats playerID as its host. An empty code asks
// the lobby to allocate one.
func (l *Lobby) Create(code, playerID, username string, sub room.Subscriber) (*room.Room, room.Reply) {
	l.mu.Lock()
	code = normalizeCode(code)
	if code == "" {
		var err error
		if code, err = l.generateCodeLocked(); err != nil {
			l.mu.Unlock()
			return nil, room.Reply{Err: err}
		}
	} else if _, taken := l.rooms[code]; taken {
		l.mu.Unlock()
		return nil, room.Reply{Err: rummy.Errorf(rummy.KindCodeInUse, code)}
	}
	r, err := room.New(code, l.cfg.Rules, l.npcManager)
	if err != nil {
		l.mu.Unlock()
		return nil, room.Reply{Err: err}
	}
	r.AddGameEndHook(l.recordGame)
	l.rooms[code] = r
	count := len(l.rooms)
	l.mu.Unlock()

	log.Printf("[Lobby] Room %s created by %s, total: %d", code, playerID, count)
	reply := r.SubmitEvent(room.Event{Type: room.EventCreate, PlayerID: playerID, Username: username, Subscriber: sub})
	if reply.Err != nil {
		l.destroy(r)
		return nil, reply
	}
	return r, reply
}

// Join seats playerID in the room, or reconnects them if already seated.
func (l *Lobby) Join(code, playerID, username string, sub room.Subscriber) (*room.Room, room.Reply) {
	r := l.Get(code)
	if r == nil {
		return nil, room.Reply{Err: rummy.ErrGameNotFound}
	}
	reply := r.SubmitEvent(room.Event{Type: room.EventJoin, PlayerID: playerID, Username: username, Subscriber: sub})
	return r, reply
}

// Leave removes playerID from the room; the room is destroyed once no
// human player remains. Unknown rooms and players are no-ops.
func (l *Lobby) Leave(code, playerID string) room.Reply {
	r := l.Get(code)
	if r == nil {
		return room.Reply{}
	}
	reply := r.SubmitEvent(room.Event{Type: room.EventLeave, PlayerID: playerID})
	if reply.Err == nil && reply.Empty {
		l.destroy(r)
	}
	return reply
}

// MarkDisconnected flags the player offline without touching the game.
func (l *Lobby) MarkDisconnected(code, playerID string, sub room.Subscriber) {
	r := l.Get(code)
	if r == nil {
		return
	}
	r.SubmitEvent(room.Event{Type: room.EventConnLost, PlayerID: playerID, Subscriber: sub})
}

// Submit forwards any other event to the room's actor.
func (l *Lobby) Submit(code string, e room.Event) room.Reply {
	r := l.Get(code)
	if r == nil {
		return room.Reply{Err: rummy.ErrGameNotFound}
	}
	return r.SubmitEvent(e)
}

func (l *Lobby) destroy(r *room.Room) {
	l.mu.Lock()
	if l.rooms[r.Code] == r {
		delete(l.rooms, r.Code)
	}
	r.Stop()
	count := len(l.rooms)
	l.mu.Unlock()
	log.Printf("[Lobby] Room %s destroyed, total: %d", r.Code, count)
}

// Get returns a room by code
func (l *Lobby) Get(code string) *room.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[normalizeCode(code)]
}

func (l *Lobby) Exists(code string) bool {
	return l.Get(code) != nil
}

// Codes returns all live room codes, sorted.
func (l *Lobby) Codes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	codes := make([]string, 0, len(l.rooms))
	for code := range l.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ReapIdle destroys rooms whose human players have all been offline for
// at least ttl.
func (l *Lobby) ReapIdle(ttl time.Duration) int {
	l.mu.RLock()
	var idle []*room.Room
	for _, r := range l.rooms {
		if r.IsIdleFor(ttl) {
			idle = append(idle, r)
		}
	}
	l.mu.RUnlock()

	for _, r := range idle {
		log.Printf("[Lobby] Room %s idle for %s, closing", r.Code, ttl)
		l.destroy(r)
	}
	return len(idle)
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (l *Lobby) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.ReapIdle(ttl)
		}
	}
}

// Close stops every room.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for code, r := range l.rooms {
		r.Stop()
		delete(l.rooms, code)
	}
}

func (l *Lobby) recordGame(info room.GameEndInfo) {
	rec := gameRecord(info)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.ledger.RecordGame(ctx, rec); err != nil {
		log.Printf("[Lobby] Failed to record game %s of room %s: %v", info.GameID, info.RoomCode, err)
		return
	}
	log.Printf("[Lobby] Recorded game %s of room %s (%d actions)", info.GameID, info.RoomCode, len(rec.Spec.Actions))
}

func gameRecord(info room.GameEndInfo) ledger.GameRecord {
	rec := ledger.GameRecord{
		GameID:    info.GameID,
		RoomCode:  info.RoomCode,
		Seed:      info.Spec.Seed,
		Winner:    info.Snapshot.Winner,
		Turns:     info.Snapshot.Turn,
		StartedAt: info.StartedAt,
		EndedAt:   info.EndedAt,
		Spec:      info.Spec,
	}
	for seat, p := range info.Spec.Players {
		pr := ledger.PlayerRecord{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       seat,
			IsAI:       p.IsAI,
			Difficulty: p.Difficulty,
		}
		if score, ok := info.Snapshot.FinalScores[p.ID]; ok {
			pr.Score = score
		}
		if self, ok := info.Snapshot.Self(p.ID); ok {
			pr.TilesLeft = self.HandCount
		} else {
			pr.Left = true
		}
		rec.Players = append(rec.Players, pr)
	}
	return rec
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
