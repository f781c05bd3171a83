package npc

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

// think time ranges per tier: base + up to jitter
var thinkRanges = map[rummy.Difficulty][2]time.Duration{
	rummy.DifficultyEasy:   {2000 * time.Millisecond, 2000 * time.Millisecond},
	rummy.DifficultyMedium: {1500 * time.Millisecond, 1500 * time.Millisecond},
	rummy.DifficultyHard:   {1000 * time.Millisecond, 1000 * time.Millisecond},
}

// NPCInstance represents an AI player seated in a game.
type NPCInstance struct {
	PlayerID   string
	GameID     string
	Persona    *NPCPersona
	Difficulty rummy.Difficulty
	Brain      BrainDecider
	ThinkDelay time.Duration
}

type ManagerConfig struct {
	// ThinkScale multiplies every think delay; 0 disables pacing.
	ThinkScale float64
	// SetCacheSize bounds the shared candidate-set cache.
	SetCacheSize int
	// MaxCandidateSets caps each set search (0 => rummy default).
	MaxCandidateSets int
	Seed             int64
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{ThinkScale: 1, SetCacheSize: 4096, MaxCandidateSets: rummy.DefaultMaxCandidateSets}
}

// Manager manages NPC lifecycle and decision-making across games.
type Manager struct {
	registry  *PersonaRegistry
	cfg       ManagerConfig
	finder    SetFinder
	instances map[string]*NPCInstance // keyed by PlayerID
	mu        sync.RWMutex
	rng       *rand.Rand
}

// NewManager creates an NPC manager with the given persona registry.
func NewManager(registry *PersonaRegistry, cfg ManagerConfig) *Manager {
	if registry == nil {
		registry = DefaultRegistry()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.MaxCandidateSets <= 0 {
		cfg.MaxCandidateSets = rummy.DefaultMaxCandidateSets
	}
	finder := BoundedSetFinder(cfg.MaxCandidateSets)
	if cfg.SetCacheSize > 0 {
		if cache, err := rummy.NewSetCache(cfg.SetCacheSize, cfg.MaxCandidateSets); err == nil {
			finder = cache.FindAllPossibleSets
		} else {
			log.Printf("[NPC] set cache disabled: %v", err)
		}
	}
	return &Manager{
		registry:  registry,
		cfg:       cfg,
		finder:    finder,
		instances: make(map[string]*NPCInstance),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Registry returns the underlying PersonaRegistry.
func (m *Manager) Registry() *PersonaRegistry {
	return m.registry
}

// SpawnNPC creates an AI player of tier d and seats it in game.
func (m *Manager) SpawnNPC(game *rummy.Game, d rummy.Difficulty) (*NPCInstance, error) {
	if d == rummy.DifficultyNone {
		d = rummy.DifficultyMedium
	}
	taken := make(map[string]bool)
	for _, p := range game.Snapshot().Players {
		taken[p.Name] = true
	}

	m.mu.Lock()
	persona := m.pickPersona(d, taken)
	seed := m.rng.Int63()
	delay := m.thinkDelay(d, persona)
	m.mu.Unlock()

	playerID := "ai-" + uuid.NewString()
	if err := game.AddPlayer(rummy.PlayerInfo{
		ID:         playerID,
		Name:       persona.Name,
		IsAI:       true,
		Difficulty: d,
	}); err != nil {
		return nil, fmt.Errorf("spawn NPC %s: %w", persona.Name, err)
	}

	inst := &NPCInstance{
		PlayerID:   playerID,
		GameID:     game.ID(),
		Persona:    persona,
		Difficulty: d,
		Brain:      NewBrain(d, seed, m.finder),
		ThinkDelay: delay,
	}

	m.mu.Lock()
	m.instances[playerID] = inst
	m.mu.Unlock()

	log.Printf("[NPC] Spawned %s (ID=%s, %s) in game %s", persona.Name, playerID, d, game.ID())
	return inst, nil
}

// pickPersona must be called with m.mu held.
func (m *Manager) pickPersona(d rummy.Difficulty, taken map[string]bool) *NPCPersona {
	var free []*NPCPersona
	for _, p := range m.registry.ByDifficulty(d) {
		if !taken[p.Name] {
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		p := fallbackPersona(d)
		for n := 2; taken[p.Name]; n++ {
			p.Name = fmt.Sprintf("AI Bot (%s) %d", d, n)
		}
		return p
	}
	return free[m.rng.Intn(len(free))]
}

// thinkDelay must be called with m.mu held.
func (m *Manager) thinkDelay(d rummy.Difficulty, persona *NPCPersona) time.Duration {
	if m.cfg.ThinkScale <= 0 {
		return 0
	}
	r, ok := thinkRanges[d]
	if !ok {
		r = thinkRanges[rummy.DifficultyMedium]
	}
	base := r[0] + time.Duration(m.rng.Int63n(int64(r[1])))
	return time.Duration(float64(base) * persona.tempo() * m.cfg.ThinkScale)
}

// OnTurn asks the NPC's brain for a move. snap must include the NPC's own
// hand. Decisions that would not pass the state machine fall back to draw.
func (m *Manager) OnTurn(playerID string, snap rummy.Snapshot) Decision {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()

	if inst == nil {
		log.Printf("[NPC] OnTurn called for unknown player %s", playerID)
		return drawDecision("unknown npc")
	}

	view, ok := BuildGameView(playerID, snap)
	if !ok {
		return drawDecision("not seated")
	}
	decision := inst.Brain.Decide(view)
	if err := Check(view, decision); err != nil {
		log.Printf("[NPC] %s proposed illegal %v (%v), drawing instead", inst.Persona.Name, decision.Kind, err)
		return drawDecision("fallback")
	}
	log.Printf("[NPC] %s decides: %v (%s)", inst.Persona.Name, decision.Kind, decision.Reason)
	return decision
}

// GetInstance returns the NPC instance for a given playerID, or nil.
func (m *Manager) GetInstance(playerID string) *NPCInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID]
}

// IsNPC checks if a playerID belongs to an NPC.
func (m *Manager) IsNPC(playerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID] != nil
}

// DespawnNPC removes an NPC from tracking.
func (m *Manager) DespawnNPC(playerID string) {
	m.mu.Lock()
	inst := m.instances[playerID]
	delete(m.instances, playerID)
	m.mu.Unlock()

	if inst != nil {
		log.Printf("[NPC] Despawned %s (ID=%s)", inst.Persona.Name, playerID)
	}
}

// DespawnGame drops every NPC that belongs to gameID.
func (m *Manager) DespawnGame(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, inst := range m.instances {
		if inst.GameID == gameID {
			delete(m.instances, id)
		}
	}
}

// GetThinkDelay returns the simulated thinking delay for an NPC.
func (m *Manager) GetThinkDelay(playerID string) time.Duration {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()
	if inst == nil {
		return 0
	}
	return inst.ThinkDelay
}

// BuildGameView projects a snapshot onto what playerID may see.
func BuildGameView(playerID string, snap rummy.Snapshot) (GameView, bool) {
	self, ok := snap.Self(playerID)
	if !ok {
		return GameView{}, false
	}
	view := GameView{
		Hand:           append([]tile.Tile{}, self.Hand...),
		HasInitialMeld: self.HasInitialMeld,
		PoolCount:      snap.PoolCount,
		MeldPoints:     snap.MeldPoints,
		Turn:           snap.Turn,
	}
	for _, set := range snap.Table {
		view.Table = append(view.Table, append(tile.List{}, set...))
	}
	return view, true
}
