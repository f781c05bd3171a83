package rummy

import (
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"rummy-lite/tile"
)

// partial tracks whether a growing subset can still become a group or run.
type partial struct {
	size      int
	number    int
	color     tile.Color
	colorMask uint8
	numMask   uint16
	asGroup   bool
	asRun     bool
}

func (p partial) with(t tile.Tile) partial {
	p.size++
	if t.IsJoker() {
		p.asGroup = p.asGroup && p.size <= 4
		p.asRun = p.asRun && p.size <= tile.MaxNumber
		return p
	}
	cbit := uint8(1) << t.Color
	nbit := uint16(1) << t.Number
	if p.number == 0 {
		p.number = t.Number
	} else if p.number != t.Number {
		p.asGroup = false
	}
	if p.colorMask&cbit != 0 || p.size > 4 {
		p.asGroup = false
	}
	if p.color == tile.ColorNone {
		p.color = t.Color
	} else if p.color != t.Color {
		p.asRun = false
	}
	if p.numMask&nbit != 0 || p.size > tile.MaxNumber {
		p.asRun = false
	}
	p.colorMask |= cbit
	p.numMask |= nbit
	return p
}

func (p partial) alive() bool { return p.asGroup || p.asRun }

// walkSets visits every subset of hand (size >= 3) that is a valid set, in
// index-lexicographic order, until visit returns false. Branches that can
// no longer form a group or run are pruned.
func walkSets(hand []tile.Tile, visit func(set tile.List) bool) {
	picked := make([]tile.Tile, 0, len(hand))
	var dfs func(from int, p partial) bool
	dfs = func(from int, p partial) bool {
		for i := from; i < len(hand); i++ {
			np := p.with(hand[i])
			if !np.alive() {
				continue
			}
			picked = append(picked, hand[i])
			if np.size >= 3 && IsValidSet(picked) {
				if !visit(tile.List(picked).Clone()) {
					return false
				}
			}
			if !dfs(i+1, np) {
				return false
			}
			picked = picked[:len(picked)-1]
		}
		return true
	}
	dfs(0, partial{asGroup: true, asRun: true})
}

// FindAllPossibleSets enumerates valid sets drawable from hand, stopping
// after limit results (limit <= 0 means DefaultMaxCandidateSets).
func FindAllPossibleSets(hand []tile.Tile, limit int) []tile.List {
	if limit <= 0 {
		limit = DefaultMaxCandidateSets
	}
	var out []tile.List
	walkSets(hand, func(set tile.List) bool {
		out = append(out, set)
		return len(out) < limit
	})
	return out
}

// FindFirstSet returns the first valid set worth at least minPoints.
func FindFirstSet(hand []tile.Tile, minPoints int) (tile.List, bool) {
	var found tile.List
	walkSets(hand, func(set tile.List) bool {
		if CalculateSetPoints(set) >= minPoints {
			found = set
			return false
		}
		return true
	})
	return found, found != nil
}

// SetCache memoizes FindAllPossibleSets by hand composition. Returned slices
// are shared and must not be modified.
type SetCache struct {
	limit int
	cache *lru.Cache[string, []tile.List]
}

func NewSetCache(size, limit int) (*SetCache, error) {
	c, err := lru.New[string, []tile.List](size)
	if err != nil {
		return nil, err
	}
	return &SetCache{limit: limit, cache: c}, nil
}

func (c *SetCache) FindAllPossibleSets(hand []tile.Tile) []tile.List {
	key := handKey(hand)
	if sets, ok := c.cache.Get(key); ok {
		return sets
	}
	sets := FindAllPossibleSets(hand, c.limit)
	c.cache.Add(key, sets)
	return sets
}

func (c *SetCache) Len() int { return c.cache.Len() }

// handKey is order-sensitive since enumeration order follows hand order.
func handKey(hand []tile.Tile) string {
	var sb strings.Builder
	for i, t := range hand {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(t.ID))
	}
	return sb.String()
}

// SortForDisplay orders tiles by color then number, jokers last.
func SortForDisplay(l tile.List) tile.List {
	out := l.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsJoker() != b.IsJoker() {
			return b.IsJoker()
		}
		if a.Color != b.Color {
			return a.Color < b.Color
		}
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.ID < b.ID
	})
	return out
}
