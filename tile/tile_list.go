package tile

import "math/rand"

// List is an ordered collection of tiles (hand, pool or table set).
type List []Tile

func (l List) Count() int { return len(l) }

// Clone returns an independent copy.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

func (l List) IDs() []int {
	out := make([]int, len(l))
	for i, t := range l {
		out[i] = t.ID
	}
	return out
}

func (l List) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(l), func(i, j int) {
		l[i], l[j] = l[j], l[i]
	})
}

// Pop removes and returns the last tile.
func (l *List) Pop() (Tile, bool) {
	n := len(*l)
	if n == 0 {
		return Tile{}, false
	}
	t := (*l)[n-1]
	*l = (*l)[:n-1]
	return t, true
}

func (l *List) Add(tiles ...Tile) {
	*l = append(*l, tiles...)
}

func (l List) Index(id int) int {
	for i, t := range l {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (l List) Contains(id int) bool { return l.Index(id) >= 0 }

func (l List) Find(id int) (Tile, bool) {
	if i := l.Index(id); i >= 0 {
		return l[i], true
	}
	return Tile{}, false
}

// Without returns a copy of l minus every tile whose id is in ids.
func (l List) Without(ids map[int]struct{}) List {
	out := make(List, 0, len(l))
	for _, t := range l {
		if _, drop := ids[t.ID]; drop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (l List) JokerCount() int {
	n := 0
	for _, t := range l {
		if t.IsJoker() {
			n++
		}
	}
	return n
}

func (l List) Faces() []string {
	out := make([]string, len(l))
	for i, t := range l {
		out[i] = t.Face()
	}
	return out
}

// IDSet builds a lookup set from ids.
func IDSet(ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
