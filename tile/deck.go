package tile

const (
	Copies     = 2
	JokerCount = 2
	DeckSize   = Copies*MaxNumber*4 + JokerCount // 106
)

// NewDeck builds the full, unshuffled set of tiles. Ids run 0..DeckSize-1:
// both copies of every numbered tile first (number-major, color-minor), then the jokers.
func NewDeck() List {
	deck := make(List, 0, DeckSize)
	id := 0
	for copyIdx := 0; copyIdx < Copies; copyIdx++ {
		for n := MinNumber; n <= MaxNumber; n++ {
			for _, c := range Colors {
				deck = append(deck, New(id, c, n))
				id++
			}
		}
	}
	for i := 0; i < JokerCount; i++ {
		deck = append(deck, NewJoker(id))
		id++
	}
	return deck
}
