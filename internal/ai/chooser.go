package ai

import (
	"math/rand"

	"dixit-toolbox/internal/deck"
)

// Chooser breaks the tie when a strategy finds several cards equally good.
type Chooser interface {
	Pick(cards []deck.Card) deck.Card
}

// SeededChooser draws from its own source, so a seeded game replays the same bot picks.
type SeededChooser struct {
	rand *rand.Rand
}

func NewSeededChooser(rnd *rand.Rand) *SeededChooser {
	return &SeededChooser{rand: rnd}
}

func (c *SeededChooser) Pick(cards []deck.Card) deck.Card {
	if len(cards) == 0 {
		return ""
	}
	return cards[c.rand.Intn(len(cards))]
}

// FirstByName picks the smallest card name and leaves the input as it was.
type FirstByName struct{}

func (FirstByName) Pick(cards []deck.Card) deck.Card {
	var first deck.Card
	for i, c := range cards {
		if i == 0 || c < first {
			first = c
		}
	}
	return first
}
