package deck

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrEmptyDeck         = errors.New("deck cannot be loaded from an empty card list")
	ErrInsufficientCards = errors.New("not enough cards to deal full hands")
)

// Card is an opaque card reference, usually the path of an image file.
type Card string

func (c Card) String() string { return string(c) }

// Holder is anything that can be dealt cards: in practice a player.
type Holder interface {
	ID() int
	HandSize() int
	Receive(cards ...Card)
}

// DealReport describes the outcome of a single Deal call.
type DealReport struct {
	Dealt      int
	Reshuffled bool
	// Short holds the IDs of holders whose hands could not be topped up.
	Short []int
}

// Deck is the draw pile plus the discard pile. Cards are drawn from the end of the pile.
type Deck struct {
	cards   []Card
	discard []Card
	rand    *rand.Rand
}

// New creates an empty deck that shuffles with the given random source.
func New(r *rand.Rand) *Deck {
	return &Deck{rand: r}
}

// Load replaces the draw pile with cards, in the order given.
func (d *Deck) Load(cards []Card) error {
	if len(cards) == 0 {
		return ErrEmptyDeck
	}
	d.cards = make([]Card, len(cards))
	copy(d.cards, cards)
	d.discard = nil
	return nil
}

// Placeholder returns n generated cards named Card1..CardN for games without an image corpus.
func Placeholder(n int) []Card {
	cards := make([]Card, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, Card(fmt.Sprintf("Card%d", i)))
	}
	return cards
}

func (d *Deck) Shuffle() {
	d.rand.Shuffle(len(d.cards), func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] })
}

func (d *Deck) Len() int        { return len(d.cards) }
func (d *Deck) DiscardLen() int { return len(d.discard) }

// Discard moves cards onto the discard pile.
func (d *Deck) Discard(cards ...Card) {
	d.discard = append(d.discard, cards...)
}

// Deal tops every holder up to handSize. When the draw pile cannot cover the whole deal the discard
// pile is shuffled back in first. Holders that still end up short are listed in the report and
// ErrInsufficientCards is returned; every available card has been dealt at that point.
func (d *Deck) Deal(holders []Holder, handSize int) (DealReport, error) {
	var report DealReport

	needed := 0
	for _, h := range holders {
		if missing := handSize - h.HandSize(); missing > 0 {
			needed += missing
		}
	}
	if needed > len(d.cards) && len(d.discard) > 0 {
		d.cards = append(d.cards, d.discard...)
		d.discard = nil
		d.Shuffle()
		report.Reshuffled = true
	}

	for _, h := range holders {
		missing := handSize - h.HandSize()
		if missing <= 0 {
			continue
		}
		n := missing
		if n > len(d.cards) {
			n = len(d.cards)
		}
		if n > 0 {
			h.Receive(d.draw(n)...)
			report.Dealt += n
		}
		if n < missing {
			report.Short = append(report.Short, h.ID())
		}
	}

	if len(report.Short) > 0 {
		return report, ErrInsufficientCards
	}
	return report, nil
}

// draw pops n cards off the end of the pile, last card first.
func (d *Deck) draw(n int) []Card {
	drawn := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		last := len(d.cards) - 1
		drawn = append(drawn, d.cards[last])
		d.cards = d.cards[:last]
	}
	return drawn
}
