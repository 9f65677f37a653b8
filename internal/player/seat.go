package player

import (
	"fmt"

	"dixit-toolbox/internal/deck"
)

// Seat holds the state every player kind shares: identity, hand and score.
// The hand is owned exclusively by the seat.
type Seat struct {
	id     int
	name   string
	hand   []deck.Card
	score  int
	played deck.Card
}

func NewSeat(id int, name string) Seat {
	return Seat{id: id, name: name}
}

func (s *Seat) ID() int       { return s.id }
func (s *Seat) Name() string  { return s.name }
func (s *Seat) Score() int    { return s.score }
func (s *Seat) HandSize() int { return len(s.hand) }

func (s *Seat) AddScore(delta int) { s.score += delta }

// Hand returns a copy of the cards in hand.
func (s *Seat) Hand() []deck.Card {
	cards := make([]deck.Card, len(s.hand))
	copy(cards, s.hand)
	return cards
}

func (s *Seat) Receive(cards ...deck.Card) {
	s.hand = append(s.hand, cards...)
}

// Played is the card this seat last put on the table.
func (s *Seat) Played() deck.Card { return s.played }

func (s *Seat) Contains(card deck.Card) bool {
	return s.indexOf(card) >= 0
}

// Take removes card from the hand and remembers it as the played card.
func (s *Seat) Take(card deck.Card) error {
	i := s.indexOf(card)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, card)
	}
	_, err := s.TakeAt(i)
	return err
}

// TakeAt removes the card at position i in the hand.
func (s *Seat) TakeAt(i int) (deck.Card, error) {
	if len(s.hand) == 0 {
		return "", ErrEmptyHand
	}
	if i < 0 || i >= len(s.hand) {
		return "", fmt.Errorf("%w: position %d", ErrCardNotInHand, i+1)
	}
	card := s.hand[i]
	s.hand = append(s.hand[:i], s.hand[i+1:]...)
	s.played = card
	return card, nil
}

func (s *Seat) indexOf(card deck.Card) int {
	for i, c := range s.hand {
		if c == card {
			return i
		}
	}
	return -1
}
