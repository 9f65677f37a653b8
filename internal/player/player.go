package player

import (
	"context"
	"errors"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
)

var (
	ErrEmptyHand     = errors.New("hand is empty")
	ErrCardNotInHand = errors.New("card is not in hand")
	ErrAwaitingInput = errors.New("waiting for player input")
	ErrEmptyClue     = errors.New("clue cannot be empty")
)

// Kind tells human seats from bot seats.
type Kind int

const (
	KindHuman Kind = iota
	KindBot
)

func (k Kind) String() string {
	return []string{"human", "bot"}[k]
}

// Player is the interface that all player types (human or bot) must implement.
// It also implements events.Listener to react to game events.
type Player interface {
	events.Listener

	ID() int
	Name() string
	Kind() Kind
	Hand() []deck.Card
	HandSize() int
	Receive(cards ...deck.Card)
	Score() int
	AddScore(delta int)
	// Played is the card most recently taken from the hand for the table.
	Played() deck.Card

	// StorytellerTurn picks a card from the hand, removes it and returns it with a non-empty clue.
	StorytellerTurn(ctx context.Context) (deck.Card, string, error)
	// ChooseCardForClue picks and removes the card that best matches the storyteller's clue.
	ChooseCardForClue(ctx context.Context, clue string) (deck.Card, error)
	// Vote returns the table position the player believes is the storyteller's card.
	Vote(ctx context.Context, table []deck.Card, clue string) (int, error)
}

// IsBot reports whether p is driven by a bot.
func IsBot(p Player) bool { return p.Kind() == KindBot }
