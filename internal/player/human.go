package player

import (
	"context"
	"strings"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
)

// CardRequest is what a human sees when asked to pick a card.
type CardRequest struct {
	PlayerName  string
	Hand        []deck.Card
	Clue        string
	Storyteller bool
}

// VoteRequest is what a human sees when asked to vote.
type VoteRequest struct {
	PlayerName string
	Table      []deck.Card
	Clue       string
	// Own is the position of the voter's own card, or -1.
	Own int
}

// InputSource delivers a human's decisions. Implementations either block until the person
// answers (terminal prompts) or return ErrAwaitingInput when nothing has arrived yet.
type InputSource interface {
	SelectCard(ctx context.Context, req CardRequest) (int, error)
	EnterClue(ctx context.Context, playerName string, card deck.Card) (string, error)
	SelectVote(ctx context.Context, req VoteRequest) (int, error)
}

// HumanPlayer represents a player controlled by a person.
type HumanPlayer struct {
	Seat
	input        InputSource
	eventManager *events.Manager

	// pending keeps a card choice that arrived before the matching clue.
	pending *int
}

func NewHumanPlayer(id int, name string, input InputSource, eventManager *events.Manager) *HumanPlayer {
	return &HumanPlayer{
		Seat:         NewSeat(id, name),
		input:        input,
		eventManager: eventManager,
	}
}

func (h *HumanPlayer) Kind() Kind { return KindHuman }

func (h *HumanPlayer) Receive(cards ...deck.Card) {
	h.Seat.Receive(cards...)
	if h.eventManager != nil {
		h.eventManager.Publish(events.HumanHandRevealedEvent{
			PlayerName: h.Name(),
			Hand:       h.Hand(),
		})
	}
}

// HandleEvent drops a card choice left over from a turn that never completed.
func (h *HumanPlayer) HandleEvent(e events.Event) {
	if _, ok := e.(events.RoundStartEvent); ok {
		h.pending = nil
	}
}

func (h *HumanPlayer) StorytellerTurn(ctx context.Context) (deck.Card, string, error) {
	if h.HandSize() == 0 {
		return "", "", ErrEmptyHand
	}
	idx, err := h.selectCard(ctx, "", true)
	if err != nil {
		return "", "", err
	}

	clue, err := h.input.EnterClue(ctx, h.Name(), h.hand[idx])
	if err != nil {
		return "", "", err
	}
	clue = strings.TrimSpace(clue)
	if clue == "" {
		return "", "", ErrEmptyClue
	}

	h.pending = nil
	card, err := h.TakeAt(idx)
	if err != nil {
		return "", "", err
	}
	return card, clue, nil
}

func (h *HumanPlayer) ChooseCardForClue(ctx context.Context, clue string) (deck.Card, error) {
	if h.HandSize() == 0 {
		return "", ErrEmptyHand
	}
	idx, err := h.selectCard(ctx, clue, false)
	if err != nil {
		return "", err
	}
	h.pending = nil
	return h.TakeAt(idx)
}

func (h *HumanPlayer) Vote(ctx context.Context, table []deck.Card, clue string) (int, error) {
	own := -1
	for i, c := range table {
		if c == h.Played() {
			own = i
			break
		}
	}
	return h.input.SelectVote(ctx, VoteRequest{
		PlayerName: h.Name(),
		Table:      table,
		Clue:       clue,
		Own:        own,
	})
}

// selectCard returns a validated hand position, reusing a choice made on an earlier call.
// An out-of-range choice is discarded so the person can choose again.
func (h *HumanPlayer) selectCard(ctx context.Context, clue string, storyteller bool) (int, error) {
	if h.pending != nil {
		return *h.pending, nil
	}
	idx, err := h.input.SelectCard(ctx, CardRequest{
		PlayerName:  h.Name(),
		Hand:        h.Hand(),
		Clue:        clue,
		Storyteller: storyteller,
	})
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= h.HandSize() {
		return 0, ErrCardNotInHand
	}
	h.pending = &idx
	return idx, nil
}

// Pending reports whether a card has been chosen but not yet played.
func (h *HumanPlayer) Pending() bool { return h.pending != nil }
