package player

import (
	"context"
	"sync"

	"dixit-toolbox/internal/deck"
)

// Mailbox is a non-blocking InputSource. A UI delivers clicks and text into it and the game
// polls it on each tick; an empty slot yields ErrAwaitingInput.
type Mailbox struct {
	mu    sync.Mutex
	cards []int
	clues []string
	votes []int
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) DeliverCard(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, index)
}

func (m *Mailbox) DeliverClue(clue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clues = append(m.clues, clue)
}

func (m *Mailbox) DeliverVote(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, index)
}

func (m *Mailbox) SelectCard(ctx context.Context, req CardRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return popInt(&m.cards)
}

func (m *Mailbox) EnterClue(ctx context.Context, playerName string, card deck.Card) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.clues) == 0 {
		return "", ErrAwaitingInput
	}
	clue := m.clues[0]
	m.clues = m.clues[1:]
	return clue, nil
}

func (m *Mailbox) SelectVote(ctx context.Context, req VoteRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return popInt(&m.votes)
}

func popInt(queue *[]int) (int, error) {
	if len(*queue) == 0 {
		return 0, ErrAwaitingInput
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v, nil
}
