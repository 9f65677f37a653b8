package ai

import (
	"dixit-toolbox/internal/deck"
)

// StorytellerStrategy picks the card a bot tells a story about. It reports false when it has no
// opinion, and the next strategy in the chain is asked.
type StorytellerStrategy interface {
	PickCard(b *Bot, hand []deck.Card) (deck.Card, bool)
}

// CaptionIndex is satisfied by caption caches that can tell whether a card is already described.
type CaptionIndex interface {
	Has(card deck.Card) bool
}

// --- Strategy Implementations ---

// 1. CachedCaptionStrategy prefers cards whose caption is known, saving a model call.
type CachedCaptionStrategy struct {
	Index CaptionIndex
}

func (s *CachedCaptionStrategy) PickCard(b *Bot, hand []deck.Card) (deck.Card, bool) {
	var known []deck.Card
	for _, card := range hand {
		if s.Index.Has(card) {
			known = append(known, card)
		}
	}
	if len(known) == 0 {
		return "", false
	}
	card := b.chooser.Pick(known)
	b.log.Debugf("Strategy: CACHED. %d of %d cards already described, telling about '%s'.", len(known), len(hand), card)
	return card, true
}

// 2. RandomStrategy picks any card of the hand.
type RandomStrategy struct{}

func (s *RandomStrategy) PickCard(b *Bot, hand []deck.Card) (deck.Card, bool) {
	if len(hand) == 0 {
		return "", false
	}
	return b.chooser.Pick(hand), true
}

// --- Utility Types ---

// StringDeque remembers the last maxSize strings pushed.
type StringDeque struct {
	elements []string
	maxSize  int
}

func NewStringDeque(maxSize int) *StringDeque {
	return &StringDeque{maxSize: maxSize}
}
func (d *StringDeque) Push(s string) {
	if d.maxSize <= 0 {
		return
	}
	d.elements = append(d.elements, s)
	if len(d.elements) > d.maxSize {
		d.elements = d.elements[1:]
	}
}
func (d *StringDeque) Contains(s string) bool {
	for _, e := range d.elements {
		if e == s {
			return true
		}
	}
	return false
}
func (d *StringDeque) Len() int { return len(d.elements) }
