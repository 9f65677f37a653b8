package ai

import (
	"context"
	"errors"
	"strings"
	"sync"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/scoring"
	"dixit-toolbox/internal/services"

	"github.com/sirupsen/logrus"
)

var ErrEmptyTable = errors.New("no card on the table can be voted for")

// BotConfig holds the tunables of a bot player.
type BotConfig struct {
	// FallbackClue is told when the card could not be described at all.
	FallbackClue string
	// Temperature is the starting creativity handed to the obfuscator.
	Temperature float64
	// ClueMemory is how many recent clues the bot avoids repeating.
	ClueMemory int
}

func DefaultBotConfig() BotConfig {
	return BotConfig{
		FallbackClue: "A mysterious scene",
		Temperature:  0.7,
		ClueMemory:   5,
	}
}

// Bot implements the Player interface using the caption, similarity and obfuscation services.
// Service failures never escape a decision: the bot falls back to a fixed clue or treats the card
// as the worst match.
type Bot struct {
	player.Seat

	services     services.Suite
	strategies   []StorytellerStrategy
	chooser      Chooser
	recentClues  *StringDeque
	fallbackClue string
	eventManager *events.Manager
	log          logrus.FieldLogger

	mu          sync.Mutex
	temperature float64
}

// NewBot is the constructor for the AI player. It injects dependencies.
func NewBot(id int, name string, suite services.Suite, cfg BotConfig, logger logrus.FieldLogger, eventManager *events.Manager, chooser Chooser) *Bot {
	if strings.TrimSpace(cfg.FallbackClue) == "" {
		cfg.FallbackClue = DefaultBotConfig().FallbackClue
	}
	b := &Bot{
		Seat:         player.NewSeat(id, name),
		services:     suite,
		chooser:      chooser,
		recentClues:  NewStringDeque(cfg.ClueMemory),
		fallbackClue: cfg.FallbackClue,
		eventManager: eventManager,
		log:          logger.WithField("player", name),
		temperature:  scoring.AdjustTemperature(scoring.FeedbackNeutral, cfg.Temperature),
	}
	if index, ok := suite.Captioner.(CaptionIndex); ok {
		b.strategies = append(b.strategies, &CachedCaptionStrategy{Index: index})
	}
	b.strategies = append(b.strategies, &RandomStrategy{})
	return b
}

func (b *Bot) Kind() player.Kind { return player.KindBot }

// Temperature is the creativity the next clue will be generated with.
func (b *Bot) Temperature() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.temperature
}

func (b *Bot) HandleEvent(e events.Event) {
	switch event := e.(type) {
	case events.RoundScoredEvent:
		if event.StorytellerID == b.ID() {
			b.learnFromRound(event)
		}
	}
}

// learnFromRound nudges the temperature: clues everyone or nobody solved get bolder, balanced
// clues get slightly tamer.
func (b *Bot) learnFromRound(event events.RoundScoredEvent) {
	correct := scoring.CorrectGuesses(event.Table, event.Votes, b.ID())
	fb := scoring.ClueFeedback(correct, len(event.Players))

	b.mu.Lock()
	before := b.temperature
	b.temperature = scoring.AdjustTemperature(fb, b.temperature)
	after := b.temperature
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{"correct": correct, "feedback": fb}).
		Debugf("Clue temperature %.2f -> %.2f.", before, after)
}

func (b *Bot) StorytellerTurn(ctx context.Context) (deck.Card, string, error) {
	hand := b.Hand()
	if len(hand) == 0 {
		return "", "", player.ErrEmptyHand
	}
	card := b.pickStoryCard(hand)
	if err := b.Take(card); err != nil {
		return "", "", err
	}
	clue := b.tellClue(ctx, card)
	b.recentClues.Push(clue)
	b.log.Infof("Tells '%s'.", clue)
	return card, clue, nil
}

func (b *Bot) pickStoryCard(hand []deck.Card) deck.Card {
	for _, s := range b.strategies {
		if card, ok := s.PickCard(b, hand); ok {
			return card
		}
	}
	return hand[0]
}

func (b *Bot) tellClue(ctx context.Context, card deck.Card) string {
	caption, err := b.services.Captioner.Caption(ctx, card)
	if err != nil || strings.TrimSpace(caption) == "" {
		b.reportFailure("caption", card, err)
		return b.fallbackClue
	}

	clue, err := b.obfuscate(ctx, card, caption)
	if err != nil {
		return services.FallbackClue(caption, 0)
	}
	if b.recentClues.Contains(clue) {
		b.log.Debugf("Clue '%s' was told recently, asking again.", clue)
		if again, err := b.obfuscate(ctx, card, caption); err == nil {
			clue = again
		}
	}
	return clue
}

func (b *Bot) obfuscate(ctx context.Context, card deck.Card, caption string) (string, error) {
	clue, err := b.services.Obfuscator.Obfuscate(ctx, caption, b.Temperature())
	if err == nil {
		clue = services.RemoveRepetitions(strings.TrimSpace(clue))
		if clue == "" {
			err = player.ErrEmptyClue
		}
	}
	if err != nil {
		b.reportFailure("obfuscate", card, err)
		return "", err
	}
	return clue, nil
}

func (b *Bot) ChooseCardForClue(ctx context.Context, clue string) (deck.Card, error) {
	hand := b.Hand()
	if len(hand) == 0 {
		return "", player.ErrEmptyHand
	}
	scores := b.scoreCards(ctx, hand, clue)
	card := hand[bestIndex(scores, -1)]
	if err := b.Take(card); err != nil {
		return "", err
	}
	return card, nil
}

func (b *Bot) Vote(ctx context.Context, table []deck.Card, clue string) (int, error) {
	own := -1
	for i, card := range table {
		if card == b.Played() {
			own = i
			break
		}
	}
	candidates := make([]deck.Card, len(table))
	copy(candidates, table)
	if own >= 0 {
		// Never worth scoring.
		candidates[own] = ""
	}
	choice := bestIndex(b.scoreCards(ctx, candidates, clue), own)
	if choice < 0 {
		return 0, ErrEmptyTable
	}
	return choice, nil
}

// scoreCards rates every card against the clue. Failed or skipped cards get the minimum score.
func (b *Bot) scoreCards(ctx context.Context, cards []deck.Card, clue string) []float64 {
	scores := make([]float64, len(cards))
	for i, card := range cards {
		scores[i] = services.MinScore
		if card == "" {
			continue
		}
		s, err := b.services.Scorer.Score(ctx, card, clue)
		if err != nil {
			b.reportFailure("score", card, err)
			continue
		}
		scores[i] = s
	}
	return scores
}

// bestIndex returns the position of the highest score, the first one on ties. skip is never picked.
func bestIndex(scores []float64, skip int) int {
	best := -1
	for i, s := range scores {
		if i == skip {
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

func (b *Bot) reportFailure(op string, card deck.Card, err error) {
	if err == nil {
		err = errors.New("empty response")
	}
	b.log.WithFields(logrus.Fields{"op": op, "card": card}).Warnf("Service failed, falling back: %v", err)
	if b.eventManager != nil {
		b.eventManager.Publish(events.ServiceFailureEvent{
			PlayerName: b.Name(),
			Operation:  op,
			Card:       card,
			Err:        err.Error(),
		})
	}
}
