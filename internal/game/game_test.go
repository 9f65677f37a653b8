package game

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"

	"dixit-toolbox/internal/config"
	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/round"
	"dixit-toolbox/internal/services"
	"dixit-toolbox/internal/services/local"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func localSuite(seed int64) services.Suite {
	return local.Suite(local.Captioner{}, rand.New(rand.NewSource(seed)))
}

// collector records every event it sees.
type collector struct {
	events []events.Event
}

func (c *collector) HandleEvent(e events.Event) { c.events = append(c.events, e) }

func (c *collector) count(match func(events.Event) bool) int {
	n := 0
	for _, e := range c.events {
		if match(e) {
			n++
		}
	}
	return n
}

func TestBuilderValidation(t *testing.T) {
	cfg := config.Default()
	log := quietLogger()

	t.Run("too few players", func(t *testing.T) {
		_, err := NewBuilder(cfg, log, rand.New(rand.NewSource(1))).WithServices(localSuite(1)).WithBots(2).Build()
		assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	})

	t.Run("too many players", func(t *testing.T) {
		_, err := NewBuilder(cfg, log, rand.New(rand.NewSource(1))).WithServices(localSuite(1)).WithBots(9).Build()
		assert.ErrorIs(t, err, ErrInvalidPlayerCount)
	})

	t.Run("bots without services", func(t *testing.T) {
		_, err := NewBuilder(cfg, log, rand.New(rand.NewSource(1))).WithBots(3).Build()
		assert.ErrorIs(t, err, ErrNoServices)
	})

	t.Run("human without input", func(t *testing.T) {
		_, err := NewBuilder(cfg, log, rand.New(rand.NewSource(1))).WithServices(localSuite(1)).WithHuman("Ada", nil).WithBots(2).Build()
		assert.ErrorIs(t, err, ErrNoInput)
	})

	t.Run("corpus too small for the opening deal", func(t *testing.T) {
		_, err := NewBuilder(cfg, log, rand.New(rand.NewSource(1))).
			WithServices(localSuite(1)).
			WithBots(3).
			WithCards(deck.Placeholder(10)).
			Build()
		assert.ErrorIs(t, err, deck.ErrInsufficientCards)
	})
}

func TestBuildDealsOpeningHands(t *testing.T) {
	// GIVEN the default configuration and a listener subscribed through the builder
	cfg := config.Default()
	seen := &collector{}

	// WHEN a game with one human and three bots is built
	g, err := NewBuilder(cfg, quietLogger(), rand.New(rand.NewSource(1))).
		WithServices(localSuite(1)).
		WithHuman("Ada", player.NewMailbox()).
		WithBots(3).
		WithListeners(seen).
		Build()
	require.NoError(t, err)

	// THEN humans sit first, every hand is full and the deck is what is left
	require.Len(t, g.Players, 4)
	assert.Equal(t, "Ada", g.Players[0].Name())
	assert.False(t, player.IsBot(g.Players[0]))
	assert.Equal(t, "Bot 4", g.Players[3].Name())
	for _, p := range g.Players {
		assert.Equal(t, cfg.HandSize, p.HandSize(), p.Name())
	}
	assert.Equal(t, cfg.PlaceholderCards-4*cfg.HandSize, g.Deck().Len())
	assert.NotEmpty(t, g.ID)

	ready := seen.count(func(e events.Event) bool { _, ok := e.(events.GameReadyEvent); return ok })
	assert.Equal(t, 1, ready)
}

// blockingStep drives the game one move at a time, waiting for bots.
func blockingStep(t *testing.T, g *Game) bool {
	t.Helper()
	advanced, err := g.step(context.Background(), true)
	require.NoError(t, err)
	return advanced
}

func TestHumanStorytellerRound(t *testing.T) {
	// GIVEN a human storyteller whose input arrives through a mailbox
	mailbox := player.NewMailbox()
	seen := &collector{}
	g, err := NewBuilder(config.Default(), quietLogger(), rand.New(rand.NewSource(3))).
		WithServices(localSuite(3)).
		WithHuman("Ada", mailbox).
		WithBots(3).
		WithListeners(seen).
		Build()
	require.NoError(t, err)
	require.NoError(t, g.StartRound())
	ada := g.Players[0]
	card := ada.Hand()[2]

	t.Run("nothing happens until the person answers", func(t *testing.T) {
		advanced, err := g.Step(context.Background())
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, round.AwaitingCardSelection, g.Round().Phase())
	})

	t.Run("a card without a clue is kept for later", func(t *testing.T) {
		mailbox.DeliverCard(2)
		advanced, err := g.Step(context.Background())
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, 6, ada.HandSize())
	})

	t.Run("a blank clue is rejected and asked again", func(t *testing.T) {
		mailbox.DeliverClue("   ")
		advanced, err := g.Step(context.Background())
		require.NoError(t, err)
		assert.False(t, advanced)
		rejected := seen.count(func(e events.Event) bool { _, ok := e.(events.MoveRejectedEvent); return ok })
		assert.Equal(t, 1, rejected)
	})

	t.Run("card and clue complete the storyteller turn", func(t *testing.T) {
		mailbox.DeliverClue("Card dream")
		assert.True(t, blockingStep(t, g))
		assert.Equal(t, "Card dream", g.Round().Clue())
		assert.Equal(t, 5, ada.HandSize())
		assert.Equal(t, card, ada.(*player.HumanPlayer).Played())
	})

	t.Run("the bots finish the round", func(t *testing.T) {
		for g.Round().Phase() != round.RoundEnd {
			require.True(t, blockingStep(t, g))
		}
		res, done := g.Round().Result()
		require.True(t, done)
		assert.Len(t, res.Table, 4)
		assert.Len(t, res.Votes, 3)
		_, votedSelf := res.Votes[ada.ID()]
		assert.False(t, votedSelf)

		total := 0
		for _, p := range g.Players {
			total += p.Score()
			assert.Equal(t, res.Deltas[p.ID()], p.Score())
		}
		assert.Positive(t, total)
	})
}

func TestStepDispatchesBotsWithoutBlocking(t *testing.T) {
	g, err := NewBuilder(config.Default(), quietLogger(), rand.New(rand.NewSource(5))).
		WithServices(localSuite(5)).
		WithBots(3).
		Build()
	require.NoError(t, err)
	require.NoError(t, g.StartRound())

	// WHEN Step is polled until the bot storyteller answers
	ctx := context.Background()
	for g.Round().Phase() == round.AwaitingCardSelection && g.Round().Clue() == "" {
		_, err := g.Step(ctx)
		require.NoError(t, err)
	}

	// THEN the decision was collected and no other is in flight
	assert.False(t, g.Waiting())
	assert.NotEmpty(t, g.Round().Clue())
}

func TestNextRoundRefillsAndRotates(t *testing.T) {
	g, err := NewBuilder(config.Default(), quietLogger(), rand.New(rand.NewSource(7))).
		WithServices(localSuite(7)).
		WithBots(3).
		Build()
	require.NoError(t, err)
	require.NoError(t, g.StartRound())
	assert.ErrorIs(t, g.NextRound(), ErrRoundRunning)

	for g.Round().Phase() != round.RoundEnd {
		blockingStep(t, g)
	}
	first := g.Round().Storyteller().ID()
	require.NoError(t, g.NextRound())

	assert.Equal(t, 2, g.Round().Number())
	assert.NotEqual(t, first, g.Round().Storyteller().ID())
	assert.Equal(t, g.Players[1].ID(), g.Round().Storyteller().ID())
	assert.Equal(t, 3, g.Deck().DiscardLen())
	for _, p := range g.Players {
		assert.Equal(t, 6, p.HandSize())
	}
}

func TestGameEndsOnRoundLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRounds = 2
	seen := &collector{}
	g, err := NewBuilder(cfg, quietLogger(), rand.New(rand.NewSource(11))).
		WithServices(localSuite(11)).
		WithBots(4).
		WithListeners(seen).
		Build()
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background()))

	assert.True(t, g.Over())
	assert.Equal(t, 2, g.Round().Number())
	var over events.GameOverEvent
	for _, e := range seen.events {
		if e, ok := e.(events.GameOverEvent); ok {
			over = e
		}
	}
	assert.Equal(t, ReasonMaxRounds, g.Reason())
	assert.Equal(t, 2, over.Rounds)
	assert.Equal(t, g.Reason(), over.Reason)
	assert.Equal(t, g.Winners(), over.Winners)
	assert.ErrorIs(t, g.StartRound(), ErrGameOver)
}

func TestGameEndsOnScoreThreshold(t *testing.T) {
	// GIVEN a threshold every round reaches: someone always earns at least the consolation
	cfg := config.Default()
	cfg.ScoreThreshold = 2
	g, err := NewBuilder(cfg, quietLogger(), rand.New(rand.NewSource(13))).
		WithServices(localSuite(13)).
		WithBots(3).
		Build()
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background()))

	assert.True(t, g.Over())
	assert.Equal(t, ReasonScoreThreshold, g.Reason())
	assert.Equal(t, 1, g.Round().Number())
	assert.GreaterOrEqual(t, g.Standings()[0].Score, 2)
}

func TestGameEndsWhenAHandIsEmpty(t *testing.T) {
	// GIVEN hands of a single card, all of which end up on the table
	cfg := config.Default()
	cfg.HandSize = 1
	seen := &collector{}
	g, err := NewBuilder(cfg, quietLogger(), rand.New(rand.NewSource(17))).
		WithServices(localSuite(17)).
		WithBots(3).
		WithCards(deck.Placeholder(3)).
		WithListeners(seen).
		Build()
	require.NoError(t, err)
	require.NoError(t, g.StartRound())
	for g.Round().Phase() != round.RoundEnd {
		blockingStep(t, g)
	}

	// WHEN a round is started before the hands are refilled
	require.NoError(t, g.StartRound())

	// THEN the game ends instead
	assert.True(t, g.Over())
	assert.Equal(t, ReasonOutOfCards, g.Reason())
	assert.Equal(t, 1, g.Round().Number())
	over := seen.count(func(e events.Event) bool { _, ok := e.(events.GameOverEvent); return ok })
	assert.Equal(t, 1, over)
}

func TestRunStallsWithoutInput(t *testing.T) {
	g, err := NewBuilder(config.Default(), quietLogger(), rand.New(rand.NewSource(19))).
		WithServices(localSuite(19)).
		WithHuman("Ada", player.NewMailbox()).
		WithBots(2).
		Build()
	require.NoError(t, err)

	err = g.Run(context.Background())
	assert.ErrorIs(t, err, player.ErrAwaitingInput)
	assert.False(t, g.Over())
}

func TestRunHonoursRoundGate(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRounds = 3
	cfg.ScoreThreshold = 1000
	gates := 0
	g, err := NewBuilder(cfg, quietLogger(), rand.New(rand.NewSource(23))).
		WithServices(localSuite(23)).
		WithBots(3).
		WithRoundGate(func(ctx context.Context) error {
			gates++
			return nil
		}).
		Build()
	require.NoError(t, err)

	require.NoError(t, g.Run(context.Background()))

	// The gate is asked between rounds, never after the last one.
	assert.Equal(t, 2, gates)
	assert.Equal(t, ReasonMaxRounds, g.Reason())
}

// brokenBot is a bot whose every decision fails.
type brokenBot struct {
	player.Seat
}

func (b *brokenBot) Kind() player.Kind          { return player.KindBot }
func (b *brokenBot) HandleEvent(e events.Event) {}
func (b *brokenBot) StorytellerTurn(ctx context.Context) (deck.Card, string, error) {
	return "", "", errors.New("boom")
}
func (b *brokenBot) ChooseCardForClue(ctx context.Context, clue string) (deck.Card, error) {
	return "", errors.New("boom")
}
func (b *brokenBot) Vote(ctx context.Context, table []deck.Card, clue string) (int, error) {
	return 0, errors.New("boom")
}

func TestBotFailureAbortsTheGame(t *testing.T) {
	// GIVEN a storyteller bot that cannot decide anything
	g, err := NewBuilder(config.Default(), quietLogger(), rand.New(rand.NewSource(29))).
		WithServices(localSuite(29)).
		WithBots(3).
		Build()
	require.NoError(t, err)
	broken := &brokenBot{Seat: player.NewSeat(1, "Broken")}
	broken.Receive("x.png")
	g.Players[0] = broken

	// WHEN the game runs
	err = g.Run(context.Background())

	// THEN the round is aborted and the game ends with the error
	assert.EqualError(t, err, "Broken failed to storyteller_card: boom")
	assert.True(t, g.Over())
	assert.Equal(t, ReasonAborted, g.Reason())
}

func TestStandingsAndWinners(t *testing.T) {
	g := &Game{}
	for i, score := range []int{4, 7, 7, 1} {
		p := player.NewHumanPlayer(i+1, []string{"Ada", "Bo", "Cy", "Di"}[i], player.NewMailbox(), nil)
		p.AddScore(score)
		g.Players = append(g.Players, p)
	}

	standings := g.Standings()
	assert.Equal(t, []string{"Bo", "Cy", "Ada", "Di"}, []string{standings[0].Name, standings[1].Name, standings[2].Name, standings[3].Name})
	assert.Equal(t, []string{"Bo", "Cy"}, g.Winners())
}
