package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/scoring"
	"dixit-toolbox/internal/services"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCaptioner describes cards from a fixed table and fails for anything else.
type fakeCaptioner map[deck.Card]string

func (f fakeCaptioner) Caption(ctx context.Context, card deck.Card) (string, error) {
	if c, ok := f[card]; ok {
		return c, nil
	}
	return "", errors.New("caption model offline")
}

// fakeScorer returns a fixed score per card and fails for cards it does not know.
type fakeScorer map[deck.Card]float64

func (f fakeScorer) Score(ctx context.Context, card deck.Card, text string) (float64, error) {
	if s, ok := f[card]; ok {
		return s, nil
	}
	return 0, errors.New("similarity model offline")
}

type fakeObfuscator struct {
	clues []string
	err   error
	temps []float64
}

func (f *fakeObfuscator) Obfuscate(ctx context.Context, text string, temperature float64) (string, error) {
	f.temps = append(f.temps, temperature)
	if f.err != nil {
		return "", f.err
	}
	clue := f.clues[0]
	if len(f.clues) > 1 {
		f.clues = f.clues[1:]
	}
	return clue, nil
}

type cachedCaptioner struct {
	fakeCaptioner
	known map[deck.Card]bool
}

func (c cachedCaptioner) Has(card deck.Card) bool { return c.known[card] }

// setupTestBot creates a clean bot for each test.
func setupTestBot(suite services.Suite, hand ...deck.Card) (*Bot, *[]events.Event) {
	// GIVEN a "null" logger and a deterministic chooser
	log := logrus.New()
	log.SetOutput(io.Discard)
	bus := events.NewManager()
	var published []events.Event
	bus.Subscribe(events.ListenerFunc(func(e events.Event) { published = append(published, e) }))

	bot := NewBot(2, "Bot 2", suite, DefaultBotConfig(), log, bus, FirstByName{})
	bot.Receive(hand...)
	return bot, &published
}

func TestStorytellerTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("it captions then obfuscates the chosen card", func(t *testing.T) {
		// GIVEN a bot whose services all work
		obf := &fakeObfuscator{clues: []string{"  Quiet quiet harbour "}}
		bot, _ := setupTestBot(services.Suite{
			Captioner:  fakeCaptioner{"b.png": "a boat in a harbour", "a.png": "a kite"},
			Obfuscator: obf,
		}, "b.png", "a.png")

		// WHEN it takes its storyteller turn
		card, clue, err := bot.StorytellerTurn(ctx)

		// THEN the card left the hand and the clue is cleaned up
		require.NoError(t, err)
		assert.Equal(t, deck.Card("a.png"), card)
		assert.Equal(t, "Quiet harbour", clue)
		assert.Equal(t, []deck.Card{"b.png"}, bot.Hand())
		assert.Equal(t, []float64{0.7}, obf.temps)
	})

	t.Run("a caption failure yields the fixed fallback clue", func(t *testing.T) {
		bot, published := setupTestBot(services.Suite{
			Captioner:  fakeCaptioner{},
			Obfuscator: &fakeObfuscator{clues: []string{"never"}},
		}, "x.png")

		card, clue, err := bot.StorytellerTurn(ctx)

		require.NoError(t, err)
		assert.Equal(t, deck.Card("x.png"), card)
		assert.Equal(t, DefaultBotConfig().FallbackClue, clue)
		assert.Zero(t, bot.HandSize())
		require.Len(t, *published, 1)
		failure := (*published)[0].(events.ServiceFailureEvent)
		assert.Equal(t, "caption", failure.Operation)
	})

	t.Run("an obfuscation failure yields a keyword clue", func(t *testing.T) {
		bot, _ := setupTestBot(services.Suite{
			Captioner:  fakeCaptioner{"x.png": "lighthouse in a storm"},
			Obfuscator: &fakeObfuscator{err: errors.New("rate limited")},
		}, "x.png")

		_, clue, err := bot.StorytellerTurn(ctx)

		require.NoError(t, err)
		assert.Equal(t, "A glimpse of lighthouse...", clue)
	})

	t.Run("a repeated clue is asked for again", func(t *testing.T) {
		obf := &fakeObfuscator{clues: []string{"Fog", "Fog", "Mist"}}
		bot, _ := setupTestBot(services.Suite{
			Captioner:  fakeCaptioner{"a.png": "hills", "b.png": "hills"},
			Obfuscator: obf,
		}, "a.png", "b.png")

		_, first, err := bot.StorytellerTurn(ctx)
		require.NoError(t, err)
		_, second, err := bot.StorytellerTurn(ctx)
		require.NoError(t, err)

		assert.Equal(t, "Fog", first)
		assert.Equal(t, "Mist", second)
	})

	t.Run("it prefers cards with a cached caption", func(t *testing.T) {
		captions := cachedCaptioner{
			fakeCaptioner: fakeCaptioner{"a.png": "kite", "z.png": "zebra"},
			known:         map[deck.Card]bool{"z.png": true},
		}
		bot, _ := setupTestBot(services.Suite{
			Captioner:  captions,
			Obfuscator: &fakeObfuscator{clues: []string{"Stripes"}},
		}, "a.png", "z.png")

		card, _, err := bot.StorytellerTurn(ctx)

		require.NoError(t, err)
		assert.Equal(t, deck.Card("z.png"), card)
	})

	t.Run("an empty hand is an error", func(t *testing.T) {
		bot, _ := setupTestBot(services.Suite{})
		_, _, err := bot.StorytellerTurn(ctx)
		assert.ErrorIs(t, err, player.ErrEmptyHand)
	})
}

func TestChooseCardForClue(t *testing.T) {
	ctx := context.Background()

	t.Run("it plays the best match, first one on ties", func(t *testing.T) {
		bot, _ := setupTestBot(services.Suite{
			Scorer: fakeScorer{"a.png": 0.2, "b.png": 0.9, "c.png": 0.9},
		}, "a.png", "b.png", "c.png")

		card, err := bot.ChooseCardForClue(ctx, "storm")

		require.NoError(t, err)
		assert.Equal(t, deck.Card("b.png"), card)
		assert.Equal(t, []deck.Card{"a.png", "c.png"}, bot.Hand())
	})

	t.Run("a failed score is never preferred", func(t *testing.T) {
		bot, published := setupTestBot(services.Suite{
			Scorer: fakeScorer{"b.png": -5},
		}, "a.png", "b.png")

		card, err := bot.ChooseCardForClue(ctx, "storm")

		require.NoError(t, err)
		assert.Equal(t, deck.Card("b.png"), card)
		assert.Len(t, *published, 1)
	})

	t.Run("it still plays when every score fails", func(t *testing.T) {
		bot, _ := setupTestBot(services.Suite{Scorer: fakeScorer{}}, "a.png", "b.png")

		card, err := bot.ChooseCardForClue(ctx, "storm")

		require.NoError(t, err)
		assert.Equal(t, deck.Card("a.png"), card)
	})

	t.Run("an empty hand is an error", func(t *testing.T) {
		bot, _ := setupTestBot(services.Suite{Scorer: fakeScorer{}})
		_, err := bot.ChooseCardForClue(ctx, "storm")
		assert.ErrorIs(t, err, player.ErrEmptyHand)
	})
}

func TestVote(t *testing.T) {
	ctx := context.Background()

	// GIVEN a bot that played "mine.png", which is the best match for the clue
	bot, _ := setupTestBot(services.Suite{
		Scorer: fakeScorer{"mine.png": 1.0, "x.png": 0.4, "y.png": 0.6, "z.png": 0.6},
	}, "mine.png")
	_, err := bot.ChooseCardForClue(ctx, "storm")
	require.NoError(t, err)

	// WHEN it votes
	choice, err := bot.Vote(ctx, []deck.Card{"x.png", "mine.png", "y.png", "z.png"}, "storm")

	// THEN it skips its own card and takes the first of the tied best
	require.NoError(t, err)
	assert.Equal(t, 2, choice)

	t.Run("an all-failing table still gets a valid vote", func(t *testing.T) {
		choice, err := bot.Vote(ctx, []deck.Card{"mine.png", "q.png", "r.png"}, "storm")
		require.NoError(t, err)
		assert.Equal(t, 1, choice)
	})

	t.Run("a table holding only its own card cannot be voted on", func(t *testing.T) {
		_, err := bot.Vote(ctx, []deck.Card{"mine.png"}, "storm")
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}

func TestTemperatureFollowsClueFeedback(t *testing.T) {
	bot, _ := setupTestBot(services.Suite{})
	players := make([]events.PlayerInfo, 4)
	table := scoring.Table{{PlayerID: 1, Card: "a"}, {PlayerID: 2, Card: "b"}, {PlayerID: 3, Card: "c"}, {PlayerID: 4, Card: "d"}}

	// WHEN nobody found the bot's card
	bot.HandleEvent(events.RoundScoredEvent{StorytellerID: 2, Table: table, Votes: scoring.Votes{1: 0, 3: 0, 4: 0}, Players: players})
	// THEN its next clue is bolder
	assert.InDelta(t, 0.8, bot.Temperature(), 1e-9)

	// WHEN the clue is balanced
	bot.HandleEvent(events.RoundScoredEvent{StorytellerID: 2, Table: table, Votes: scoring.Votes{1: 1, 3: 0, 4: 2}, Players: players})
	assert.InDelta(t, 0.75, bot.Temperature(), 1e-9)

	// WHEN someone else was the storyteller nothing changes
	bot.HandleEvent(events.RoundScoredEvent{StorytellerID: 1, Table: table, Votes: scoring.Votes{2: 0, 3: 1, 4: 1}, Players: players})
	assert.InDelta(t, 0.75, bot.Temperature(), 1e-9)
}

func TestStringDequeForgetsOldest(t *testing.T) {
	d := NewStringDeque(2)
	d.Push("a")
	d.Push("b")
	d.Push("c")
	assert.False(t, d.Contains("a"))
	assert.True(t, d.Contains("c"))
	assert.Equal(t, 2, d.Len())
}

func TestFirstByNameDoesNotReorderInput(t *testing.T) {
	cards := []deck.Card{"c", "a", "b"}
	assert.Equal(t, deck.Card("a"), FirstByName{}.Pick(cards))
	assert.Equal(t, []deck.Card{"c", "a", "b"}, cards)
}
