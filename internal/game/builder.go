package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"dixit-toolbox/internal/ai"
	"dixit-toolbox/internal/config"
	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/player"
	"dixit-toolbox/internal/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPlayerCount = errors.New("invalid number of players")
	ErrNoServices         = errors.New("bots need caption, similarity and obfuscation services")
	ErrNoInput            = errors.New("human players need an input source")
)

type humanSeat struct {
	name  string
	input player.InputSource
}

// GameBuilder provides a step-by-step API for constructing a Game object.
type GameBuilder struct {
	cfg          *config.GameConfig
	eventManager *events.Manager
	log          *logrus.Logger
	rand         *rand.Rand
	humans       []humanSeat
	numBots      int
	suite        services.Suite
	cards        []deck.Card
	listeners    []events.Listener
	roundGate    func(ctx context.Context) error
}

// NewBuilder creates a new GameBuilder with its required dependencies.
func NewBuilder(cfg *config.GameConfig, logger *logrus.Logger, rand *rand.Rand) *GameBuilder {
	return &GameBuilder{
		cfg:          cfg.DeepCopy(),
		log:          logger,
		rand:         rand,
		eventManager: events.NewManager(),
	}
}

// EventManager is a public getter for the unexported field.
func (b *GameBuilder) EventManager() *events.Manager {
	return b.eventManager
}

// WithHuman seats a person. Humans sit first, in the order they are added.
func (b *GameBuilder) WithHuman(name string, input player.InputSource) *GameBuilder {
	b.humans = append(b.humans, humanSeat{name: name, input: input})
	return b
}

func (b *GameBuilder) WithBots(n int) *GameBuilder {
	b.numBots = n
	return b
}

// WithServices hands the bots their caption, similarity and obfuscation services.
func (b *GameBuilder) WithServices(suite services.Suite) *GameBuilder {
	b.suite = suite
	return b
}

// WithCards sets the card corpus. Without it a placeholder deck is used.
func (b *GameBuilder) WithCards(cards []deck.Card) *GameBuilder {
	b.cards = cards
	return b
}

// WithListeners subscribes renderers and recorders before any player, so they see every event.
func (b *GameBuilder) WithListeners(listeners ...events.Listener) *GameBuilder {
	b.listeners = append(b.listeners, listeners...)
	return b
}

// WithRoundGate installs the "start next round" signal Run waits for between rounds.
func (b *GameBuilder) WithRoundGate(gate func(ctx context.Context) error) *GameBuilder {
	b.roundGate = gate
	return b
}

// Build constructs the Game object after all options have been configured.
func (b *GameBuilder) Build() (*Game, error) {
	totalPlayers := len(b.humans) + b.numBots
	if b.numBots < 0 || totalPlayers < b.cfg.MinPlayers || totalPlayers > b.cfg.MaxPlayers {
		return nil, fmt.Errorf("%w: %d (allowed %d to %d)", ErrInvalidPlayerCount, totalPlayers, b.cfg.MinPlayers, b.cfg.MaxPlayers)
	}
	if b.numBots > 0 && (b.suite.Captioner == nil || b.suite.Scorer == nil || b.suite.Obfuscator == nil) {
		return nil, ErrNoServices
	}
	for _, h := range b.humans {
		if h.input == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoInput, h.name)
		}
	}

	// 1. Load and shuffle the deck
	cards := b.cards
	if len(cards) == 0 {
		b.log.Warnf("No card corpus given, using %d placeholder cards.", b.cfg.PlaceholderCards)
		cards = deck.Placeholder(b.cfg.PlaceholderCards)
	}
	d := deck.New(b.rand)
	if err := d.Load(cards); err != nil {
		return nil, err
	}
	d.Shuffle()

	// 2. Create the Game object
	game := &Game{
		ID:           uuid.NewString(),
		Config:       b.cfg,
		EventManager: b.eventManager,
		deck:         d,
		log:          b.log,
		rand:         b.rand,
		botTimeout:   b.cfg.BotTimeout(),
		roundGate:    b.roundGate,
	}
	for _, l := range b.listeners {
		b.eventManager.Subscribe(l)
	}

	// 3. Create players, inject dependencies, and subscribe them to events
	for i, h := range b.humans {
		game.Players = append(game.Players, player.NewHumanPlayer(i+1, h.name, h.input, b.eventManager))
	}
	for i := 0; i < b.numBots; i++ {
		id := len(b.humans) + i + 1
		// Each bot gets its own random source, derived from the game's.
		botRand := rand.New(rand.NewSource(b.rand.Int63()))
		chooser := ai.NewSeededChooser(botRand)
		bot := ai.NewBot(id, fmt.Sprintf("Bot %d", id), b.suite, b.cfg.BotSettings(), b.log, b.eventManager, chooser)
		game.Players = append(game.Players, bot)
	}
	for _, p := range game.Players {
		b.eventManager.Subscribe(p)
	}

	// 4. Deal the opening hands. A short opening deal means the corpus is too small.
	if _, err := d.Deal(game.holders(), b.cfg.HandSize); err != nil {
		return nil, fmt.Errorf("dealing %d cards to %d players from %d: %w", b.cfg.HandSize, totalPlayers, len(cards), err)
	}

	game.log.WithField("game", game.ID).Infof("Game ready with %d humans and %d bots.", len(b.humans), b.numBots)
	b.eventManager.Publish(events.GameReadyEvent{GameID: game.ID, Players: game.infos()})
	return game, nil
}
