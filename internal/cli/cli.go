package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"dixit-toolbox/internal/config"
	"dixit-toolbox/internal/deck"
	"dixit-toolbox/internal/eventlog"
	"dixit-toolbox/internal/events"
	"dixit-toolbox/internal/game"
	"dixit-toolbox/internal/services"
	"dixit-toolbox/internal/services/local"
	"dixit-toolbox/internal/services/openai"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
)

// CLI manages all command-line interactions.
type CLI struct {
	log *logrus.Logger
	out io.Writer
}

// NewCLI creates a new command-line interface manager.
func NewCLI(log *logrus.Logger) *CLI {
	return &CLI{log: log, out: color.Output}
}

// Run is the main entry point for the CLI application.
func (c *CLI) Run(args []string, cfg *config.GameConfig, rand *rand.Rand) error {
	if len(args) < 1 {
		c.printUsage()
		return errors.New("no command provided")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "play":
		if len(args) != 3 {
			c.printUsage()
			return errors.New("invalid arguments for 'play' command")
		}
		numHumans, err1 := strconv.Atoi(args[1])
		numBots, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil || numHumans < 1 {
			c.printUsage()
			return errors.New("'play' needs at least one human and a bot count")
		}
		return c.runPlayMode(ctx, cfg, numHumans, numBots, rand)
	case "simulate":
		numBots := cfg.DefaultBots
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				c.printUsage()
				return fmt.Errorf("invalid bot count '%s'", args[1])
			}
			numBots = n
		} else if len(args) > 2 {
			c.printUsage()
			return errors.New("invalid arguments for 'simulate' command")
		}
		return c.runSimulationMode(ctx, cfg, numBots, rand)
	default:
		c.printUsage()
		return fmt.Errorf("unknown command '%s'", args[0])
	}
}

func (c *CLI) runSimulationMode(ctx context.Context, cfg *config.GameConfig, numBots int, rand *rand.Rand) error {
	C.Header.Fprintln(c.out, "--- Running Bot Simulation ---")
	cards, err := deck.LoadDir(cfg.CardsDir)
	if err != nil {
		c.log.Warnf("Card corpus unavailable (%v); simulating with placeholder cards.", err)
	}
	builder := game.NewBuilder(cfg, c.log, rand).WithBots(numBots).WithCards(cards)
	return c.play(ctx, cfg, builder, cards, rand)
}

func (c *CLI) runPlayMode(ctx context.Context, cfg *config.GameConfig, numHumans, numBots int, rand *rand.Rand) error {
	cards, err := deck.LoadDir(cfg.CardsDir)
	if err != nil {
		return fmt.Errorf("loading cards: %w", err)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	prompter := NewPrompter(line, c.out)

	builder := game.NewBuilder(cfg, c.log, rand).WithBots(numBots).WithCards(cards).WithRoundGate(prompter.NextRound)
	for i := 0; i < numHumans; i++ {
		name, err := prompter.promptForString(fmt.Sprintf("Enter name for Player %d: ", i+1))
		if err != nil {
			return err
		}
		builder.WithHuman(name, prompter)
	}

	err = c.play(ctx, cfg, builder, cards, rand)
	if errors.Is(err, ErrQuit) {
		C.Info.Fprintln(c.out, "\nGoodbye!")
		return nil
	}
	return err
}

// play wires services, event log and renderer into the builder and runs the game.
func (c *CLI) play(ctx context.Context, cfg *config.GameConfig, builder *game.GameBuilder, cards []deck.Card, rand *rand.Rand) error {
	suite, warm, err := c.buildServices(cfg, rand)
	if err != nil {
		return err
	}
	if err := c.warmUp(ctx, warm, cards); err != nil {
		return fmt.Errorf("warming up services: %w", err)
	}

	sink, err := buildSinks(cfg.EventLog)
	if err != nil {
		return err
	}
	listeners := []events.Listener{NewRenderer(c.out, cfg.Display.Title, cfg.Display.Fullscreen)}
	if sink != nil {
		defer func() {
			if err := sink.Close(); err != nil {
				c.log.Warnf("Closing event log: %v", err)
			}
		}()
		listeners = append(listeners, eventlog.NewRecorder(sink, c.log))
	}

	g, err := builder.WithServices(suite).WithListeners(listeners...).Build()
	if err != nil {
		return fmt.Errorf("failed to build game: %w", err)
	}
	return g.Run(ctx)
}

// buildServices picks the OpenAI adapters when a key is configured and the offline ones
// otherwise. The returned function warms up the caption cache.
func (c *CLI) buildServices(cfg *config.GameConfig, rnd *rand.Rand) (services.Suite, func(ctx context.Context, cards []deck.Card) error, error) {
	policy := cfg.RetryPolicy()

	var provider services.Captioner = local.Captioner{}
	var client *openai.Client
	if cfg.OpenAI.APIKey != "" {
		var err error
		client, err = openai.NewClient(openai.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			ChatModel:      cfg.OpenAI.ChatModel,
			VisionModel:    cfg.OpenAI.VisionModel,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			Timeout:        time.Duration(cfg.OpenAI.TimeoutMS) * time.Millisecond,
			BannedPhrases:  cfg.Bot.BannedPhrases,
		}, c.log)
		if err != nil {
			return services.Suite{}, nil, err
		}
		provider = client
		c.log.Infof("Using OpenAI models %s / %s.", cfg.OpenAI.VisionModel, cfg.OpenAI.ChatModel)
	} else {
		c.log.Info("No OpenAI key configured; bots use offline captions.")
	}

	retried := services.WithRetry(services.Suite{Captioner: provider}, policy, c.log).Captioner
	cache := services.NewCaptionCache(cfg.CaptionCachePath, retried, c.log)

	var suite services.Suite
	if client != nil {
		suite = client.Suite(cache)
	} else {
		suite = local.Suite(cache, rand.New(rand.NewSource(rnd.Int63())))
	}
	suite = services.WithRetry(suite, policy, c.log)
	// The cache already retries underneath and must stay visible to the bots' card strategy.
	suite.Captioner = cache

	warm := func(ctx context.Context, cards []deck.Card) error {
		if err := cache.Load(); err != nil {
			return err
		}
		if len(cards) > 0 {
			if _, err := cache.Caption(ctx, cards[0]); err != nil {
				return err
			}
		}
		c.log.Infof("%s captions cached.", humanize.Comma(int64(cache.Len())))
		return nil
	}
	return suite, warm, nil
}

// warmUp runs the warm-up on its own goroutine and shows a spinner until it resolves.
func (c *CLI) warmUp(ctx context.Context, warm func(ctx context.Context, cards []deck.Card) error, cards []deck.Card) error {
	start := time.Now()
	done := services.WarmUp(ctx, func(ctx context.Context) error { return warm(ctx, cards) })
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	frames := []string{"|", "/", "-", "\\"}
	for i := 0; ; i++ {
		select {
		case err := <-done:
			fmt.Fprint(c.out, "\r")
			if err == nil {
				C.Info.Fprintf(c.out, "Services ready in %s.\n", time.Since(start).Round(time.Millisecond))
			}
			return err
		case <-ticker.C:
			fmt.Fprintf(c.out, "\rLoading models %s", frames[i%len(frames)])
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// buildSinks opens every configured event log. It returns nil when none is configured.
func buildSinks(cfg config.EventLogConfig) (eventlog.Sink, error) {
	var sinks eventlog.Multi
	if cfg.CSVPath != "" {
		s, err := eventlog.NewCSVSink(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.JSONLPath != "" {
		s, err := eventlog.NewJSONLSink(cfg.JSONLPath)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.DBDriver != "" {
		s, err := eventlog.NewSQLSink(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

func (c *CLI) printUsage() {
	C.Header.Fprintln(c.out, "\n--- Dixit Toolbox ---")
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendHeader(table.Row{"Command", "Description"})
	t.AppendRows([]table.Row{
		{"play <humans> <bots>", "Play at the terminal against bots."},
		{"simulate [bots]", "Watch a bots-only game to the end."},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
	fmt.Fprintln(c.out, "\nFlags:")
	fmt.Fprintln(c.out, "  -config path      Game configuration file.")
	fmt.Fprintln(c.out, "  -loglevel debug   Enable detailed bot and round tracing.")
	fmt.Fprintln(c.out, "  -seed n           Reproduce a game.")
}
