package main

import (
	"flag"
	"math/rand"
	"os"
	"time"

	"dixit-toolbox/internal/cli"
	"dixit-toolbox/internal/config"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Parse command-line flags
	configPath := flag.String("config", "dixit.json", "Path to the game configuration file")
	logLevel := flag.String("loglevel", "info", "Set logging level (debug, info, warn, error)")
	width := flag.Int("width", 0, "Display width (overrides the configuration)")
	height := flag.Int("height", 0, "Display height (overrides the configuration)")
	title := flag.String("title", "", "Display title (overrides the configuration)")
	fullscreen := flag.Bool("fullscreen", false, "Clear the screen at the start of every round")
	seed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	flag.Parse()

	// 2. Set up top-level dependencies (Logger)
	tty := isatty.IsTerminal(os.Stdout.Fd())
	color.NoColor = !tty
	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, ForceColors: tty})

	// 3. Load .env and the game configuration
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warnf("Could not load .env: %v", err)
	}
	gameConfig, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if *width > 0 {
		gameConfig.Display.Width = *width
	}
	if *height > 0 {
		gameConfig.Display.Height = *height
	}
	if *title != "" {
		gameConfig.Display.Title = *title
	}
	if *fullscreen {
		gameConfig.Display.Fullscreen = true
	}

	// 4. Create the CLI, injecting the logger
	ui := cli.NewCLI(log)

	// 5. Run the application
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	log.Debugf("Random seed %d, display %dx%d.", *seed, gameConfig.Display.Width, gameConfig.Display.Height)
	randSource := rand.New(rand.NewSource(*seed))
	if err := ui.Run(flag.Args(), gameConfig, randSource); err != nil {
		log.Errorf("Application exited with error: %v", err)
		os.Exit(1)
	}
}
