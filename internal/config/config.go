package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"dixit-toolbox/internal/ai"
	"dixit-toolbox/internal/scoring"
	"dixit-toolbox/internal/services"

	"github.com/joeshaw/envdecode"
)

var ErrInvalidConfig = errors.New("invalid game configuration")

// GameConfig holds the settings of a game of Dixit. It is read from a JSON file and then
// overridden from the environment.
type GameConfig struct {
	HandSize         int           `json:"hand_size" env:"DIXIT_HAND_SIZE"`
	MaxRounds        int           `json:"max_rounds" env:"DIXIT_MAX_ROUNDS"`
	ScoreThreshold   int           `json:"score_threshold" env:"DIXIT_SCORE_THRESHOLD"`
	DefaultBots      int           `json:"default_bots" env:"DIXIT_DEFAULT_BOTS"`
	MinPlayers       int           `json:"min_players"`
	MaxPlayers       int           `json:"max_players"`
	Rules            scoring.Rules `json:"rules"`
	BotTimeoutMS     int           `json:"bot_timeout_ms" env:"DIXIT_BOT_TIMEOUT_MS"`
	CardsDir         string        `json:"cards_dir" env:"DIXIT_CARDS_DIR"`
	PlaceholderCards int           `json:"placeholder_cards"`
	CaptionCachePath string        `json:"caption_cache_path" env:"DIXIT_CAPTION_CACHE"`

	Retry    RetryConfig    `json:"retry"`
	Bot      BotConfig      `json:"bot"`
	EventLog EventLogConfig `json:"event_log"`
	OpenAI   OpenAIConfig   `json:"openai"`
	Display  DisplayConfig  `json:"display"`
}

type RetryConfig struct {
	Attempts    int `json:"attempts" env:"DIXIT_RETRY_ATTEMPTS"`
	BaseDelayMS int `json:"base_delay_ms"`
	MaxDelayMS  int `json:"max_delay_ms"`
}

type BotConfig struct {
	FallbackClue  string   `json:"fallback_clue" env:"DIXIT_FALLBACK_CLUE"`
	Temperature   float64  `json:"temperature"`
	ClueMemory    int      `json:"clue_memory"`
	BannedPhrases []string `json:"banned_phrases"`
}

// EventLogConfig selects the sinks of the event log. Empty values disable a sink.
type EventLogConfig struct {
	CSVPath   string `json:"csv_path" env:"DIXIT_EVENT_CSV"`
	JSONLPath string `json:"jsonl_path" env:"DIXIT_EVENT_JSONL"`
	DBDriver  string `json:"db_driver" env:"DIXIT_EVENT_DB_DRIVER"`
	DBDSN     string `json:"db_dsn" env:"DIXIT_EVENT_DB_DSN"`
}

type OpenAIConfig struct {
	APIKey         string `json:"-" env:"OPENAI_API_KEY"`
	BaseURL        string `json:"base_url" env:"OPENAI_BASE_URL"`
	ChatModel      string `json:"chat_model" env:"OPENAI_MODEL"`
	VisionModel    string `json:"vision_model" env:"OPENAI_VISION_MODEL"`
	EmbeddingModel string `json:"embedding_model" env:"OPENAI_EMBEDDING_MODEL"`
	TimeoutMS      int    `json:"timeout_ms"`
}

type DisplayConfig struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Title      string `json:"title"`
	Fullscreen bool   `json:"fullscreen"`
}

func Default() *GameConfig {
	return &GameConfig{
		HandSize:         6,
		MaxRounds:        10,
		ScoreThreshold:   30,
		DefaultBots:      3,
		MinPlayers:       3,
		MaxPlayers:       8,
		Rules:            scoring.DefaultRules(),
		BotTimeoutMS:     20000,
		CardsDir:         "data/cards",
		PlaceholderCards: 84,
		CaptionCachePath: "data/captions.json",
		Retry:            RetryConfig{Attempts: 3, BaseDelayMS: 1000, MaxDelayMS: 8000},
		Bot: BotConfig{
			FallbackClue:  ai.DefaultBotConfig().FallbackClue,
			Temperature:   ai.DefaultBotConfig().Temperature,
			ClueMemory:    ai.DefaultBotConfig().ClueMemory,
			BannedPhrases: []string{"whispers of grace"},
		},
		EventLog: EventLogConfig{CSVPath: "data/game_log.csv"},
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o-mini",
			VisionModel:    "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			TimeoutMS:      30000,
		},
		Display: DisplayConfig{Width: 1280, Height: 800, Title: "Dixit"},
	}
}

// Load reads the configuration file at path on top of the defaults. A missing file, or an empty
// path, yields the defaults. Environment overrides are applied last.
func Load(path string) (*GameConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the fields tagged with env from the process environment.
func (c *GameConfig) ApplyEnv() error {
	err := envdecode.Decode(c)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

func (c *GameConfig) Validate() error {
	switch {
	case c.HandSize < 1:
		return fmt.Errorf("%w: hand size must be positive", ErrInvalidConfig)
	case c.MinPlayers < 3:
		return fmt.Errorf("%w: at least 3 players are needed", ErrInvalidConfig)
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("%w: max players below min players", ErrInvalidConfig)
	case c.MaxRounds < 1:
		return fmt.Errorf("%w: max rounds must be positive", ErrInvalidConfig)
	case c.ScoreThreshold < 1:
		return fmt.Errorf("%w: score threshold must be positive", ErrInvalidConfig)
	case c.DefaultBots < 0:
		return fmt.Errorf("%w: default bots cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// RetryPolicy converts the retry settings for the service adapters.
func (c *GameConfig) RetryPolicy() services.RetryPolicy {
	return services.RetryPolicy{
		Attempts:  c.Retry.Attempts,
		BaseDelay: time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:  time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
	}
}

// BotTimeout bounds a single bot decision. Zero means no bound.
func (c *GameConfig) BotTimeout() time.Duration {
	return time.Duration(c.BotTimeoutMS) * time.Millisecond
}

func (c *GameConfig) BotSettings() ai.BotConfig {
	return ai.BotConfig{
		FallbackClue: c.Bot.FallbackClue,
		Temperature:  c.Bot.Temperature,
		ClueMemory:   c.Bot.ClueMemory,
	}
}

// DeepCopy creates a new GameConfig with all slices copied to prevent shared state.
func (c *GameConfig) DeepCopy() *GameConfig {
	newCfg := *c
	newCfg.Bot.BannedPhrases = make([]string, len(c.Bot.BannedPhrases))
	copy(newCfg.Bot.BannedPhrases, c.Bot.BannedPhrases)
	return &newCfg
}
