// Package config loads the bot configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration. Every knob has a default apart
// from the bot token.
type Config struct {
	TelegramToken  string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AllowedChatIDs []int64 `env:"ALLOWED_CHAT_IDS" envSeparator:","`

	LedgerDriver  string `env:"LEDGER_DRIVER" envDefault:"redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"arena.db"`

	CheckInTimezone string `env:"CHECKIN_TZ" envDefault:"Asia/Shanghai"`
	CheckInBonus    int    `env:"CHECKIN_BONUS" envDefault:"1000"`
	BegMin          int    `env:"BEG_MIN" envDefault:"100"`
	BegMax          int    `env:"BEG_MAX" envDefault:"200"`

	DuelBetWindow time.Duration `env:"DUEL_BET_WINDOW" envDefault:"60s"`
	RaceBetWindow time.Duration `env:"RACE_BET_WINDOW" envDefault:"30s"`
	TickDelay     time.Duration `env:"TICK_DELAY" envDefault:"3s"`
	MaxRounds     int           `env:"MAX_ROUNDS" envDefault:"200"`
	DuelMinBet    int           `env:"DUEL_MIN_BET" envDefault:"100"`
	DuelMaxBet    int           `env:"DUEL_MAX_BET" envDefault:"500"`
	RaceMinBet    int           `env:"RACE_MIN_BET" envDefault:"1"`
	RaceMaxBet    int           `env:"RACE_MAX_BET" envDefault:"1000000"`

	RelayAPIKey    string `env:"RELAY_API_KEY"`
	RelayBaseURL   string `env:"RELAY_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	RelayModel     string `env:"RELAY_MODEL" envDefault:"deepseek-chat"`
	RelayMaxChars  int    `env:"RELAY_MAX_CONTEXT_CHARS" envDefault:"3000"`
	FetchHost      string `env:"FETCH_HOST"`
	FetchMaxActive int    `env:"FETCH_MAX_ACTIVE" envDefault:"3"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.LedgerDriver != "redis" && cfg.LedgerDriver != "sqlite" {
		return nil, fmt.Errorf("unknown LEDGER_DRIVER %q (want redis or sqlite)", cfg.LedgerDriver)
	}
	if _, err := time.LoadLocation(cfg.CheckInTimezone); err != nil {
		return nil, fmt.Errorf("bad CHECKIN_TZ %q: %w", cfg.CheckInTimezone, err)
	}
	return cfg, nil
}

// ChatAllowed reports whether the chat may use the bot. An empty allowlist
// admits every chat.
func (c *Config) ChatAllowed(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
