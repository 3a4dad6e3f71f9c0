package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, with an optional .env file.
type Config struct {
	DiscordToken string   `env:"DISCORD_TOKEN"`
	AppID        string   `env:"DISCORD_APP_ID"`
	Owners       []string `env:"BOT_OWNERS" envSeparator:","`
	Prefix       string   `env:"BOT_PREFIX" envDefault:"!"`
	UnitsDir     string   `env:"UNITS_DIR" envDefault:"units"`
	StoragePath  string   `env:"STORAGE_PATH" envDefault:"datastore.json"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`

	Colors Colors

	LoadWorkers    int           `env:"LOAD_WORKERS" envDefault:"8"`
	PublishOnStart bool          `env:"PUBLISH_ON_START" envDefault:"true"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"30s"`
	PublishGuild   string        `env:"PUBLISH_GUILD_ID"`
	WatchUnits     bool          `env:"WATCH_UNITS" envDefault:"false"`
	CooldownSweep  string        `env:"COOLDOWN_SWEEP" envDefault:"@every 1m"`
}

// Colors are the embed colors as decimal RGB integers.
type Colors struct {
	Red    int `env:"COLOR_RED" envDefault:"15548997"`
	Blue   int `env:"COLOR_BLUE" envDefault:"5793266"`
	Green  int `env:"COLOR_GREEN" envDefault:"5763719"`
	Yellow int `env:"COLOR_YELLOW" envDefault:"16705372"`
}

// Load reads the .env files (if any) and parses the environment. It reports
// whether a .env file was found so the caller can log it once logging is up.
func Load(files ...string) (*Config, bool, error) {
	found := godotenv.Load(files...) == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, found, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, found, nil
}

// Validate rejects settings the bot cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if c.LoadWorkers < 0 {
		errs = append(errs, fmt.Errorf("LOAD_WORKERS must be >= 0, got %d", c.LoadWorkers))
	}
	if c.PublishTimeout < 0 {
		errs = append(errs, fmt.Errorf("PUBLISH_TIMEOUT must be >= 0, got %s", c.PublishTimeout))
	}
	if c.Prefix == "" {
		errs = append(errs, errors.New("BOT_PREFIX must not be empty"))
	}
	return errors.Join(errs...)
}
