// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Daily    DailyConfig    `mapstructure:"daily"`
	Games    GamesConfig    `mapstructure:"games"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the accounts allowed to perform ledger resets.
type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// DailyConfig holds daily bonus configuration.
type DailyConfig struct {
	Reward        int64 `mapstructure:"reward"`
	CooldownHours int   `mapstructure:"cooldown_hours"`
}

// GamesConfig holds per-kind session configuration.
type GamesConfig struct {
	Blackjack BlackjackConfig `mapstructure:"blackjack"`
	Crash     CrashConfig     `mapstructure:"crash"`
	Roulette  TableConfig     `mapstructure:"roulette"`
	Dice      TableConfig     `mapstructure:"dice"`
	Slots     TableConfig     `mapstructure:"slots"`
	Coinflip  TableConfig     `mapstructure:"coinflip"`
	Trivia    TriviaConfig    `mapstructure:"trivia"`
	Life      LifeConfig      `mapstructure:"life"`
}

// BlackjackConfig holds blackjack session configuration.
type BlackjackConfig struct {
	MaxBet         int64 `mapstructure:"max_bet"`
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
}

// CrashConfig holds crash session configuration.
type CrashConfig struct {
	MaxBet         int64 `mapstructure:"max_bet"`
	TickMillis     int   `mapstructure:"tick_millis"`
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
}

// TableConfig holds configuration for the instant odds-table games
// (roulette, dice, slots, coinflip).
type TableConfig struct {
	MaxBet         int64 `mapstructure:"max_bet"`
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
}

// TriviaConfig holds trivia question configuration.
type TriviaConfig struct {
	RewardCredits   int64 `mapstructure:"reward_credits"`
	RewardXP        int64 `mapstructure:"reward_xp"`
	DurationMinutes int   `mapstructure:"duration_minutes"`
}

// LifeConfig holds tick-simulation configuration.
type LifeConfig struct {
	TickMillis     int `mapstructure:"tick_millis"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, GAMES_CRASH_MAX_BET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arcade")
	v.SetDefault("database.name", "arcade")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Daily bonus defaults
	v.SetDefault("daily.reward", 100)
	v.SetDefault("daily.cooldown_hours", 24)

	// Game defaults
	v.SetDefault("games.blackjack.max_bet", 10000)
	v.SetDefault("games.blackjack.timeout_seconds", 120)
	v.SetDefault("games.crash.max_bet", 10000)
	v.SetDefault("games.crash.tick_millis", 1000)
	v.SetDefault("games.crash.timeout_seconds", 120)
	v.SetDefault("games.roulette.max_bet", 10000)
	v.SetDefault("games.roulette.timeout_seconds", 60)
	v.SetDefault("games.dice.max_bet", 1000)
	v.SetDefault("games.dice.timeout_seconds", 60)
	v.SetDefault("games.slots.max_bet", 10000)
	v.SetDefault("games.slots.timeout_seconds", 60)
	v.SetDefault("games.coinflip.max_bet", 10000)
	v.SetDefault("games.coinflip.timeout_seconds", 60)
	v.SetDefault("games.trivia.reward_credits", 50)
	v.SetDefault("games.trivia.reward_xp", 50)
	v.SetDefault("games.trivia.duration_minutes", 10)
	v.SetDefault("games.life.tick_millis", 500)
	v.SetDefault("games.life.timeout_seconds", 180)
}

// IsAdmin checks if an account ID is in the admin list.
func (c *Config) IsAdmin(accountID string) bool {
	for _, id := range c.Admin.IDs {
		if id == accountID {
			return true
		}
	}
	return false
}
