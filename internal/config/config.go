package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Game     Game     `mapstructure:"game"`
	Betting  Betting  `mapstructure:"betting"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Game holds the configuration for the live-table provider API.
type Game struct {
	BaseURL        string  `mapstructure:"base_url"`
	Username       string  `mapstructure:"username"`
	Password       string  `mapstructure:"password"`
	TableID        string  `mapstructure:"table_id"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Betting holds the configuration for the betting logic.
type Betting struct {
	BaseStake            float64 `mapstructure:"base_stake"`
	WaitSeconds          int     `mapstructure:"wait_seconds"`
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
	PreferredSide        string  `mapstructure:"preferred_side"`
	Strategy             string  `mapstructure:"strategy"`
	ParoliWinsToReset    int     `mapstructure:"paroli_wins_to_reset"`
}

// Server holds the configuration for the web control surface.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("game.rate_limit", 5) // requests per second
	viper.SetDefault("game.rate_limit_burst", 2)
	viper.SetDefault("betting.base_stake", 1)
	viper.SetDefault("betting.wait_seconds", 10)
	viper.SetDefault("betting.max_consecutive_losses", 5)
	viper.SetDefault("betting.preferred_side", "auto")
	viper.SetDefault("betting.strategy", "martingale")
	viper.SetDefault("betting.paroli_wins_to_reset", 3)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	err = config.Betting.Validate()
	return
}

// Validate checks the betting parameters against their allowed ranges.
func (b *Betting) Validate() error {
	if b.BaseStake <= 0 {
		return fmt.Errorf("betting.base_stake must be positive, got %v", b.BaseStake)
	}
	if b.WaitSeconds <= 0 {
		return fmt.Errorf("betting.wait_seconds must be positive, got %d", b.WaitSeconds)
	}
	if b.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("betting.max_consecutive_losses must be at least 1, got %d", b.MaxConsecutiveLosses)
	}
	if b.ParoliWinsToReset < 1 {
		return fmt.Errorf("betting.paroli_wins_to_reset must be at least 1, got %d", b.ParoliWinsToReset)
	}
	switch strings.ToLower(b.PreferredSide) {
	case "dragon", "tiger", "auto":
	default:
		return fmt.Errorf("betting.preferred_side must be dragon, tiger or auto, got %q", b.PreferredSide)
	}
	return nil
}
