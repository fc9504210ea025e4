package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration, parsed from the
// environment.
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Game   GameConfig
}

type ServerConfig struct {
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":7777"`
	EconomyDB  string `env:"ECONOMY_DB" envDefault:"holdem.db"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

type GameConfig struct {
	TurnTimeout   time.Duration `env:"TURN_TIMEOUT" envDefault:"20s"`
	NextHandDelay time.Duration `env:"NEXT_HAND_DELAY" envDefault:"3s"`
}

// Load parses the full configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg.Server); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg.Game); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
