// Package config loads binary configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Gateway configures the offline gateway daemon.
type Gateway struct {
	ListenAddr    string        `env:"GATEWAY_ADDR" envDefault:":8081"`
	AdminAddr     string        `env:"GATEWAY_ADMIN_ADDR" envDefault:":8082"`
	UpstreamURL   string        `env:"UPSTREAM_URL" envDefault:"http://localhost:8080"`
	QueuePath     string        `env:"QUEUE_DB_PATH" envDefault:"joyas-queue.db"`
	CacheDir      string        `env:"CACHE_DIR" envDefault:"cache"`
	CacheVersion  string        `env:"CACHE_VERSION" envDefault:"v1"`
	ProbeInterval time.Duration `env:"PROBE_INTERVAL" envDefault:"15s"`
	APIToken      string        `env:"API_TOKEN"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Server configures the ledger API.
type Server struct {
	ListenAddr string        `env:"ADDR" envDefault:":8080"`
	DBPath     string        `env:"LEDGER_DB_PATH" envDefault:"joyas.db"`
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
}

func LoadGateway() (Gateway, error) {
	var cfg Gateway
	if err := env.Parse(&cfg); err != nil {
		return Gateway{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
