package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	envListenAddr      = "BEAM_LISTEN_ADDR"
	envStaticDir       = "BEAM_STATIC_DIR"
	envShutdownTimeout = "BEAM_SHUTDOWN_TIMEOUT"
	envLogLevel        = "BEAM_LOG_LEVEL"

	DefaultListenAddr      = ":8080"
	DefaultStaticDir       = "./static"
	DefaultShutdownTimeout = 5 * time.Second
)

type Config struct {
	ListenAddr      string
	StaticDir       string
	ShutdownTimeout time.Duration
	LogLevel        zerolog.Level
}

// Load reads the relay configuration from the environment, falling
// back to defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      DefaultListenAddr,
		StaticDir:       DefaultStaticDir,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        zerolog.InfoLevel,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envStaticDir); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv(envShutdownTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", envShutdownTimeout, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", envShutdownTimeout)
		}
		cfg.ShutdownTimeout = d
	}
	if v := os.Getenv(envLogLevel); v != "" {
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", envLogLevel, err)
		}
		cfg.LogLevel = lvl
	}

	return cfg, nil
}
