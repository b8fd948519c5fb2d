// Package config resolves entity-codec settings from the config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvDB overrides the database path.
const EnvDB = "ENTITY_CODEC_DB"

// Config holds the resolved settings.
type Config struct {
	DBPath       string `toml:"db_path" json:"db_path"`
	LogLevel     string `toml:"log_level" json:"log_level"`
	WideIntegers bool   `toml:"wide_integers" json:"wide_integers"`
}

// Dir returns the per-user state directory (~/.entity-codec).
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".entity-codec")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DBPath:   filepath.Join(Dir(), "entities.db"),
		LogLevel: "info",
	}
}

// Load reads the config file at path on top of Default and then applies
// the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if env := os.Getenv(EnvDB); env != "" {
		cfg.DBPath = env
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
}
