// Package config loads studio settings from an optional config file and the
// environment. Environment values override file values.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/wxo-labs/studio/internal/studioerr"
)

// Config holds everything the studio needs to reach the remote service.
type Config struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	DefaultAgentID string `koanf:"default_agent_id"`
	Debug          bool   `koanf:"debug"`
}

// envPrefix namespaces the environment variables: WXO_API_KEY, WXO_BASE_URL,
// WXO_DEFAULT_AGENT_ID, WXO_DEBUG.
const envPrefix = "WXO_"

// DefaultPath returns the conventional config file location, or "" when the
// user config dir cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wxo-studio", "config.yaml")
}

// Load reads configuration from path (optional) and the environment. A
// missing file at the default path is fine; an explicitly given path that
// does not parse is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		parser := parserFor(path)
		if err := k.Load(file.Provider(path), parser); err != nil {
			if !os.IsNotExist(underlying(err)) {
				return nil, &studioerr.ParseError{Msg: "config file " + path, Err: err}
			}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &studioerr.ParseError{Msg: "config", Err: err}
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &cfg, nil
}

// Validate reports the first missing setting required for remote calls.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &studioerr.ConfigurationError{Missing: "base URL"}
	}
	if c.APIKey == "" {
		return &studioerr.ConfigurationError{Missing: "API key"}
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	if strings.HasSuffix(path, ".json") {
		return json.Parser()
	}
	return yaml.Parser()
}

func underlying(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}

// NewLogger builds the process logger. Debug mode lowers the level and keeps
// the console writer readable; otherwise output is terse.
func NewLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
