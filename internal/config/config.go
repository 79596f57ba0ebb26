// Package config loads folio settings from defaults, folio.yaml, FOLIO_
// environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/rcliao/folio/internal/content"
)

// EnvPrefix marks environment variables read as configuration.
const EnvPrefix = "FOLIO_"

// Defaults.
const (
	DefaultBaseline     = "data.json"
	DefaultSlot         = "portfolioData"
	DefaultChannel      = "portfolio_updates"
	DefaultAddr         = ":8080"
	DefaultFetchTimeout = 10 * time.Second
)

// Config holds the resolved settings.
type Config struct {
	Baseline     string        `koanf:"baseline" json:"baseline"`
	DB           string        `koanf:"db" json:"db"`
	Slot         string        `koanf:"slot" json:"slot"`
	Channel      string        `koanf:"channel" json:"channel"`
	Merge        string        `koanf:"merge" json:"merge"`
	LogLevel     string        `koanf:"log_level" json:"log_level"`
	Addr         string        `koanf:"addr" json:"addr"`
	FetchTimeout time.Duration `koanf:"fetch_timeout" json:"fetch_timeout"`

	// File is the config file that was read, if any.
	File string `koanf:"-" json:"file,omitempty"`
}

// DefaultDBPath returns ~/.folio/folio.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".folio", "folio.db")
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"folio.yaml", "folio.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load resolves configuration. Precedence, highest first: flags that were
// explicitly set, FOLIO_ environment variables, the config file, defaults.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"baseline":      DefaultBaseline,
		"db":            DefaultDBPath(),
		"slot":          DefaultSlot,
		"channel":       DefaultChannel,
		"merge":         content.ShallowOverlay.String(),
		"log_level":     "info",
		"addr":          DefaultAddr,
		"fetch_timeout": DefaultFetchTimeout.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// FOLIO_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "config":
				return "", nil
			case "verbose":
				if v, _ := flags.GetBool("verbose"); v {
					return "log_level", "debug"
				}
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	cfg.DB = expandHome(cfg.DB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if c.Baseline == "" {
		return fmt.Errorf("config: baseline is required")
	}
	if c.Slot == "" {
		return fmt.Errorf("config: slot is required")
	}
	if c.Channel == "" {
		return fmt.Errorf("config: channel is required")
	}
	if _, err := c.MergePolicy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// MergePolicy parses the merge setting.
func (c *Config) MergePolicy() (content.MergePolicy, error) {
	return content.ParseMergePolicy(c.Merge)
}

// SignalDir is where update signal files live: next to the database.
func (c *Config) SignalDir() string {
	return filepath.Dir(c.DB)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
