// Package config loads the fidomac client configuration from YAML or TOML
// files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/fidomac/fidomac-go/pkg/channel"
	"github.com/fidomac/fidomac-go/pkg/version"
	"github.com/fidomac/fidomac-go/pkg/wire"
)

// Defaults.
const (
	DefaultURL             = "ws://127.0.0.1:8765/"
	DefaultDiscoverTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
)

// ErrUnsupportedFormat indicates a config file extension other than
// .yaml, .yml or .toml.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// ErrInvalid indicates a config that failed validation.
var ErrInvalid = errors.New("invalid config")

// KeepAlive configures channel liveness monitoring.
type KeepAlive struct {
	Enabled        bool
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMissedPongs int
}

// Config is the client configuration.
type Config struct {
	URL              string
	Transport        string
	Discover         bool
	DiscoverTimeout  time.Duration
	Interface        string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	KeepAlive        KeepAlive
	ProtocolLog      string
	LogLevel         string
}

// Default returns the built-in configuration.
func Default() Config {
	ka := channel.DefaultKeepAliveConfig()
	return Config{
		URL:              DefaultURL,
		Transport:        wire.DefaultTransport,
		DiscoverTimeout:  DefaultDiscoverTimeout,
		HandshakeTimeout: channel.DefaultHandshakeTimeout,
		KeepAlive: KeepAlive{
			PingInterval:   ka.PingInterval,
			PongTimeout:    ka.PongTimeout,
			MaxMissedPongs: ka.MaxMissedPongs,
		},
		LogLevel: DefaultLogLevel,
	}
}

// fileConfig is the on-disk shape. Unset fields keep their defaults.
type fileConfig struct {
	URL              *string        `yaml:"url" toml:"url"`
	Transport        *string        `yaml:"transport" toml:"transport"`
	Discover         *bool          `yaml:"discover" toml:"discover"`
	DiscoverTimeout  *string        `yaml:"discover_timeout" toml:"discover_timeout"`
	Interface        *string        `yaml:"interface" toml:"interface"`
	HandshakeTimeout *string        `yaml:"handshake_timeout" toml:"handshake_timeout"`
	WriteTimeout     *string        `yaml:"write_timeout" toml:"write_timeout"`
	KeepAlive        *fileKeepAlive `yaml:"keepalive" toml:"keepalive"`
	ProtocolLog      *string        `yaml:"protocol_log" toml:"protocol_log"`
	LogLevel         *string        `yaml:"log_level" toml:"log_level"`
}

type fileKeepAlive struct {
	Enabled        *bool   `yaml:"enabled" toml:"enabled"`
	PingInterval   *string `yaml:"ping_interval" toml:"ping_interval"`
	PongTimeout    *string `yaml:"pong_timeout" toml:"pong_timeout"`
	MaxMissedPongs *int    `yaml:"max_missed_pongs" toml:"max_missed_pongs"`
}

// Load reads path on top of Default. The format follows the extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	cfg := Default()
	if err := raw.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// durationField maps a duration string onto its Config field.
type durationField struct {
	name string
	src  *string
	dst  *time.Duration
}

func (f *fileConfig) apply(cfg *Config) error {
	if f.URL != nil {
		cfg.URL = strings.TrimSpace(*f.URL)
	}
	if f.Transport != nil {
		cfg.Transport = strings.TrimSpace(*f.Transport)
	}
	if f.Discover != nil {
		cfg.Discover = *f.Discover
	}
	if f.Interface != nil {
		cfg.Interface = strings.TrimSpace(*f.Interface)
	}
	if f.ProtocolLog != nil {
		cfg.ProtocolLog = strings.TrimSpace(*f.ProtocolLog)
	}
	if f.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*f.LogLevel))
	}

	durations := []durationField{
		{"discover_timeout", f.DiscoverTimeout, &cfg.DiscoverTimeout},
		{"handshake_timeout", f.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"write_timeout", f.WriteTimeout, &cfg.WriteTimeout},
	}

	if ka := f.KeepAlive; ka != nil {
		if ka.Enabled != nil {
			cfg.KeepAlive.Enabled = *ka.Enabled
		}
		if ka.MaxMissedPongs != nil {
			cfg.KeepAlive.MaxMissedPongs = *ka.MaxMissedPongs
		}
		durations = append(durations,
			durationField{"keepalive.ping_interval", ka.PingInterval, &cfg.KeepAlive.PingInterval},
			durationField{"keepalive.pong_timeout", ka.PongTimeout, &cfg.KeepAlive.PongTimeout},
		)
	}

	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(*d.src))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if _, err := wire.ParseTransport(c.Transport); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if !c.Discover {
		u, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("%w: url: %w", ErrInvalid, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalid, u.Scheme)
		}
	}

	for name, d := range map[string]time.Duration{
		"discover_timeout":  c.DiscoverTimeout,
		"handshake_timeout": c.HandshakeTimeout,
		"write_timeout":     c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalid, name)
		}
	}

	if c.KeepAlive.Enabled {
		if c.KeepAlive.PingInterval <= 0 || c.KeepAlive.PongTimeout <= 0 {
			return fmt.Errorf("%w: keepalive intervals must be positive", ErrInvalid)
		}
		if c.KeepAlive.MaxMissedPongs < 1 {
			return fmt.Errorf("%w: keepalive.max_missed_pongs must be at least 1", ErrInvalid)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}

	return nil
}

// ChannelConfig returns the channel settings.
func (c Config) ChannelConfig() channel.Config {
	cfg := channel.DefaultConfig()
	cfg.HandshakeTimeout = c.HandshakeTimeout
	cfg.WriteTimeout = c.WriteTimeout
	cfg.Subprotocols = version.SupportedSubprotocols()
	if c.KeepAlive.Enabled {
		cfg.KeepAlive = &channel.KeepAliveConfig{
			PingInterval:   c.KeepAlive.PingInterval,
			PongTimeout:    c.KeepAlive.PongTimeout,
			MaxMissedPongs: c.KeepAlive.MaxMissedPongs,
		}
	}
	return cfg
}
