// Package config loads the watcher configuration from a YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultThreshold     = 3
	DefaultMaxConcurrent = 16
	DefaultSweepInterval = 24 * time.Hour
	DefaultSweepDelay    = 500 * time.Millisecond
	DefaultOracleBaseURL = "https://api.dexscreener.com"
	DefaultOracleTimeout = 10 * time.Second
	DefaultSweepFloorUSD = 5000
	DefaultSQLitePath    = "data/mentions.db"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// fileConfig is the on-disk and environment shape.
type fileConfig struct {
	BotToken            string            `yaml:"bot_token" env:"BOT_TOKEN"`
	NotifyChatID        int64             `yaml:"notify_chat_id" env:"NOTIFY_CHAT_ID"`
	PrivilegedChannelID string            `yaml:"privileged_channel_id" env:"PRIVILEGED_CHANNEL_ID"`
	Channels            map[string]string `yaml:"channels" env:"MONITORED_CHANNELS"`
	TrustedSenders      map[string]string `yaml:"trusted_senders" env:"TRUSTED_SENDERS"`
	Threshold           int               `yaml:"threshold" env:"MENTION_THRESHOLD"`
	MaxConcurrent       int               `yaml:"max_concurrent_handlers" env:"MAX_CONCURRENT_HANDLERS"`
	SQLitePath          string            `yaml:"sqlite_path" env:"SQLITE_PATH"`

	Oracle oracleFile `yaml:"oracle" envPrefix:"ORACLE_"`
	Sweep  sweepFile  `yaml:"sweep" envPrefix:"SWEEP_"`
}

type oracleFile struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type sweepFile struct {
	Interval time.Duration   `yaml:"interval" env:"INTERVAL"`
	Delay    time.Duration   `yaml:"delay" env:"DELAY"`
	FloorUSD decimal.Decimal `yaml:"floor_usd" env:"FLOOR_USD"`
}

// OracleConfig configures the market-data client.
type OracleConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SweepConfig configures the pruning sweep.
type SweepConfig struct {
	Interval time.Duration
	Delay    time.Duration
	FloorUSD decimal.Decimal
}

// Config is the validated, read-only configuration.
type Config struct {
	BotToken            string
	NotifyChatID        int64
	PrivilegedChannelID string
	Channels            *Registry
	TrustedSenders      *Registry
	Threshold           int
	MaxConcurrent       int
	SQLitePath          string
	Oracle              OracleConfig
	Sweep               SweepConfig
}

func defaults() fileConfig {
	var fc fileConfig
	fc.Threshold = DefaultThreshold
	fc.MaxConcurrent = DefaultMaxConcurrent
	fc.SQLitePath = DefaultSQLitePath
	fc.Oracle.BaseURL = DefaultOracleBaseURL
	fc.Oracle.Timeout = DefaultOracleTimeout
	fc.Sweep.Interval = DefaultSweepInterval
	fc.Sweep.Delay = DefaultSweepDelay
	fc.Sweep.FloorUSD = decimal.NewFromInt(DefaultSweepFloorUSD)
	return fc
}

// Load reads path (optional) and applies environment overrides from the process.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads the
// process environment.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	fc := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(&fc, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := &Config{
		BotToken:            fc.BotToken,
		NotifyChatID:        fc.NotifyChatID,
		PrivilegedChannelID: fc.PrivilegedChannelID,
		Channels:            NewRegistry(fc.Channels),
		TrustedSenders:      NewRegistry(fc.TrustedSenders),
		Threshold:           fc.Threshold,
		MaxConcurrent:       fc.MaxConcurrent,
		SQLitePath:          fc.SQLitePath,
		Oracle:              OracleConfig{BaseURL: fc.Oracle.BaseURL, Timeout: fc.Oracle.Timeout},
		Sweep:               SweepConfig{Interval: fc.Sweep.Interval, Delay: fc.Sweep.Delay, FloorUSD: fc.Sweep.FloorUSD},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, fc *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the invariants the engine and sweep rely on.
// Credentials are not checked here; each entry point requires what it uses.
func (c *Config) Validate() error {
	var errs []error
	if c.Threshold < 1 {
		errs = append(errs, fmt.Errorf("threshold must be >= 1, got %d", c.Threshold))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_handlers must be >= 1, got %d", c.MaxConcurrent))
	}
	if c.PrivilegedChannelID != "" && !c.Channels.Has(c.PrivilegedChannelID) {
		errs = append(errs, fmt.Errorf("privileged channel %s is not a monitored channel", c.PrivilegedChannelID))
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("oracle timeout must be positive, got %s", c.Oracle.Timeout))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %s", c.Sweep.Interval))
	}
	if c.Sweep.Delay < 0 {
		errs = append(errs, fmt.Errorf("sweep delay must not be negative, got %s", c.Sweep.Delay))
	}
	if c.Sweep.FloorUSD.IsNegative() {
		errs = append(errs, fmt.Errorf("sweep floor must not be negative, got %s", c.Sweep.FloorUSD))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RequireBot checks the settings needed to talk to the Bot API.
func (c *Config) RequireBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("%w: BOT_TOKEN is required", ErrInvalidConfig)
	}
	if c.NotifyChatID == 0 {
		return fmt.Errorf("%w: notify_chat_id is required", ErrInvalidConfig)
	}
	if c.Channels.Len() == 0 {
		return fmt.Errorf("%w: at least one monitored channel is required", ErrInvalidConfig)
	}
	return nil
}
