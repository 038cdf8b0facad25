package oracled

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config drives the oracle daemon: where the results feed lives, which node
// to push attestations into, and how the push webhook is authenticated.
type Config struct {
	ListenAddress   string  `toml:"ListenAddress"`
	NodeURL         string  `toml:"NodeURL"`
	NodeToken       string  `toml:"NodeToken"`
	FeedURL         string  `toml:"FeedURL"`
	PollSeconds     int     `toml:"PollSeconds"`
	FeedRatePerSec  float64 `toml:"FeedRatePerSec"`
	OracleAccount   string  `toml:"OracleAccount"`
	WebhookSecret   string  `toml:"WebhookSecret"`
	WebhookIssuer   string  `toml:"WebhookIssuer"`
	Environment     string  `toml:"Environment"`
	LogFile         string  `toml:"LogFile"`
	TotalsThreshold uint32  `toml:"TotalsThreshold"`
}

// LoadConfig reads path, writing a default file first when none exists.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode default config: %w", err)
		}
		return cfg, nil
	}
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8745"
	}
	if strings.TrimSpace(c.NodeURL) == "" {
		c.NodeURL = "http://127.0.0.1:8645"
	}
	if strings.TrimSpace(c.FeedURL) == "" {
		c.FeedURL = "http://127.0.0.1:9080/results"
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = 30
	}
	if c.FeedRatePerSec <= 0 {
		c.FeedRatePerSec = 2
	}
	if strings.TrimSpace(c.WebhookIssuer) == "" {
		c.WebhookIssuer = "results-feed"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.TotalsThreshold == 0 {
		c.TotalsThreshold = 3
	}
}

// Validate rejects configs the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.NodeURL) == "" {
		return fmt.Errorf("NodeURL is required")
	}
	if strings.TrimSpace(c.FeedURL) == "" {
		return fmt.Errorf("FeedURL is required")
	}
	return nil
}
