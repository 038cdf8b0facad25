package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config carries the node's runtime settings.
type Config struct {
	RPCAddress     string   `toml:"RPCAddress"`
	DataDir        string   `toml:"DataDir"`
	NetworkName    string   `toml:"NetworkName"`
	Environment    string   `toml:"Environment"`
	LogFile        string   `toml:"LogFile"`
	OracleAccounts []string `toml:"OracleAccounts"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks address formats without mutating the config.
func (c *Config) Validate() error {
	for _, raw := range c.OracleAccounts {
		if _, err := ParseAddress(raw); err != nil {
			return fmt.Errorf("config: oracle account %q: %w", raw, err)
		}
	}
	return nil
}

// Oracles returns the parsed oracle account addresses.
func (c *Config) Oracles() ([][20]byte, error) {
	addrs := make([][20]byte, 0, len(c.OracleAccounts))
	for _, raw := range c.OracleAccounts {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// ParseAddress decodes a 0x-prefixed hex account address.
func ParseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid account address")
	}
	return common.HexToAddress(trimmed), nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./oddsbook-data"
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "oddsbook-local"
	}
	if c.OracleAccounts == nil {
		c.OracleAccounts = []string{}
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
