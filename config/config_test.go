package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8645" || cfg.NetworkName != "oddsbook-local" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestLoadParsesOracleAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
RPCAddress = ":9000"
OracleAccounts = ["0x00000000000000000000000000000000000000fe"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	oracles, err := cfg.Oracles()
	if err != nil {
		t.Fatalf("oracles: %v", err)
	}
	if len(oracles) != 1 || oracles[0][19] != 0xFE {
		t.Fatalf("unexpected oracles %v", oracles)
	}
}

func TestLoadRejectsMalformedOracleAccount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`OracleAccounts = ["nonsense"]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
