package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadPoolConfig(t *testing.T) {
	path := writeTemp(t, `
[listen]
addr = "127.0.0.1:34254"

[mint]
addr = "127.0.0.1:34255"
request_buffer = 100
response_buffer = 1000
dial_timeout_ms = 5000

[share]
minimum_difficulty = 1
stale_timeout_ms = 10000
sweep_interval_ms = 30000

[stats]
receiver_addr = "127.0.0.1:34256"
interval_seconds = 5

[logging]
level = "info"
`)

	var cfg Pool
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Addr != "127.0.0.1:34254" {
		t.Fatalf("got listen addr %q", cfg.Listen.Addr)
	}
	if cfg.Mint.RequestBuffer != 100 {
		t.Fatalf("got request buffer %d, want 100", cfg.Mint.RequestBuffer)
	}
	if cfg.Share.MinimumDifficulty != 1 {
		t.Fatalf("got minimum difficulty %d, want 1", cfg.Share.MinimumDifficulty)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("got logging level %q, want info", cfg.Logging.Level)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	var cfg Mint
	if err := Load(filepath.Join(t.TempDir(), "missing.toml"), &cfg); err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}

func TestConfigPathOrDefault(t *testing.T) {
	if got := ConfigPathOrDefault("explicit.toml", "default.toml"); got != "explicit.toml" {
		t.Fatalf("got %q, want explicit.toml", got)
	}
	os.Unsetenv("HASHPOOL_CONFIG")
	if got := ConfigPathOrDefault("", "default.toml"); got != "default.toml" {
		t.Fatalf("got %q, want default.toml", got)
	}
}
