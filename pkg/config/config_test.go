package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
environment: test
server:
  port: 8090
  read_timeout: 15s
  write_timeout: 15s
  shutdown_timeout: 10s
upstream:
  base_url: http://localhost:8000
  ws_base_url: ws://localhost:8000
  provider: binance
  timeout: 20s
stream:
  max_retries: 12
  initial_delay: 1s
  max_delay: 30s
  backoff_multiplier: 1.5
  jitter_ratio: 0.3
cache:
  history_ttl: 5m
  indicators_ttl: 60s
watchlist:
  refresh_cron: "*/5 * * * *"
  feeds:
    - "BTC-USD:crypto:1"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if c.Server.ReadTimeout.Std() != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", c.Server.ReadTimeout.Std())
	}
	if c.Cache.HistoryTTL.Std() != 5*time.Minute {
		t.Errorf("HistoryTTL = %v, want 5m", c.Cache.HistoryTTL.Std())
	}
	if c.Stream.BackoffMultiplier != 1.5 {
		t.Errorf("BackoffMultiplier = %v, want 1.5", c.Stream.BackoffMultiplier)
	}
	if len(c.Watchlist.Feeds) != 1 {
		t.Errorf("len(Feeds) = %d, want 1", len(c.Watchlist.Feeds))
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing environment", "server:\n  port: 1\n"},
		{"missing upstream", "environment: test\n"},
		{"bad duration", "environment: test\nupstream:\n  base_url: http://x\n  ws_base_url: ws://x\n  timeout: soon\n"},
		{"bad watchlist entry", testYAML + "    - \"BTC-USD\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("NOVA_UPSTREAM_URL", "http://override:9000")
	t.Setenv("NOVA_WATCHLIST", "ETH-USD:crypto:5,SOL-USD:crypto:1")

	c, err := LoadWithEnv(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if c.Upstream.BaseURL != "http://override:9000" {
		t.Errorf("BaseURL = %q, want override", c.Upstream.BaseURL)
	}
	if len(c.Watchlist.Feeds) != 2 {
		t.Errorf("len(Feeds) = %d, want 2", len(c.Watchlist.Feeds))
	}
}
