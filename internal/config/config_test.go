package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvConfigDir, EnvDatabasePath, EnvDBPoolSize,
		EnvApplyTimeout, EnvSchedulerInterval,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.IP != "127.0.0.1" {
		t.Errorf("IP = %q, want 127.0.0.1", cfg.IP)
	}
	if cfg.API.Scheme != "http" || cfg.API.Port != 3030 {
		t.Errorf("API = %+v, want http/3030", cfg.API)
	}
	if cfg.Scheduler.Interval != 10 {
		t.Errorf("Scheduler.Interval = %d, want 10", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.CleanupSchedule != "@every 300s" {
		t.Errorf("CleanupSchedule = %q, want @every 300s", cfg.Scheduler.CleanupSchedule)
	}
	if cfg.User.Salt == "" {
		t.Error("User.Salt is empty, want generated value")
	}
	if cfg.DatabasePath != "ring.db" {
		t.Errorf("DatabasePath = %q, want ring.db", cfg.DatabasePath)
	}
	if cfg.DBPoolSize != 5 {
		t.Errorf("DBPoolSize = %d, want 5", cfg.DBPoolSize)
	}
	if cfg.ApplyTimeout != 300*time.Second {
		t.Errorf("ApplyTimeout = %s, want 5m", cfg.ApplyTimeout)
	}
	if cfg.Interval() != 10*time.Second {
		t.Errorf("Interval() = %s, want 10s", cfg.Interval())
	}
	if cfg.ListenAddr() != "127.0.0.1:3030" {
		t.Errorf("ListenAddr() = %q, want 127.0.0.1:3030", cfg.ListenAddr())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg := Default()
	cfg.IP = "0.0.0.0"
	cfg.API.Port = 8080
	cfg.Scheduler.Interval = 30
	cfg.Contexts["staging"] = Context{Host: "https://ring.staging.example.com"}
	cfg.Notifications.WebhookURL = "https://hooks.example.com/ring"
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got.IP != "0.0.0.0" {
		t.Errorf("IP = %q, want 0.0.0.0", got.IP)
	}
	if got.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", got.API.Port)
	}
	if got.Scheduler.Interval != 30 {
		t.Errorf("Scheduler.Interval = %d, want 30", got.Scheduler.Interval)
	}
	if got.Contexts["staging"].Host != "https://ring.staging.example.com" {
		t.Errorf("staging host = %q", got.Contexts["staging"].Host)
	}
	if got.Notifications.WebhookURL != "https://hooks.example.com/ring" {
		t.Errorf("WebhookURL = %q", got.Notifications.WebhookURL)
	}
	if got.User.Salt != cfg.User.Salt {
		t.Errorf("salt changed across round trip: %q != %q", got.User.Salt, cfg.User.Salt)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDatabasePath, "/tmp/other.db")
	t.Setenv(EnvDBPoolSize, "9")
	t.Setenv(EnvApplyTimeout, "60")
	t.Setenv(EnvSchedulerInterval, "3")

	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("DatabasePath = %q, want /tmp/other.db", cfg.DatabasePath)
	}
	if cfg.DBPoolSize != 9 {
		t.Errorf("DBPoolSize = %d, want 9", cfg.DBPoolSize)
	}
	if cfg.ApplyTimeout != time.Minute {
		t.Errorf("ApplyTimeout = %s, want 1m", cfg.ApplyTimeout)
	}
	if cfg.Scheduler.Interval != 3 {
		t.Errorf("Scheduler.Interval = %d, want 3 (env wins over file)", cfg.Scheduler.Interval)
	}
}

func TestSchedulerIntervalEnvBeatsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg := Default()
	cfg.Scheduler.Interval = 45
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	t.Setenv(EnvSchedulerInterval, "7")
	got, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got.Scheduler.Interval != 7 {
		t.Errorf("Scheduler.Interval = %d, want 7", got.Scheduler.Interval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(_ *Config) {}, false},
		{"port zero", func(c *Config) { c.API.Port = 0 }, true},
		{"port too large", func(c *Config) { c.API.Port = 70000 }, true},
		{"bad scheme", func(c *Config) { c.API.Scheme = "ftp" }, true},
		{"https valid", func(c *Config) { c.API.Scheme = "https" }, false},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, true},
		{"zero pool", func(c *Config) { c.DBPoolSize = 0 }, true},
		{"zero apply timeout", func(c *Config) { c.ApplyTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DatabasePath = "ring.db"
			cfg.DBPoolSize = 5
			cfg.ApplyTimeout = 300 * time.Second
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextHost(t *testing.T) {
	cfg := Default()
	cfg.Contexts["prod"] = Context{Host: "https://ring.example.com"}

	if host, err := cfg.ContextHost(""); err != nil || host != "http://127.0.0.1:3030" {
		t.Errorf("ContextHost(\"\") = %q, %v; want default host", host, err)
	}
	if host, err := cfg.ContextHost("prod"); err != nil || host != "https://ring.example.com" {
		t.Errorf("ContextHost(prod) = %q, %v", host, err)
	}
	if _, err := cfg.ContextHost("missing"); err == nil {
		t.Error("ContextHost(missing) = nil error, want error")
	} else if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error %q does not name the context", err)
	}
}

func TestTokensRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tokens, err := LoadTokens(dir)
	if err != nil {
		t.Fatalf("LoadTokens on empty dir: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("got %d tokens, want none", len(tokens))
	}

	tokens["default"] = Token{Token: "ring_abc123"}
	tokens["prod"] = Token{Token: "ring_def456"}
	if err := SaveTokens(dir, tokens); err != nil {
		t.Fatalf("SaveTokens: %v", err)
	}

	got, err := LoadTokens(dir)
	if err != nil {
		t.Fatalf("LoadTokens: %v", err)
	}
	if got["default"].Token != "ring_abc123" {
		t.Errorf("default token = %q", got["default"].Token)
	}
	if got["prod"].Token != "ring_def456" {
		t.Errorf("prod token = %q", got["prod"].Token)
	}
}

func TestEnvInt(t *testing.T) {
	const key = "RING_TEST_ENV_INT"

	t.Setenv(key, "42")
	if got := envInt(key, 0); got != 42 {
		t.Errorf("got %d, want 42", got)
	}

	t.Setenv(key, "notanumber")
	if got := envInt(key, 99); got != 99 {
		t.Errorf("got %d, want 99 (default on parse failure)", got)
	}
}
