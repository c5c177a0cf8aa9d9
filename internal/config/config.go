// Package config loads ring's configuration: a TOML file in the config
// directory, environment overrides on top, and the per-context token file
// used by the CLI.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Environment variables recognized by Load.
const (
	EnvConfigDir         = "RING_CONFIG_FILE"
	EnvDatabasePath      = "RING_DATABASE_PATH"
	EnvDBPoolSize        = "RING_DB_POOL_SIZE"
	EnvApplyTimeout      = "RING_APPLY_TIMEOUT"
	EnvSchedulerInterval = "SCHEDULER_INTERVAL"
)

// File names inside the config directory.
const (
	configFileName = "config.toml"
	authFileName   = "auth.json"
)

// DefaultContext is the context used when none is selected.
const DefaultContext = "default"

// Config is the persisted configuration plus the environment-resolved
// runtime knobs (which never serialize back into the file).
type Config struct {
	IP             string             `toml:"ip"`
	CurrentContext string             `toml:"current_context,omitempty"`
	API            API                `toml:"api"`
	User           User               `toml:"user"`
	Scheduler      Scheduler          `toml:"scheduler"`
	Contexts       map[string]Context `toml:"contexts,omitempty"`
	Notifications  Notifications      `toml:"notifications,omitempty"`

	// Resolved from the environment by Load.
	DatabasePath string        `toml:"-"`
	DBPoolSize   int           `toml:"-"`
	ApplyTimeout time.Duration `toml:"-"`
}

// API configures the HTTP listener.
type API struct {
	Scheme string `toml:"scheme"`
	Port   int    `toml:"port"`
}

// User holds the site-wide password pepper mixed into argon2id hashing.
type User struct {
	Salt string `toml:"salt"`
}

// Scheduler configures the reconciliation loop.
type Scheduler struct {
	Interval        int    `toml:"interval"` // seconds between ticks
	CleanupSchedule string `toml:"cleanup_schedule,omitempty"`
}

// Context names a remote ring API the CLI can talk to.
type Context struct {
	Host string `toml:"host"`
}

// Notifications configures the optional notification providers; the log
// provider is always on. Reasons restricts webhook and MQTT delivery to the
// listed event reasons (empty = all error events).
type Notifications struct {
	WebhookURL string   `toml:"webhook_url,omitempty"`
	MQTTBroker string   `toml:"mqtt_broker,omitempty"`
	MQTTTopic  string   `toml:"mqtt_topic,omitempty"`
	Reasons    []string `toml:"reasons,omitempty"`
}

// Dir resolves the config directory: RING_CONFIG_FILE when set, otherwise
// $HOME/.config/kemeter/ring.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "kemeter", "ring")
}

// FilePath returns the config.toml path inside a config directory.
func FilePath(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Default returns the configuration written by ring init.
func Default() *Config {
	return &Config{
		IP:             "127.0.0.1",
		CurrentContext: DefaultContext,
		API:            API{Scheme: "http", Port: 3030},
		User:           User{Salt: newSalt()},
		Scheduler:      Scheduler{Interval: 10, CleanupSchedule: "@every 300s"},
		Contexts: map[string]Context{
			DefaultContext: {Host: "http://127.0.0.1:3030"},
		},
	}
}

// Load reads config.toml from the config directory (defaults when the file
// does not exist yet), applies environment overrides and validates.
func Load() (*Config, error) {
	return LoadDir(Dir())
}

// LoadDir is Load against an explicit directory.
func LoadDir(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run; defaults apply until ring init writes the file.
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DatabasePath = envStr(EnvDatabasePath, "ring.db")
	c.DBPoolSize = envInt(EnvDBPoolSize, 5)
	c.ApplyTimeout = time.Duration(envInt(EnvApplyTimeout, 300)) * time.Second
	if n, ok := envIntSet(EnvSchedulerInterval); ok {
		c.Scheduler.Interval = n
	}
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port must be in 1..65535, got %d", c.API.Port))
	}
	switch c.API.Scheme {
	case "http", "https":
	default:
		errs = append(errs, fmt.Errorf("api.scheme must be http or https, got %q", c.API.Scheme))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be > 0, got %d", c.Scheduler.Interval))
	}
	if c.DBPoolSize < 1 {
		errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", EnvDBPoolSize, c.DBPoolSize))
	}
	if c.ApplyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be > 0, got %s", EnvApplyTimeout, c.ApplyTimeout))
	}
	return errors.Join(errs...)
}

// Save writes the configuration as TOML into the directory, creating it
// when needed. Runtime knobs resolved from the environment are not written.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Interval returns the scheduler tick period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.Interval) * time.Second
}

// ListenAddr is the API bind address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.API.Port))
}

// ContextHost resolves a context name (empty = current context) to its API
// host URL.
func (c *Config) ContextHost(name string) (string, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		name = DefaultContext
	}
	ctx, ok := c.Contexts[name]
	if !ok || ctx.Host == "" {
		return "", fmt.Errorf("context %q is not configured", name)
	}
	return ctx.Host, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, ok := envIntSet(key); ok {
		return n
	}
	return def
}

func envIntSet(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// newSalt generates the site-wide password pepper seeded by ring init.
func newSalt() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
