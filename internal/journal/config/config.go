// Package config holds runtime settings for the journal CLI.
package config

import "time"

// Config fields:
//   - ServerBaseURL: base URL of the record persistence API.
//   - DatabasePath: SQLite DSN of the local journal store.
//   - UserID: whose records the CLI operates on.
//   - OnlineCheckInterval: how often the engine probes server reachability.
//   - SettleDelay: how long to wait after coming online before auto-sync.
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	UserID              string
	OnlineCheckInterval time.Duration
	SettleDelay         time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "vinotes.db"
	c.UserID = "default"
	c.OnlineCheckInterval = 3 * time.Second
	c.SettleDelay = 2 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
