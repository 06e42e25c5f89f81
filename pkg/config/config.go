package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	td, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(td)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int      `yaml:"port"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Upstream struct {
		BaseURL   string   `yaml:"base_url"`
		WSBaseURL string   `yaml:"ws_base_url"`
		Provider  string   `yaml:"provider"`
		Timeout   Duration `yaml:"timeout"`
	} `yaml:"upstream"`
	Stream struct {
		MaxRetries        int      `yaml:"max_retries"`
		InitialDelay      Duration `yaml:"initial_delay"`
		MaxDelay          Duration `yaml:"max_delay"`
		BackoffMultiplier float64  `yaml:"backoff_multiplier"`
		JitterRatio       float64  `yaml:"jitter_ratio"`
		PingInterval      Duration `yaml:"ping_interval"`
		PongTimeout       Duration `yaml:"pong_timeout"`
		DialTimeout       Duration `yaml:"dial_timeout"`
		BufferSize        int      `yaml:"buffer_size"`
	} `yaml:"stream"`
	Cache struct {
		HistoryTTL     Duration `yaml:"history_ttl"`
		IndicatorsTTL  Duration `yaml:"indicators_ttl"`
		PredictionsTTL Duration `yaml:"predictions_ttl"`
		NewsTTL        Duration `yaml:"news_ttl"`
		Redis          struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Watchlist struct {
		RefreshCron string   `yaml:"refresh_cron"`
		Feeds       []string `yaml:"feeds"` // "symbol:market:interval"
	} `yaml:"watchlist"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		Rate    float64 `yaml:"rate"`
		Burst   int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("NOVA_UPSTREAM_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("NOVA_UPSTREAM_WS_URL"); v != "" {
		c.Upstream.WSBaseURL = v
	}
	if v := os.Getenv("NOVA_PROVIDER"); v != "" {
		c.Upstream.Provider = v
	}
	if v := os.Getenv("NOVA_WATCHLIST"); v != "" {
		c.Watchlist.Feeds = strings.Split(v, ",")
	}
	if v := os.Getenv("NOVA_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("NOVA_REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.WSBaseURL == "" {
		return fmt.Errorf("upstream.ws_base_url is required")
	}
	if c.Stream.BackoffMultiplier < 0 {
		return fmt.Errorf("stream.backoff_multiplier must be >= 0")
	}
	if c.Stream.JitterRatio < 0 || c.Stream.JitterRatio > 1 {
		return fmt.Errorf("stream.jitter_ratio must be in [0, 1]")
	}
	for _, feed := range c.Watchlist.Feeds {
		if len(strings.Split(feed, ":")) != 3 {
			return fmt.Errorf("watchlist feed '%s' must be symbol:market:interval", feed)
		}
	}
	return nil
}
