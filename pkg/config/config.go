package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	AlphaVantage struct {
		APIKey       string        `yaml:"api_key"`
		BaseURL      string        `yaml:"base_url" default:"https://www.alphavantage.co/query"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		MaxAttempts  int           `yaml:"max_attempts" default:"2"`
		BackoffMin   time.Duration `yaml:"backoff_min" default:"250ms"`
		BackoffMax   time.Duration `yaml:"backoff_max" default:"2s"`
		MaxBodyBytes int64         `yaml:"max_body_bytes" default:"16777216"`
	} `yaml:"alpha_vantage"`
	Stock struct {
		Lookback int `yaml:"lookback" default:"60"`
		Display  int `yaml:"display" default:"30"`
	} `yaml:"stock"`
	Backend struct {
		Type    string        `yaml:"type" default:"none"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers          []string      `yaml:"brokers"`
		Topic            string        `yaml:"topic" default:"market.bars"`
		LogTopic         string        `yaml:"log_topic"`
		RequiredAcks     int           `yaml:"required_acks" default:"-1"`
		Compression      string        `yaml:"compression" default:"gzip"`
		MaxAttempts      int           `yaml:"max_attempts" default:"3"`
		BatchTimeout     time.Duration `yaml:"batch_timeout" default:"50ms"`
		AutoCreateTopics bool          `yaml:"auto_create_topics"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"market"`
		Table        string        `yaml:"table" default:"daily_bars"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		Backend    string        `yaml:"backend" default:"memory"`
		TTL        time.Duration `yaml:"ttl" default:"5m"`
		MaxEntries int           `yaml:"max_entries" default:"1000"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stocklens:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"5"`
		Burst   float64 `yaml:"burst" default:"10"`
	} `yaml:"rate_limit"`
}

// Load reads a YAML file over the defaults, so keys absent from the file keep
// their default and explicit false/zero values survive. An empty path yields
// the defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if path == "" {
		return &c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ALPHA_VANTAGE_API_KEY"); ok {
		c.AlphaVantage.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("BACKEND"); ok && v != "" {
		c.Backend.Type = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Cache.Redis.Addr = v
	}
	if v, ok := lookup("CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = enabled
	}
	return nil
}

// Validate checks structural settings. A missing API key is not an error
// here: the gateway reports it per request as a configuration error.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Backend.Type {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is kafka")
	}
	if c.Backend.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when backend.type is clickhouse")
	}
	if c.AlphaVantage.Timeout <= 0 {
		return fmt.Errorf("alpha_vantage.timeout must be positive")
	}
	if c.Stock.Display > c.Stock.Lookback {
		return fmt.Errorf("stock.display (%d) cannot exceed stock.lookback (%d)", c.Stock.Display, c.Stock.Lookback)
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory", "redis", "layered":
		default:
			return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate_limit needs rps > 0 and burst >= 1")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
