package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"humanpad/internal/domain"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Curve   CurveConfig   `yaml:"curve"`
	Risk    RiskConfig    `yaml:"risk"`
	Session SessionConfig `yaml:"session"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type StorageConfig struct {
	// Backend selects where counters and history live:
	// "memory", "postgres" or "redis".
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
}

type CurveConfig struct {
	BasePrice      float64 `yaml:"base_price"`
	PriceIncrement float64 `yaml:"price_increment"`
	MaxPrice       float64 `yaml:"max_price"`
}

type RiskConfig struct {
	// MinVerificationLevel is the lowest level allowed to trade:
	// "device", "phone" or "orb".
	MinVerificationLevel string `yaml:"min_verification_level"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func Default() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Curve: CurveConfig{
			BasePrice:      0.001,
			PriceIncrement: 0.0001,
			MaxPrice:       1.0,
		},
		Risk: RiskConfig{
			MinVerificationLevel: "device",
		},
		Session: SessionConfig{
			TTL:           24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
	}
}

// LoadFile reads a YAML config over the defaults. A missing path is
// not an error: the defaults stand.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("HUMANPAD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HUMANPAD_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("HUMANPAD_STORAGE_BACKEND")); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("HUMANPAD_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("HUMANPAD_CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("HUMANPAD_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("HUMANPAD_ENV")); v != "" {
		c.Env = strings.ToLower(v)
	}
}

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("storage.backend must be 'memory', 'postgres' or 'redis', got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn required for postgres backend")
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redis_addr required for redis backend")
	}

	if c.Curve.BasePrice <= 0 {
		return fmt.Errorf("curve.base_price must be > 0, got %f", c.Curve.BasePrice)
	}
	if c.Curve.PriceIncrement < 0 {
		return fmt.Errorf("curve.price_increment must be >= 0, got %f", c.Curve.PriceIncrement)
	}
	if c.Curve.MaxPrice < c.Curve.BasePrice {
		return fmt.Errorf("curve.max_price must be >= curve.base_price, got %f < %f", c.Curve.MaxPrice, c.Curve.BasePrice)
	}

	if _, ok := domain.ParseVerificationLevel(c.Risk.MinVerificationLevel); !ok {
		return fmt.Errorf("risk.min_verification_level must be 'device', 'phone' or 'orb', got %q", c.Risk.MinVerificationLevel)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be > 0, got %s", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be > 0, got %s", c.Session.SweepInterval)
	}

	return nil
}

// CurveDomain maps the config section onto the engine's value type.
func (c Config) CurveDomain() domain.CurveConfig {
	return domain.CurveConfig{
		BasePrice:      c.Curve.BasePrice,
		PriceIncrement: c.Curve.PriceIncrement,
		MaxPrice:       c.Curve.MaxPrice,
	}
}
