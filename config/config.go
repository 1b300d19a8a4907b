package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // chat-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	Mode      string `yaml:"mode"` // jwt|session
	JWTSecret string `yaml:"jwtSecret"`
	ClockSkew string `yaml:"clockSkew"` // duration, jwt mode only
}

type Realtime struct {
	TypingTTL string `yaml:"typingTTL"` // duration, default 3s
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	Realtime Realtime `yaml:"realtime"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	switch c.Auth.Mode {
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwtSecret is required in jwt mode")
		}
	case "session":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required in session mode")
		}
	case "":
		return errors.New("auth.mode is required (jwt|session)")
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"http://localhost:5173"}
	}
	return nil
}

// TypingTTL returns the configured typing expiry window.
func (c *Config) TypingTTL() time.Duration {
	return parseDurationOr(3*time.Second, c.Realtime.TypingTTL)
}

// JWTClockSkew returns the allowed clock skew for token validation.
func (c *Config) JWTClockSkew() time.Duration {
	return parseDurationOr(30*time.Second, c.Auth.ClockSkew)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
