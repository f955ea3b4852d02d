package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"training-quiz-service/internal/badges"
)

// Progress backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	RabbitMQ struct {
		URI      string `yaml:"uri"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Quiz struct {
		TTL              string `yaml:"ttl"`
		FetchTimeout     string `yaml:"fetchTimeout"`
		PersistTimeout   string `yaml:"persistTimeout"`
		TickInterval     string `yaml:"tickInterval"`
		DefaultTimeLimit string `yaml:"defaultTimeLimit"`
	} `yaml:"quiz"`
	Scoring struct {
		DefaultPoints       int    `yaml:"defaultPoints"`
		SpeedBonus          int    `yaml:"speedBonus"`
		FastAnswerThreshold string `yaml:"fastAnswerThreshold"`
	} `yaml:"scoring"`
	Badges struct {
		Timezone         string               `yaml:"timezone"`
		SpeedDemonLimit  string               `yaml:"speedDemonLimit"`
		ExpertPercentage int                  `yaml:"expertPercentage"`
		ModuleBadges     []badges.ModuleBadge `yaml:"moduleBadges"`
	} `yaml:"badges"`
	Progress struct {
		Backend string `yaml:"backend"`
	} `yaml:"progress"`
	Sessions struct {
		Retention     string `yaml:"retention"`
		IntroTTL      string `yaml:"introTTL"`
		SweepSchedule string `yaml:"sweepSchedule"`
	} `yaml:"sessions"`
}

// Load reads YAML config from path. Connection settings may be overridden by
// the environment, which LoadEnv populates from an optional .env file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Postgres.URL, "POSTGRES_URL")
	override(&c.Mongo.URI, "MONGO_URI")
	override(&c.Mongo.Database, "MONGO_DATABASE")
	override(&c.RabbitMQ.URI, "RABBITMQ_URI")
	override(&c.Progress.Backend, "PROGRESS_BACKEND")
}

// Validate checks that the selected progress backend has its connection
// settings.
func (c Config) Validate() error {
	switch c.ProgressBackend() {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("progress backend redis requires redis.addr")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("progress backend postgres requires postgres.url")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("progress backend mongo requires mongo.uri")
		}
	default:
		return fmt.Errorf("unknown progress backend %q", c.Progress.Backend)
	}
	if c.Badges.Timezone != "" {
		if _, err := time.LoadLocation(c.Badges.Timezone); err != nil {
			return fmt.Errorf("badges.timezone: %w", err)
		}
	}
	return nil
}

// ProgressBackend returns the configured backend, memory when unset.
func (c Config) ProgressBackend() string {
	if c.Progress.Backend == "" {
		return BackendMemory
	}
	return c.Progress.Backend
}

// Location returns the zone used for time-of-day badges.
func (c Config) Location() *time.Location {
	if c.Badges.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Badges.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MongoDatabase returns the configured database name or the service default.
func (c Config) MongoDatabase() string {
	if c.Mongo.Database == "" {
		return "training"
	}
	return c.Mongo.Database
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
