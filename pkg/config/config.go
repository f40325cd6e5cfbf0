// Package config loads service configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Solver SolverConfig `yaml:"solver"`
	NATS   NATSConfig   `yaml:"nats"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port         string `yaml:"port" validate:"required,numeric"`
	CORSOrigin   string `yaml:"cors_origin" validate:"required"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" validate:"gt=0"`
}

// SolverConfig selects and tunes the solver transport.
type SolverConfig struct {
	Transport string        `yaml:"transport" validate:"oneof=http nats"`
	URL       string        `yaml:"url" validate:"required_if=Transport http"`
	Subject   string        `yaml:"subject" validate:"required_if=Transport nats"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	// RatePerSec of zero disables outbound rate limiting.
	RatePerSec       float64       `yaml:"rate_per_sec" validate:"gte=0"`
	Burst            int           `yaml:"burst" validate:"gte=1"`
	Retries          int           `yaml:"retries" validate:"gte=1,lte=10"`
	BreakerThreshold int           `yaml:"breaker_threshold" validate:"gte=1"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown" validate:"gt=0"`
}

// NATSConfig enables completion events (and the nats solver transport).
type NATSConfig struct {
	URL           string `yaml:"url"`
	EventsSubject string `yaml:"events_subject" validate:"required"`
}

// Neo4jConfig enables topology snapshots when URL is set.
type Neo4jConfig struct {
	URL  string `yaml:"url"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8080", CORSOrigin: "*", MaxBodyBytes: 32 << 20},
		Solver: SolverConfig{
			Transport:        "http",
			URL:              "http://localhost:5000/api/calculate",
			Subject:          "solver.calculate",
			Timeout:          2 * time.Minute,
			Burst:            1,
			Retries:          3,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		NATS: NATSConfig{EventsSubject: "calc.completed"},
		Log:  LogConfig{Level: "info", Format: "json"},
	}
}

var validate = validator.New()

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = envOr("PORT", cfg.Server.Port)
	cfg.Server.CORSOrigin = envOr("CORS_ORIGIN", cfg.Server.CORSOrigin)
	cfg.Solver.Transport = envOr("SOLVER_TRANSPORT", cfg.Solver.Transport)
	cfg.Solver.URL = envOr("SOLVER_URL", cfg.Solver.URL)
	cfg.Solver.Subject = envOr("SOLVER_SUBJECT", cfg.Solver.Subject)
	cfg.NATS.URL = envOr("NATS_URL", cfg.NATS.URL)
	cfg.NATS.EventsSubject = envOr("NATS_EVENTS_SUBJECT", cfg.NATS.EventsSubject)
	cfg.Neo4j.URL = envOr("NEO4J_URL", cfg.Neo4j.URL)
	cfg.Neo4j.User = envOr("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Pass = envOr("NEO4J_PASS", cfg.Neo4j.Pass)
	cfg.Log.Level = envOr("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("LOG_FORMAT", cfg.Log.Format)

	var err error
	if cfg.Solver.Timeout, err = envDuration("SOLVER_TIMEOUT", cfg.Solver.Timeout); err != nil {
		return err
	}
	if cfg.Solver.RatePerSec, err = envFloat("SOLVER_RATE_PER_SEC", cfg.Solver.RatePerSec); err != nil {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

// Logger builds the process logger described by c.
func (c LogConfig) Logger() *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Level))
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
