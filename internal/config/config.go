package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nadasuara/server/internal/session"
)

// Config represents the complete service configuration. Values come from
// an optional YAML file with environment variables layered on top, so a
// bare deployment can run on env vars alone.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	VAD        VADConfig        `yaml:"vad"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int `yaml:"port"`
	IdleTimeout int `yaml:"idle_timeout"` // seconds
}

// SessionConfig contains streaming session tuning
type SessionConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	BufferCap       float64 `yaml:"buffer_cap"`       // seconds
	TriggerInterval float64 `yaml:"trigger_interval"` // seconds
	MaxWindow       float64 `yaml:"max_window"`       // seconds
	MinSilence      float64 `yaml:"min_silence"`      // seconds
	PassTimeout     float64 `yaml:"pass_timeout"`     // seconds
	Language        string  `yaml:"language"`
}

// VADConfig contains voice activity detection configuration
type VADConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// RecognizerConfig selects and tunes the recognition backend
type RecognizerConfig struct {
	Backend       string `yaml:"backend"` // "mock" or "google"
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// MongoConfig contains transcript archive storage configuration
type MongoConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig contains JWT configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  int    `yaml:"token_ttl"` // hours
}

// Default returns the configuration used when no file or env overrides
// are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			IdleTimeout: 300,
		},
		Session: SessionConfig{
			SampleRate:      16000,
			BufferCap:       60,
			TriggerInterval: 3,
			MaxWindow:       30,
			MinSilence:      0.3,
			PassTimeout:     30,
			Language:        "zh",
		},
		VAD: VADConfig{
			Threshold: 0.01,
		},
		Recognizer: RecognizerConfig{
			Backend:       "mock",
			MaxConcurrent: 8,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "nadasuara",
		},
		Auth: AuthConfig{
			TokenTTL: 24,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// it is non-empty, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Mongo.URI = v
		c.Mongo.Enabled = true
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		c.Mongo.Database = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("RECOGNIZER_BACKEND"); v != "" {
		c.Recognizer.Backend = v
	}
	if v := os.Getenv("SESSION_LANGUAGE"); v != "" {
		c.Session.Language = v
	}
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Session.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.Session.SampleRate)
	}
	if c.Session.TriggerInterval <= 0 {
		return fmt.Errorf("trigger_interval must be positive, got %f", c.Session.TriggerInterval)
	}
	if c.Session.MinSilence <= 0 {
		return fmt.Errorf("min_silence must be positive, got %f", c.Session.MinSilence)
	}
	if c.Session.MaxWindow < c.Session.TriggerInterval {
		return fmt.Errorf("max_window (%f) must be at least trigger_interval (%f)",
			c.Session.MaxWindow, c.Session.TriggerInterval)
	}
	if c.Session.BufferCap <= 0 {
		return fmt.Errorf("buffer_cap must be positive, got %f", c.Session.BufferCap)
	}
	if c.VAD.Threshold < 0 || c.VAD.Threshold > 1 {
		return fmt.Errorf("vad threshold must be between 0 and 1, got %f", c.VAD.Threshold)
	}
	switch c.Recognizer.Backend {
	case "mock", "google":
	default:
		return fmt.Errorf("recognizer backend must be 'mock' or 'google', got '%s'", c.Recognizer.Backend)
	}
	if c.Recognizer.MaxConcurrent < 1 {
		return fmt.Errorf("recognizer max_concurrent must be at least 1, got %d", c.Recognizer.MaxConcurrent)
	}
	return nil
}

// SessionConfig converts the tuning values to the engine's config type.
func (c *Config) SessionEngineConfig() session.Config {
	return session.Config{
		SampleRate:      c.Session.SampleRate,
		BufferCap:       seconds(c.Session.BufferCap),
		TriggerInterval: seconds(c.Session.TriggerInterval),
		MaxWindow:       seconds(c.Session.MaxWindow),
		MinSilence:      seconds(c.Session.MinSilence),
		PassTimeout:     seconds(c.Session.PassTimeout),
		VADThreshold:    c.VAD.Threshold,
		Language:        c.Session.Language,
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// IdleTimeout returns the session idle timeout as a time.Duration
func (s *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// TokenTTLDuration returns the JWT lifetime as a time.Duration
func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Hour
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
