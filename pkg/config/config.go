package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-dashboards.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Remote evaluation service
	EvaluationService EvaluationServiceConfig `yaml:"evaluation_service"`

	// Shared agent state storage
	AgentState AgentStateConfig `yaml:"agent_state"`

	// Redis, used when agent_state.backend is "redis"
	Redis RedisConfig `yaml:"redis"`

	// DashboardsFile is an optional YAML catalog of saved dashboards.
	DashboardsFile string `yaml:"dashboards_file" env:"DASHBOARDS_FILE" env-default:""`
}

// EvaluationServiceConfig locates the remote evaluation service.
type EvaluationServiceConfig struct {
	BaseURL        string `yaml:"base_url" env:"EVALUATION_SERVICE_URL" env-default:"http://localhost:8000"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"EVALUATION_SERVICE_TIMEOUT_SECONDS" env-default:"60"`
	// MaxRetries bounds retries of idempotent reads (dependency listing).
	MaxRetries int `yaml:"max_retries" env:"EVALUATION_SERVICE_MAX_RETRIES" env-default:"2"`
}

// Timeout returns the request timeout as a duration.
func (c *EvaluationServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Agent state backends.
const (
	AgentStateBackendMemory = "memory"
	AgentStateBackendRedis  = "redis"
)

// AgentStateConfig selects where agent state documents live.
type AgentStateConfig struct {
	Backend    string `yaml:"backend" env:"AGENT_STATE_BACKEND" env-default:"memory"`
	KeyPrefix  string `yaml:"key_prefix" env:"AGENT_STATE_KEY_PREFIX" env-default:"ekaya:agent-state:"`
	TTLMinutes int    `yaml:"ttl_minutes" env:"AGENT_STATE_TTL_MINUTES" env-default:"1440"`
}

// TTL returns the document expiry; zero disables expiry.
func (c *AgentStateConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile reads configuration from path with environment variable overrides.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.EvaluationService.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("evaluation_service.base_url must be an absolute URL, got %q", c.EvaluationService.BaseURL)
	}
	if c.EvaluationService.TimeoutSeconds <= 0 {
		return fmt.Errorf("evaluation_service.timeout_seconds must be positive")
	}
	if c.EvaluationService.MaxRetries < 0 {
		return fmt.Errorf("evaluation_service.max_retries must not be negative")
	}

	c.AgentState.Backend = strings.ToLower(strings.TrimSpace(c.AgentState.Backend))
	switch c.AgentState.Backend {
	case AgentStateBackendMemory:
	case AgentStateBackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required when agent_state.backend is %q", AgentStateBackendRedis)
		}
	default:
		return fmt.Errorf("agent_state.backend must be %q or %q, got %q",
			AgentStateBackendMemory, AgentStateBackendRedis, c.AgentState.Backend)
	}
	if c.AgentState.TTLMinutes < 0 {
		return fmt.Errorf("agent_state.ttl_minutes must not be negative")
	}

	return nil
}
