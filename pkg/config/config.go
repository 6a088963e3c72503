package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all AURA configuration.
type Config struct {
	Listen    string          `yaml:"listen" validate:"required"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Router    RouterConfig    `yaml:"router"`
	Assistant AssistantConfig `yaml:"assistant"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// GeminiConfig defines the upstream text-generation API.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Model   string        `yaml:"model" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// GatewayConfig controls caching, retries and the circuit breaker.
type GatewayConfig struct {
	MaxAttempts      int           `yaml:"max_attempts" validate:"min=1,max=10"`
	BaseBackoff      time.Duration `yaml:"base_backoff" validate:"gte=0"`
	CacheTTL         time.Duration `yaml:"cache_ttl" validate:"gt=0"`
	CircuitThreshold int           `yaml:"circuit_threshold" validate:"min=1"`
	CircuitCooldown  time.Duration `yaml:"circuit_cooldown" validate:"gt=0"`
	CallTimeout      time.Duration `yaml:"call_timeout" validate:"gte=0"`
	ReadThrough      bool          `yaml:"read_through"`
}

// RouterConfig maps interaction types to model identifiers.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes" validate:"dive"`
}

// RouteConfig sends one interaction type to a specific model.
type RouteConfig struct {
	Interaction string `yaml:"interaction" validate:"required,oneof=correction exercise_request explanation conversation"`
	Model       string `yaml:"model" validate:"required"`
}

// AssistantConfig controls prompt composition.
type AssistantConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
}

// TelemetryConfig controls the SQLite call ledger.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path" validate:"required_if=Enabled true"`
	RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultSystemPrompt is used when assistant.system_prompt is empty.
const DefaultSystemPrompt = "Eres AURA, un tutor paciente de lengua española y matemáticas. " +
	"Responde en español, con claridad y de forma breve."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":3000",
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Gateway: GatewayConfig{
			MaxAttempts:      3,
			BaseBackoff:      500 * time.Millisecond,
			CacheTTL:         24 * time.Hour,
			CircuitThreshold: 5,
			CircuitCooldown:  60 * time.Second,
			CallTimeout:      30 * time.Second,
			ReadThrough:      true,
		},
		Assistant: AssistantConfig{
			SystemPrompt: DefaultSystemPrompt,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			DBPath:        "aura.db",
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file, expands environment variables and applies
// environment overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Assistant.SystemPrompt == "" {
		cfg.Assistant.SystemPrompt = DefaultSystemPrompt
	}

	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overrides file values with GEMINI_* and PORT variables when set.
func (c *Config) applyEnv() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"GEMINI_MAX_ATTEMPTS", &c.Gateway.MaxAttempts},
		{"GEMINI_CIRCUIT_THRESHOLD", &c.Gateway.CircuitThreshold},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		*e.dst = n
	}

	millis := []struct {
		name string
		dst  *time.Duration
	}{
		{"GEMINI_BASE_BACKOFF_MS", &c.Gateway.BaseBackoff},
		{"GEMINI_CACHE_TTL_MS", &c.Gateway.CacheTTL},
		{"GEMINI_CIRCUIT_COOLDOWN_MS", &c.Gateway.CircuitCooldown},
	}
	for _, e := range millis {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		}
		*e.dst = time.Duration(n) * time.Millisecond
	}

	return nil
}
