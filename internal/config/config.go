package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogLevel        string         `yaml:"log_level"`
	Debug           bool           `yaml:"debug"`
	DefaultLanguage string         `yaml:"default_language"`
	LLM             LLMConfig      `yaml:"llm"`
	Ordering        OrderingConfig `yaml:"ordering"`
	Database        DatabaseConfig `yaml:"database"`
	Server          ServerConfig   `yaml:"server"`
	Sessions        SessionConfig  `yaml:"sessions"`
}

// LLMConfig selects and tunes the language model
type LLMConfig struct {
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Offline     bool          `yaml:"offline"`

	GoogleAPIKey    string `yaml:"google_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GitHubToken     string `yaml:"github_token"`
	OllamaURL       string `yaml:"ollama_url"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	AzureAPIKey     string `yaml:"azure_api_key"`
	AzureDeployment string `yaml:"azure_deployment"`
}

// OrderingConfig holds the conversation limits
type OrderingConfig struct {
	MaxOrderItems      int    `yaml:"max_order_items"`
	UpsellingThreshold int    `yaml:"upselling_threshold"`
	MaxUpsellAttempts  int    `yaml:"max_upsell_attempts"`
	ErrorThreshold     int    `yaml:"error_threshold"`
	TaxRate            string `yaml:"tax_rate"`
}

// DatabaseConfig selects the order store
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// ServerConfig configures the HTTP listeners
type ServerConfig struct {
	Port    int `yaml:"port"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Port    int    `yaml:"port"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	JWTSecret string `yaml:"jwt_secret"`
}

// SessionConfig bounds the in-memory conversations
type SessionConfig struct {
	MaxSessions   int           `yaml:"max_sessions"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{
		LogLevel:        "info",
		DefaultLanguage: "en",
		LLM: LLMConfig{
			Model:       "gemma",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     30 * time.Second,
		},
		Ordering: OrderingConfig{
			MaxOrderItems:      5,
			UpsellingThreshold: 3,
			MaxUpsellAttempts:  2,
			ErrorThreshold:     3,
			TaxRate:            "0.08",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			URL:    "restaurant_orders.db",
		},
		Sessions: SessionConfig{
			MaxSessions:   1000,
			IdleTimeout:   30 * time.Minute,
			SweepSchedule: "@every 1m",
		},
	}
	cfg.Server.Port = 8080
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = 9090
	cfg.Server.Metrics.Path = "/metrics"
	return cfg
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env is fine, the environment may already be populated
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("GOOGLE_API_KEY", &c.LLM.GoogleAPIKey)
	setString("OPENAI_API_KEY", &c.LLM.OpenAIAPIKey)
	setString("ANTHROPIC_API_KEY", &c.LLM.AnthropicAPIKey)
	setString("GITHUB_TOKEN", &c.LLM.GitHubToken)
	setString("OLLAMA_URL", &c.LLM.OllamaURL)
	setString("AZURE_OPENAI_ENDPOINT", &c.LLM.AzureEndpoint)
	setString("AZURE_OPENAI_API_KEY", &c.LLM.AzureAPIKey)
	setString("AZURE_OPENAI_DEPLOYMENT_NAME", &c.LLM.AzureDeployment)
	setString("BISTRO_MODEL", &c.LLM.Model)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.URL)
	setString("BISTRO_JWT_SECRET", &c.Server.JWTSecret)

	if v, ok := os.LookupEnv("DEBUG_MODE"); ok && v != "" {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid DEBUG_MODE %q: %w", v, err)
		}
		c.Debug = debug
	}

	return nil
}

// Validate checks the configuration for impossible values
func (c *Config) Validate() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.Ordering.MaxOrderItems <= 0 {
		return fmt.Errorf("ordering.max_order_items must be positive")
	}
	if c.Ordering.UpsellingThreshold <= 0 {
		return fmt.Errorf("ordering.upselling_threshold must be positive")
	}
	if c.Ordering.ErrorThreshold <= 0 {
		return fmt.Errorf("ordering.error_threshold must be positive")
	}
	if _, err := c.TaxRate(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive")
	}
	return nil
}

// TaxRate parses the configured tax rate
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Ordering.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ordering.tax_rate %q: %w", c.Ordering.TaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("ordering.tax_rate must not be negative")
	}
	return rate, nil
}
