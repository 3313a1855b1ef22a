// Package config provides YAML-based configuration loading for Kadrio.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Kadrio configuration, loaded from kadrio.yaml.
// Secrets (API key, DSN overrides) come from the environment, never YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Chat      ChatConfig      `yaml:"chat"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"` // "development" or "production"
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"` // optional bundled frontend
}

// DatabaseConfig selects the GORM driver and connection target.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	DSN    string `yaml:"dsn"`    // sqlite file path or full MySQL DSN
}

// AIConfig holds completion provider settings. The API key is read from
// the GEMINI_API_KEY environment variable.
type AIConfig struct {
	Model           string  `yaml:"model"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float32 `yaml:"temperature"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	APIKey          string  `yaml:"-"`
}

// KnowledgeConfig names the two knowledge document sources.
type KnowledgeConfig struct {
	Dir      string `yaml:"dir"`
	File     string `yaml:"file"`
	TestFile string `yaml:"test_file"`
	TestMode bool   `yaml:"test_mode"`
}

// RateLimitConfig configures the fixed-window limiter. MaxRequests of 0
// means "pick by environment": 30 in production, 60 otherwise.
type RateLimitConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	MaxRequests   int `yaml:"max_requests"`
}

// ChatConfig bounds the conversation pipeline.
type ChatConfig struct {
	HistoryPairs     int `yaml:"history_pairs"`
	MaxMessageLength int `yaml:"max_message_length"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file yields a default config so the server can run with just
// environment variables set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config with environment
// overrides applied.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Server.Env == "production"
}

// applyEnv overlays environment variables onto the parsed values.
func (c *Config) applyEnv() {
	c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("KADRIO_ENV"); v != "" {
		c.Server.Env = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "kadrio.db"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-1.5-flash"
	}
	if c.AI.MaxOutputTokens == 0 {
		c.AI.MaxOutputTokens = 600
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.3
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 30
	}
	if c.Knowledge.Dir == "" {
		c.Knowledge.Dir = "data"
	}
	if c.Knowledge.File == "" {
		c.Knowledge.File = "hr-kompendium.txt"
	}
	if c.Knowledge.TestFile == "" {
		c.Knowledge.TestFile = "hr-kompendium-test.txt"
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.RateLimit.MaxRequests == 0 {
		if c.Production() {
			c.RateLimit.MaxRequests = 30
		} else {
			c.RateLimit.MaxRequests = 60
		}
	}
	if c.Chat.HistoryPairs == 0 {
		c.Chat.HistoryPairs = 4
	}
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = 1000
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required for the mysql driver")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.RateLimit.WindowSeconds < 1 {
		errs = append(errs, "rate_limit.window_seconds must be positive")
	}
	if c.Chat.HistoryPairs < 0 {
		errs = append(errs, "chat.history_pairs must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
