// Package config provides configuration types and loading for the bot.
// A single YAML file is the entry point; every section implements
// Validate and SetDefaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/askdev-bot/askdev/pkg/i18n"
)

// Config is the complete configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Limits  LimitsConfig  `yaml:"limits,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Chat    ChatConfig    `yaml:"chat,omitempty"`
	Logger  LoggerConfig  `yaml:"logger,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
}

// LLMConfig configures the remote completion endpoint.
type LLMConfig struct {
	Model            string  `yaml:"model"`
	APIKey           string  `yaml:"api_key"`
	Host             string  `yaml:"host"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
}

// SetDefaults implements ConfigInterface for LLMConfig.
func (c *LLMConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Host == "" {
		c.Host = "https://api.openai.com/v1"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1500
	}
	if c.TopP == 0 {
		c.TopP = 1.0
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
}

// Validate implements ConfigInterface for LLMConfig.
// A missing API key is fatal at startup: the service must not begin serving
// traffic without a credential.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative")
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LimitsConfig configures per-user admission control.
type LimitsConfig struct {
	RateLimit         int `yaml:"rate_limit"`
	RatePeriodSeconds int `yaml:"rate_period_seconds"`
}

// SetDefaults implements ConfigInterface for LimitsConfig.
func (c *LimitsConfig) SetDefaults() {
	if c.RateLimit == 0 {
		c.RateLimit = 5
	}
	if c.RatePeriodSeconds == 0 {
		c.RatePeriodSeconds = 60
	}
}

// Validate implements ConfigInterface for LimitsConfig.
func (c *LimitsConfig) Validate() error {
	if c.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be positive")
	}
	if c.RatePeriodSeconds < 1 {
		return fmt.Errorf("rate_period_seconds must be positive")
	}
	return nil
}

// RatePeriod returns the rolling window as a duration.
func (c *LimitsConfig) RatePeriod() time.Duration {
	return time.Duration(c.RatePeriodSeconds) * time.Second
}

// HistoryConfig bounds local retention and the upstream context window.
type HistoryConfig struct {
	MaxTurns     int `yaml:"max_turns"`
	ContextTurns int `yaml:"context_turns"`
}

// SetDefaults implements ConfigInterface for HistoryConfig.
func (c *HistoryConfig) SetDefaults() {
	if c.MaxTurns == 0 {
		c.MaxTurns = 20
	}
	if c.ContextTurns == 0 {
		c.ContextTurns = 10
	}
}

// Validate implements ConfigInterface for HistoryConfig.
func (c *HistoryConfig) Validate() error {
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be positive")
	}
	if c.ContextTurns < 1 {
		return fmt.Errorf("context_turns must be positive")
	}
	if c.ContextTurns > c.MaxTurns {
		return fmt.Errorf("context_turns must not exceed max_turns")
	}
	return nil
}

// ChatConfig configures the user-facing reply behavior.
type ChatConfig struct {
	ChunkLimit      int    `yaml:"chunk_limit"`
	ChunkPauseMS    int    `yaml:"chunk_pause_ms"`
	DefaultLanguage string `yaml:"default_language"`
}

// SetDefaults implements ConfigInterface for ChatConfig.
func (c *ChatConfig) SetDefaults() {
	if c.ChunkLimit == 0 {
		c.ChunkLimit = 4000
	}
	if c.ChunkPauseMS == 0 {
		c.ChunkPauseMS = 300
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = string(i18n.DefaultLanguage)
	}
}

// Validate implements ConfigInterface for ChatConfig.
func (c *ChatConfig) Validate() error {
	if c.ChunkLimit < 1 {
		return fmt.Errorf("chunk_limit must be positive")
	}
	if c.ChunkPauseMS < 0 {
		return fmt.Errorf("chunk_pause_ms must be non-negative")
	}
	if !i18n.IsSupported(i18n.Language(c.DefaultLanguage)) {
		return fmt.Errorf("default_language %q is not supported", c.DefaultLanguage)
	}
	return nil
}

// ChunkPause returns the inter-chunk delivery pause as a duration.
func (c *ChatConfig) ChunkPause() time.Duration {
	return time.Duration(c.ChunkPauseMS) * time.Millisecond
}

// Language returns the default language as the typed value.
func (c *ChatConfig) Language() i18n.Language {
	return i18n.Language(c.DefaultLanguage)
}

// LoggerConfig configures logging output.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// SetDefaults implements ConfigInterface for LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate implements ConfigInterface for LoggerConfig.
func (c *LoggerConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	AdminPort int `yaml:"admin_port"`
}

// SetDefaults implements ConfigInterface for ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.AdminPort == 0 {
		c.AdminPort = 8081
	}
}

// Validate implements ConfigInterface for ServerConfig.
func (c *ServerConfig) Validate() error {
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		return fmt.Errorf("admin_port must be a valid port")
	}
	return nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Limits.SetDefaults()
	c.History.SetDefaults()
	c.Chat.SetDefaults()
	c.Logger.SetDefaults()
	c.Server.SetDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// LoadConfig loads the configuration from a YAML file, expanding
// environment variable references, then applies defaults and validates.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadConfigFromString(string(data))
}

// LoadConfigFromString loads configuration from a YAML string.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(yamlContent)), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no
// credential set. Useful for tests.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// ConfigInterface is implemented by every configuration section.
type ConfigInterface interface {
	Validate() error
	SetDefaults()
}

var (
	_ ConfigInterface = (*Config)(nil)
	_ ConfigInterface = (*LLMConfig)(nil)
	_ ConfigInterface = (*LimitsConfig)(nil)
	_ ConfigInterface = (*HistoryConfig)(nil)
	_ ConfigInterface = (*ChatConfig)(nil)
	_ ConfigInterface = (*LoggerConfig)(nil)
	_ ConfigInterface = (*ServerConfig)(nil)
)
