// Package config loads the assistant configuration from a YAML file with
// QUERYPILOT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config is the full assistant configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Server   ServerConfig   `mapstructure:"server"`
	Profile  ProfileConfig  `mapstructure:"profile"`
}

// LLMConfig selects the language model provider and generation parameters.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, anthropic
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"` // OpenAI-compatible endpoint override
	APIKey      string        `mapstructure:"api_key"`
	APIKeyEnv   string        `mapstructure:"api_key_env"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig configures the execution surface.
type DatabaseConfig struct {
	Root         string        `mapstructure:"root"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// SessionConfig configures the durable session store.
type SessionConfig struct {
	DSN string `mapstructure:"dsn"` // sqlite file path or postgres:// DSN
}

// ServerConfig configures the serve command's HTTP listener.
type ServerConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// ProfileConfig configures startup profile collection.
type ProfileConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	QuestionsFile string        `mapstructure:"questions_file"`
	AnswerTimeout time.Duration `mapstructure:"answer_timeout"`
}

// Load reads configuration from path, or from querypilot.yaml in the working
// directory and ~/.querypilot when path is empty. Environment variables with
// the QUERYPILOT_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("querypilot")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.querypilot")
	}

	v.SetEnvPrefix("QUERYPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default config file is fine; an explicit path is not.
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// The defaults target a local OpenAI-compatible runtime (Ollama), which
	// needs no real API key.
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-oss:20b")
	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "not-needed")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", time.Minute)

	v.SetDefault("database.root", "./databases")
	v.SetDefault("database.query_timeout", 30*time.Second)

	v.SetDefault("session.dsn", "./state/sessions.db")

	v.SetDefault("server.metrics_addr", "127.0.0.1:9090")

	v.SetDefault("profile.enabled", false)
	v.SetDefault("profile.answer_timeout", 5*time.Minute)
}

// ValidateServe checks only the sections the serve command uses. The MCP
// server never calls the language model, so LLM settings are not required to
// start it.
func (c *Config) ValidateServe() error {
	var result *multierror.Error

	if c.Database.Root == "" {
		result = multierror.Append(result, fmt.Errorf("database.root is required"))
	}
	if c.Server.MetricsAddr == "" {
		result = multierror.Append(result, fmt.Errorf("server.metrics_addr is required"))
	}

	return result.ErrorOrNil()
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.LLM.Provider {
	case "openai", "anthropic":
	case "":
		result = multierror.Append(result, fmt.Errorf("llm.provider is required"))
	default:
		result = multierror.Append(result, fmt.Errorf("llm.provider %q is not supported (openai, anthropic)", c.LLM.Provider))
	}

	if c.LLM.Model == "" {
		result = multierror.Append(result, fmt.Errorf("llm.model is required"))
	}
	if c.LLM.Provider == "anthropic" && c.LLM.APIKey == "" {
		result = multierror.Append(result, fmt.Errorf("llm.api_key or llm.api_key_env is required for the anthropic provider"))
	}
	if c.Database.Root == "" {
		result = multierror.Append(result, fmt.Errorf("database.root is required"))
	}
	if c.Session.DSN == "" {
		result = multierror.Append(result, fmt.Errorf("session.dsn is required"))
	}

	return result.ErrorOrNil()
}
