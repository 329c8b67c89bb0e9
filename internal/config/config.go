// Package config loads the assistant's settings from .env, an optional YAML
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dileep-u-k/pmo-assistant/internal/completion"
	"github.com/dileep-u-k/pmo-assistant/internal/llm"
	"github.com/dileep-u-k/pmo-assistant/internal/memory"
)

// DefaultFile is read when PMO_CONFIG is not set. It may be absent.
const DefaultFile = "config.yaml"

type Config struct {
	Server      ServerConfig `yaml:"server"`
	LogLevel    string       `yaml:"log_level"`
	DatabaseURL string       `yaml:"database_url"`
	Agent       AgentConfig  `yaml:"agent"`
	Tools       ToolsConfig  `yaml:"tools"`

	// Sources lists what was loaded, for the start-up log.
	Sources []string `yaml:"-"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type AgentConfig struct {
	Provider         string   `yaml:"provider"`
	Model            string   `yaml:"model"`
	BaseURL          string   `yaml:"base_url"`
	Temperature      *float32 `yaml:"temperature"`
	MaxSteps         int      `yaml:"max_steps"`
	MaxParallelTools int      `yaml:"max_parallel_tools"`
	LastMessages     int      `yaml:"last_messages"`

	// APIKey is only ever read from the environment.
	APIKey string `yaml:"-"`
}

type ToolsConfig struct {
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Brave    WebEndpoint   `yaml:"brave"`
	Jina     WebEndpoint   `yaml:"jina"`
	Dify     WebEndpoint   `yaml:"dify"`
}

// WebEndpoint configures one of the HTTP pass-through tools.
type WebEndpoint struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "debug",
			ShutdownTimeout: 10 * time.Second,
		},
		LogLevel:    "info",
		DatabaseURL: memory.DefaultURL,
		Agent: AgentConfig{
			Provider:         llm.ProviderOpenAI,
			Model:            "gpt-5-nano",
			MaxSteps:         8,
			MaxParallelTools: 4,
			LastMessages:     40,
		},
		Tools: ToolsConfig{
			Model:    "gpt-5-nano",
			Endpoint: completion.DefaultEndpoint,
			Timeout:  completion.DefaultTimeout,
			Brave:    WebEndpoint{Timeout: 20 * time.Second},
			Jina:     WebEndpoint{Timeout: 20 * time.Second},
			Dify:     WebEndpoint{Timeout: 60 * time.Second},
		},
	}
}

// Load builds the configuration. The .env file is skipped in release mode,
// where the environment is provided by the container runtime. path names the
// YAML file; empty means PMO_CONFIG or DefaultFile.
func Load(path string) (*Config, error) {
	cfg := Default()

	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err == nil {
			cfg.Sources = append(cfg.Sources, ".env")
		}
	}

	if path == "" {
		path = os.Getenv("PMO_CONFIG")
	}
	if path == "" {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Agent.APIKey = os.Getenv(llm.APIKeyEnv(cfg.Agent.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.Sources = append(c.Sources, path)
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "GIN_MODE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Agent.Provider, "AGENT_PROVIDER")
	setString(&c.Agent.Model, "AGENT_MODEL")
	setString(&c.Agent.BaseURL, "AGENT_BASE_URL")
	setString(&c.Tools.Model, "TOOLS_MODEL")
	setString(&c.Tools.Endpoint, "TOOLS_ENDPOINT")
	setString(&c.Tools.Brave.BaseURL, "BRAVE_BASE_URL")
	setString(&c.Tools.Jina.BaseURL, "JINA_BASE_URL")
	setString(&c.Tools.Dify.BaseURL, "DIFY_BASE_URL")

	if err := setDuration(&c.Tools.Timeout, "TOOLS_TIMEOUT"); err != nil {
		return err
	}
	return setInt(&c.Agent.MaxSteps, "AGENT_MAX_STEPS")
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Agent.Provider {
	case llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("unknown AGENT_PROVIDER %q (want openai, gemini or anthropic)", c.Agent.Provider)
	}
	if c.Server.Port == "" {
		return errors.New("server port is empty")
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("tools timeout must be positive, got %s", c.Tools.Timeout)
	}
	if c.Agent.MaxSteps <= 0 || c.Agent.MaxParallelTools <= 0 || c.Agent.LastMessages <= 0 {
		return errors.New("agent limits (max_steps, max_parallel_tools, last_messages) must be positive")
	}
	return nil
}

// RequireAgentKey fails when the agent provider's API key is missing. Commands
// that only run tools do not need it.
func (c *Config) RequireAgentKey() error {
	if c.Agent.APIKey == "" {
		return &completion.ConfigurationError{Variable: llm.APIKeyEnv(c.Agent.Provider)}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// setDuration accepts Go durations ("90s") or a plain number of seconds.
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
