package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported MCP transport types
const (
	ClientTypeSSE            = "sse"
	ClientTypeStreamableHTTP = "streamable_http"
	ClientTypeStdio          = "stdio"
)

// Supported history drivers
const (
	HistoryDriverSQLite = "sqlite"
	HistoryDriverMemory = "memory"
)

// Config holds the application configuration
type Config struct {
	LLM        LLMConfig
	Server     ServerConfig
	History    HistoryConfig
	Log        LogConfig
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// HistoryConfig selects and locates the conversation store.
type HistoryConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MCPServerConfig describes one MCP tool server exposed to the remote model.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// env bindings, first key is the config key
var envBindings = [][]string{
	{"llm.api_key", "OPENAI_API_KEY", "LLM_API_KEY"},
	{"llm.model", "OPENAI_MODEL", "LLM_MODEL"},
	{"llm.base_url", "OPENAI_BASE_URL", "LLM_BASE_URL"},
	{"llm.system_prompt", "LLM_SYSTEM_PROMPT"},
	{"llm.max_tokens", "LLM_MAX_TOKENS"},
	{"llm.temperature", "LLM_TEMPERATURE"},
	{"llm.timeout", "LLM_TIMEOUT"},
	{"server.host", "HOST"},
	{"server.port", "PORT"},
	{"history.driver", "HISTORY_DRIVER"},
	{"history.path", "HISTORY_DB_PATH"},
	{"log.level", "LOG_LEVEL"},
	{"log.file", "LOG_FILE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("history.driver", HistoryDriverSQLite)
	v.SetDefault("history.path", "echoal.db")
	v.SetDefault("log.level", "info")
}

// Load loads the configuration from an optional YAML file and the environment.
// CONFIG_PATH points at an explicit file; otherwise config.yaml in the working
// directory is used when present.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, b := range envBindings {
		if err := v.BindEnv(b...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", b[0], err)
		}
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.History.Driver = strings.ToLower(config.History.Driver)

	return &config, nil
}
