package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Ollama OllamaConfig `mapstructure:"ollama"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Karton KartonConfig `mapstructure:"karton"`
	Triage TriageConfig `mapstructure:"triage"`
	Store  StoreConfig  `mapstructure:"store"`
	Enrich EnrichConfig `mapstructure:"enrich"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type OpenAIConfig struct {
	// APIKey is the fallback key for gpt-4o / gpt-4o-mini requests that
	// carry no api_key form value. It may stay empty; such requests are
	// then rejected.
	APIKey      string `mapstructure:"api_key"`
	APIEndpoint string `mapstructure:"endpoint"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type ChatConfig struct {
	DefaultModel string `mapstructure:"default_model"`
}

type KartonConfig struct {
	ResultAPIURL string        `mapstructure:"result_api_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type TriageConfig struct {
	URL string `mapstructure:"url"`
	// APIKey empty disables triage enrichment of result entries.
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	// URL is an afs location, so file paths and schemes like mem:// both work.
	URL string `mapstructure:"url"`
}

type EnrichConfig struct {
	TTPContextPath string `mapstructure:"ttp_context_path"`
}

// envBindings maps every config key to the environment variable it is read from.
var envBindings = map[string]string{
	"server.port":             "SERVER_PORT",
	"server.host":             "SERVER_HOST",
	"server.read_timeout":     "SERVER_READ_TIMEOUT",
	"server.write_timeout":    "SERVER_WRITE_TIMEOUT",
	"log.level":               "LOG_LEVEL",
	"openai.api_key":          "OPENAI_API_KEY",
	"openai.endpoint":         "OPENAI_ENDPOINT",
	"ollama.url":              "OLLAMA_URL",
	"chat.default_model":      "CHAT_DEFAULT_MODEL",
	"karton.result_api_url":   "KARTON_RESULT_API_URL",
	"karton.timeout":          "KARTON_TIMEOUT",
	"triage.url":              "TRIAGE_URL",
	"triage.api_key":          "TRIAGE_API_KEY",
	"triage.timeout":          "TRIAGE_TIMEOUT",
	"store.url":               "STORE_URL",
	"enrich.ttp_context_path": "TTP_CONTEXT_PATH",
}

var defaults = map[string]any{
	"server.port":             "8000",
	"server.host":             "0.0.0.0",
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"log.level":               "info",
	"openai.endpoint":         "https://api.openai.com/v1",
	"ollama.url":              "http://localhost:11434",
	"chat.default_model":      "llama3.2:latest",
	"karton.timeout":          "30s",
	"triage.url":              "https://tria.ge/api/v0",
	"triage.timeout":          "30s",
	"store.url":               "/var/lib/amplec/submissions",
	"enrich.ttp_context_path": "data/ttp_context.json",
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Karton.ResultAPIURL == "" {
		return nil, fmt.Errorf("KARTON_RESULT_API_URL is not set")
	}

	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

// LogLevel translates the configured level name into a slog level,
// falling back to info for anything it does not recognize.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
