// Package config loads sidekick's configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given explicitly.
const DefaultPath = "config.yaml"

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// Store backends.
const (
	BackendFile      = "file"
	BackendSurrealDB = "surrealdb"
)

// Config holds all configuration values. It is loaded once at startup and
// passed by value into the components that need it.
type Config struct {
	APIKey       string
	SystemPrompt string

	// LLM
	LLMProvider string
	LLMModel    string
	OllamaHost  string
	AWSRegion   string

	// Store
	StoreBackend string
	DataDir      string

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig mirrors the YAML layout.
type fileConfig struct {
	APIKey       string `yaml:"api_key"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	SystemPrompt string `yaml:"system_prompt"`

	LLM struct {
		Provider   string `yaml:"provider"`
		Model      string `yaml:"model"`
		OllamaHost string `yaml:"ollama_host"`
		AWSRegion  string `yaml:"aws_region"`
	} `yaml:"llm"`

	Store struct {
		Backend string `yaml:"backend"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"store"`

	SurrealDB struct {
		URL       string `yaml:"url"`
		Namespace string `yaml:"namespace"`
		Database  string `yaml:"database"`
		User      string `yaml:"user"`
		Pass      string `yaml:"pass"`
		AuthLevel string `yaml:"auth_level"`
	} `yaml:"surrealdb"`

	Log struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the config file at path and applies environment overrides.
// When explicit is false a missing file is not an error.
func Load(path string, explicit bool) (Config, error) {
	var fc fileConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		slog.Debug("no config file, using defaults", "path", path)
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return fromFile(fc), nil
}

func fromFile(fc fileConfig) Config {
	apiKey := first(fc.APIKey, fc.OpenAIAPIKey)

	cfg := Config{
		APIKey:       getEnv("SIDEKICK_API_KEY", first(apiKey, os.Getenv("OPENAI_API_KEY"))),
		SystemPrompt: fc.SystemPrompt,

		LLMProvider: strings.ToLower(getEnv("SIDEKICK_LLM_PROVIDER", first(fc.LLM.Provider, ProviderOpenAI))),
		LLMModel:    getEnv("SIDEKICK_LLM_MODEL", fc.LLM.Model),
		OllamaHost:  getEnv("OLLAMA_HOST", first(fc.LLM.OllamaHost, "http://localhost:11434")),
		AWSRegion:   getEnv("AWS_REGION", first(fc.LLM.AWSRegion, "us-east-1")),

		StoreBackend: strings.ToLower(getEnv("SIDEKICK_STORE_BACKEND", first(fc.Store.Backend, BackendFile))),
		DataDir:      getEnv("SIDEKICK_DATA_DIR", first(fc.Store.DataDir, ".")),

		SurrealDBURL:       getEnv("SURREALDB_URL", first(fc.SurrealDB.URL, "ws://localhost:8000/rpc")),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", first(fc.SurrealDB.Namespace, "sidekick")),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", first(fc.SurrealDB.Database, "records")),
		SurrealDBUser:      getEnv("SURREALDB_USER", first(fc.SurrealDB.User, "root")),
		SurrealDBPass:      getEnv("SURREALDB_PASS", first(fc.SurrealDB.Pass, "root")),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", first(fc.SurrealDB.AuthLevel, "root")),

		LogFile:  getEnv("SIDEKICK_LOG_FILE", first(fc.Log.File, "/tmp/sidekick.log")),
		LogLevel: parseLogLevel(getEnv("SIDEKICK_LOG_LEVEL", first(fc.Log.Level, "INFO"))),
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultModel(cfg.LLMProvider)
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return cfg
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOllama:
		return "llama3.1"
	case ProviderBedrock:
		return "anthropic.claude-3-5-sonnet-20240620-v1:0"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return "gpt-4o"
	}
}

// Validate checks that the configuration can start a session.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%s requires an API key (api_key in %s or SIDEKICK_API_KEY)", c.LLMProvider, DefaultPath)
		}
	case ProviderOllama, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	switch c.StoreBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("file store requires a data directory")
		}
	case BackendSurrealDB:
		if c.SurrealDBURL == "" {
			return fmt.Errorf("surrealdb store requires a URL")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", c.StoreBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
