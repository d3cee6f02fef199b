package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Video     VideoConfig     `yaml:"video"`
	Social    SocialConfig    `yaml:"social"`
	Ideas     IdeasConfig     `yaml:"ideas"`
	EnvFile   string          `yaml:"env_file"` // path to the credentials .env file
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings. An empty URL runs the
// store in memory only.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SchedulerConfig holds settings for the workflow scheduler.
type SchedulerConfig struct {
	TickSeconds int `yaml:"tick_seconds"` // due-scan interval (default: 60)
}

// ExecutorConfig holds per-stage timeouts for workflow runs.
type ExecutorConfig struct {
	SelectTimeoutSeconds   int `yaml:"select_timeout_seconds"`
	GenerateTimeoutSeconds int `yaml:"generate_timeout_seconds"`
	PublishTimeoutSeconds  int `yaml:"publish_timeout_seconds"`
	MaxParallelPublish     int `yaml:"max_parallel_publish"`
}

// VideoConfig holds video generation API settings. The API key itself lives
// in the env file under Credential.
type VideoConfig struct {
	URL        string `yaml:"url"`
	Model      string `yaml:"model"`
	Credential string `yaml:"credential"` // credential name, e.g. "kie-api"
}

// SocialConfig holds publishing aggregator settings. Accounts maps each
// platform to its connected account ID.
type SocialConfig struct {
	URL        string            `yaml:"url"`
	Credential string            `yaml:"credential"`
	Accounts   map[string]string `yaml:"accounts"`
}

// IdeasConfig holds idea bank settings.
type IdeasConfig struct {
	FeedURL string `yaml:"feed_url"` // optional default RSS feed
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			TickSeconds: 60,
		},
		Executor: ExecutorConfig{
			SelectTimeoutSeconds:   30,
			GenerateTimeoutSeconds: 600,
			PublishTimeoutSeconds:  120,
			MaxParallelPublish:     4,
		},
		Video: VideoConfig{
			URL:        "https://api.kie.ai/api/v1",
			Credential: "kie-api",
		},
		Social: SocialConfig{
			URL:        "https://backend.blotato.com/v2",
			Credential: "blotato-api",
			Accounts:   map[string]string{},
		},
		EnvFile: ".env",
	}
}

// Load reads a YAML configuration file at path and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Ensure Accounts map is never nil even if YAML has "accounts: {}" or omits it.
	if cfg.Social.Accounts == nil {
		cfg.Social.Accounts = map[string]string{}
	}

	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns sensible defaults.
// Any other error (e.g. permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}
