// Package config loads platereg configuration from an optional YAML file and
// the environment. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvDBURL          = "DB_URL"
	EnvRegistryAPIKey = "STATENS_VEGVESEN_API_KEY"
	EnvRegistryURL    = "STATENS_VEGVESEN_URL"
	EnvOllamaURL      = "OLLAMA_URL"
	EnvOllamaModel    = "OLLAMA_MODEL"
	EnvPublicKey      = "PUBLIC_KEY"
	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Registry   RegistryConfig   `yaml:"registry"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Server     ServerConfig     `yaml:"server"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RegistryConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type RecognizerConfig struct {
	// Endpoint is the Ollama server, e.g. http://localhost:11434.
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// PublicKey verifies bearer tokens; a file:// URL or an inline PEM. Empty
	// disables authentication.
	PublicKey string `yaml:"public_key"`
}

type IngestConfig struct {
	ImagesDir   string `yaml:"images_dir"`
	ResultsDir  string `yaml:"results_dir"`
	Concurrency int    `yaml:"concurrency"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			BaseURL: "https://akfell-datautlevering.atlas.vegvesen.no",
			Timeout: 30 * time.Second,
		},
		Recognizer: RecognizerConfig{
			Endpoint: "http://localhost:11434",
			Model:    "llama3.2-vision",
			Timeout:  5 * time.Minute,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Ingest: IngestConfig{
			ImagesDir:   "images",
			ResultsDir:  ".",
			Concurrency: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Load reads path if it is not empty and applies the process environment.
func Load(path string) (config *Config, err error) {
	config = DefaultConfig()
	if path != "" {
		config, err = LoadFromFile(path)
		if err != nil {
			return
		}
	}
	err = config.ApplyEnv(os.LookupEnv)
	return
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBURL); ok {
		c.Database.URL = v
	}
	if v, ok := lookup(EnvRegistryAPIKey); ok {
		c.Registry.APIKey = v
	}
	if v, ok := lookup(EnvRegistryURL); ok {
		c.Registry.BaseURL = v
	}
	if v, ok := lookup(EnvOllamaURL); ok {
		c.Recognizer.Endpoint = v
	}
	if v, ok := lookup(EnvOllamaModel); ok {
		c.Recognizer.Model = v
	}
	if v, ok := lookup(EnvPublicKey); ok {
		c.Server.PublicKey = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (set %s or --db-url)", EnvDBURL)
	}
	return nil
}

func (c *Config) ValidateRegistry() error {
	if c.Registry.APIKey == "" {
		return fmt.Errorf("registry.api_key is required (set %s)", EnvRegistryAPIKey)
	}
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required")
	}
	return nil
}

func (c *Config) ValidateRecognizer() error {
	if c.Recognizer.Endpoint == "" {
		return fmt.Errorf("recognizer.endpoint is required")
	}
	if c.Recognizer.Model == "" {
		return fmt.Errorf("recognizer.model is required")
	}
	return nil
}

func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

func (c *Config) ValidateIngest() error {
	if c.Ingest.ImagesDir == "" {
		return fmt.Errorf("ingest.images_dir is required")
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be at least 1")
	}
	return nil
}

// Validate runs the given checks and joins their failures.
func Validate(checks ...func() error) error {
	var errs []error
	for _, check := range checks {
		if err := check(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
