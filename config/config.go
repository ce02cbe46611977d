// Package config provides configuration loading for the ratatoskr server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// ServerConfig holds HTTP server settings. APIKey, when set, is required in
// the access_token header of every API request.
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// StorageConfig holds the document store location.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// OllamaConfig holds model runtime settings.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	DefaultModel   string `yaml:"default_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PipelineConfig holds query pipeline settings.
type PipelineConfig struct {
	Workers          int    `yaml:"workers"`
	TopK             int    `yaml:"top_k"`
	MinContentLength int    `yaml:"min_content_length"`
	MountPrefix      string `yaml:"mount_prefix"`
	ResponseFeedback bool   `yaml:"response_feedback"`
}

// IngestionConfig holds document ingestion settings.
type IngestionConfig struct {
	Workers      int         `yaml:"workers"`
	ChunkSize    int         `yaml:"chunk_size"`
	ChunkOverlap int         `yaml:"chunk_overlap"`
	Watch        WatchConfig `yaml:"watch"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, applies defaults, and
// validates the result. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// run on defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8899
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath()
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.DefaultModel == "" {
		cfg.Ollama.DefaultModel = "llama3"
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Ollama.TimeoutSeconds == 0 {
		cfg.Ollama.TimeoutSeconds = 120
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 8
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 10
	}
	if cfg.Pipeline.MinContentLength == 0 {
		cfg.Pipeline.MinContentLength = 200
	}
	if cfg.Pipeline.MountPrefix == "" {
		cfg.Pipeline.MountPrefix = "/mnt/"
	}
	if cfg.Ingestion.Workers == 0 {
		cfg.Ingestion.Workers = 2
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 500
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 20
	}
	if len(cfg.Ingestion.Watch.Extensions) == 0 {
		cfg.Ingestion.Watch.Extensions = []string{".txt", ".md", ".csv", ".html", ".pdf"}
	}
}

// Validate checks cross-field consistency after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	if c.Ollama.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid model timeout %d", c.Ollama.TimeoutSeconds)
	}
	for _, dir := range c.Ingestion.Watch.Directories {
		if dir == "" {
			return fmt.Errorf("watch directories must not be empty strings")
		}
	}
	return nil
}

func defaultStoragePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".ratatoskr", "data")
	}
	return "./ratatoskr-data"
}
