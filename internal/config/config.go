// Package config provides application configuration management using koanf
package config

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `koanf:"server"`

	// Database configuration
	Database DatabaseConfig `koanf:"database"`

	// External services
	Services ServicesConfig `koanf:"services"`

	// Pipeline settings
	Pipeline PipelineConfig `koanf:"pipeline"`

	// Application settings
	App AppConfig `koanf:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string    `koanf:"host"`
	Port         int       `koanf:"port"`
	ReadTimeout  int       `koanf:"read_timeout"`  // seconds
	WriteTimeout int       `koanf:"write_timeout"` // seconds
	TLS          TLSConfig `koanf:"tls"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	MinTLS   string `koanf:"min_version"` // "1.2" or "1.3"
}

// DatabaseConfig holds the vector store configuration
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// ServicesConfig holds external service configuration
type ServicesConfig struct {
	Provider string       `koanf:"provider"` // "ollama" or "openai"
	Ollama   OllamaConfig `koanf:"ollama"`
	OpenAI   OpenAIConfig `koanf:"openai"`
	Tools    ToolsConfig  `koanf:"tools"`
}

// OllamaConfig holds Ollama service configuration
type OllamaConfig struct {
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
	LLMModel       string `koanf:"llm_model"`
	Timeout        int    `koanf:"timeout"` // seconds
}

// OpenAIConfig holds OpenAI service configuration
type OpenAIConfig struct {
	APIKey         string `koanf:"api_key"`
	EmbeddingModel string `koanf:"embedding_model"`
	LLMModel       string `koanf:"llm_model"`
}

// ToolsConfig holds the external research tool configuration
type ToolsConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SearchURL    string `koanf:"search_url"`
	WikipediaURL string `koanf:"wikipedia_url"`
	Timeout      int    `koanf:"timeout"` // seconds
}

// PipelineConfig holds chunking and orchestration settings
type PipelineConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	Overlap      int `koanf:"overlap"`
	TopK         int `koanf:"top_k"`
	AgentTimeout int `koanf:"agent_timeout"` // seconds, per agent call
	Retries      int `koanf:"retries"`       // embedding/store retry bound
}

// AppConfig holds general application settings
type AppConfig struct {
	Environment string `koanf:"environment"` // "development", "staging", "production"
	LogLevel    string `koanf:"log_level"`   // "debug", "info", "warn", "error"
	LogFormat   string `koanf:"log_format"`  // "text" or "json"
}

// Load loads configuration from multiple sources with precedence:
// 1. config.yaml (if exists)
// 2. config.json (if exists)
// 3. Environment variables (highest precedence)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Set defaults
	setDefaults(k)

	// Load from config files (optional)
	loadConfigFiles(k)

	// Load from environment variables (highest precedence)
	// Use simple prefix matching for now
	if err := k.Load(env.Provider(".", env.Opt{}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	// Unmarshal into config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		// Server defaults
		"server.host":            "localhost",
		"server.port":            8080,
		"server.read_timeout":    30,
		"server.write_timeout":   300,
		"server.tls.enabled":     false,
		"server.tls.min_version": "1.3",

		// Database defaults
		"database.path": "knowledge_base.db",

		// Services defaults
		"services.provider":               "ollama",
		"services.ollama.base_url":        "http://localhost:11434",
		"services.ollama.embedding_model": "nomic-embed-text",
		"services.ollama.llm_model":       "llama3",
		"services.ollama.timeout":         120,
		"services.openai.embedding_model": "text-embedding-3-small",
		"services.openai.llm_model":       "gpt-4o-mini",
		"services.tools.enabled":          true,
		"services.tools.search_url":       "https://api.duckduckgo.com",
		"services.tools.wikipedia_url":    "https://en.wikipedia.org/api/rest_v1",
		"services.tools.timeout":          15,

		// Pipeline defaults
		"pipeline.chunk_size":    1000,
		"pipeline.overlap":       200,
		"pipeline.top_k":         5,
		"pipeline.agent_timeout": 180,
		"pipeline.retries":       3,

		// App defaults
		"app.environment": "development",
		"app.log_level":   "info",
		"app.log_format":  "text",
	}

	for key, value := range defaults {
		_ = k.Set(key, value) // Ignore error for setting defaults
	}
}

// loadConfigFiles loads configuration from files
func loadConfigFiles(k *koanf.Koanf) {
	// Try to load YAML config
	if _, err := os.Stat("config.yaml"); err == nil {
		if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
			log.Printf("Warning: failed to load config.yaml: %v", err)
		}
	}

	// Try to load JSON config
	if _, err := os.Stat("config.json"); err == nil {
		if err := k.Load(file.Provider("config.json"), json.Parser()); err != nil {
			log.Printf("Warning: failed to load config.json: %v", err)
		}
	}
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate TLS configuration
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert file is required when TLS is enabled")
		}
		if cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key file is required when TLS is enabled")
		}

		// Check if files exist
		if _, err := os.Stat(cfg.Server.TLS.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS cert file does not exist: %s", cfg.Server.TLS.CertFile)
		}
		if _, err := os.Stat(cfg.Server.TLS.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file does not exist: %s", cfg.Server.TLS.KeyFile)
		}
	}

	// Validate service provider
	switch cfg.Services.Provider {
	case "ollama":
	case "openai":
		if cfg.Services.OpenAI.APIKey == "" {
			return fmt.Errorf("OpenAI API key is required when provider is openai")
		}
	default:
		return fmt.Errorf("unknown service provider: %s", cfg.Services.Provider)
	}

	// Validate chunking defaults
	if cfg.Pipeline.ChunkSize < 1 || cfg.Pipeline.ChunkSize > 5000 {
		return fmt.Errorf("pipeline chunk_size must be in [1,5000], got %d", cfg.Pipeline.ChunkSize)
	}
	if cfg.Pipeline.Overlap < 1 || cfg.Pipeline.Overlap > 1000 {
		return fmt.Errorf("pipeline overlap must be in [1,1000], got %d", cfg.Pipeline.Overlap)
	}
	if cfg.Pipeline.Overlap >= cfg.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline overlap (%d) must be smaller than chunk_size (%d)", cfg.Pipeline.Overlap, cfg.Pipeline.ChunkSize)
	}

	return nil
}

// GetTLSConfig returns a TLS configuration based on the config
func (c ServerConfig) GetTLSConfig() *tls.Config {
	if !c.TLS.Enabled {
		return nil
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12, // Set default minimum version
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}

	// Set minimum TLS version
	switch c.TLS.MinTLS {
	case "1.2":
		tlsConfig.MinVersion = tls.VersionTLS12
	case "1.3":
		tlsConfig.MinVersion = tls.VersionTLS13
	default:
		tlsConfig.MinVersion = tls.VersionTLS13
	}

	return tlsConfig
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
