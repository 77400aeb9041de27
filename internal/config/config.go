package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the fiscalia API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Routing    RoutingConfig    `yaml:"routing"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds document object store (S3-compatible) settings.
type StoreConfig struct {
	Endpoint   string `yaml:"endpoint"` // empty for AWS
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// GenerationConfig holds completion provider settings. Classification and
// answer synthesis share the provider but use separate token caps.
type GenerationConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	MaxTokens          int    `yaml:"max_tokens"`
	TimeoutSec         int    `yaml:"timeout_sec"`
	ClassifyModel      string `yaml:"classify_model"` // default: Model
	ClassifyTimeoutSec int    `yaml:"classify_timeout_sec"`
}

// RetrievalConfig holds the semantic retrieval tuning knobs. The ranking
// and synthesis code reads everything from here, nothing inline.
type RetrievalConfig struct {
	CacheTTLSec        int     `yaml:"cache_ttl_sec"`
	ScoreThreshold     float64 `yaml:"score_threshold"`
	TopK               int     `yaml:"top_k"`
	TitleRepeat        int     `yaml:"title_repeat"`
	ContentPrefixChars int     `yaml:"content_prefix_chars"`
	MaxContextChars    int     `yaml:"max_context_chars"`
	SnippetChars       int     `yaml:"snippet_chars"`
	EmbedWorkers       int     `yaml:"embed_workers"`
	EmbedCacheSize     int     `yaml:"embed_cache_size"`
}

// RoutingConfig holds classification settings.
type RoutingConfig struct {
	DefaultLabel string `yaml:"default_label"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Region == "" {
		c.Store.Region = "eu-west-3"
	}
	if c.Store.TimeoutSec <= 0 {
		c.Store.TimeoutSec = 20
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.ClassifyModel == "" {
		c.Generation.ClassifyModel = c.Generation.Model
	}
	if c.Generation.ClassifyTimeoutSec <= 0 {
		c.Generation.ClassifyTimeoutSec = 10
	}
	if c.Retrieval.CacheTTLSec <= 0 {
		c.Retrieval.CacheTTLSec = 3600
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = 0.3
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.TitleRepeat <= 0 {
		c.Retrieval.TitleRepeat = 3
	}
	if c.Retrieval.ContentPrefixChars <= 0 {
		c.Retrieval.ContentPrefixChars = 1000
	}
	if c.Retrieval.MaxContextChars <= 0 {
		c.Retrieval.MaxContextChars = 12000
	}
	if c.Retrieval.SnippetChars <= 0 {
		c.Retrieval.SnippetChars = 500
	}
	if c.Retrieval.EmbedWorkers <= 0 {
		c.Retrieval.EmbedWorkers = 4
	}
	if c.Retrieval.EmbedCacheSize <= 0 {
		c.Retrieval.EmbedCacheSize = 1024
	}
	if c.Routing.DefaultLabel == "" {
		c.Routing.DefaultLabel = "fiscalite"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Store.Bucket == "" {
		return fmt.Errorf("store.bucket is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Retrieval.ScoreThreshold < -1 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf(
			"retrieval.score_threshold must be within [-1, 1], got %v",
			c.Retrieval.ScoreThreshold,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
