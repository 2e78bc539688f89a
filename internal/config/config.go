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

// Config holds the newsflow pipeline configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Topics   []TopicConfig  `yaml:"topics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds the status API server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds embedding and reasoning provider settings
// (OpenAI-compatible API).
type ProviderConfig struct {
	Name           string `yaml:"name"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
	ReasoningModel string `yaml:"reasoning_model"`
}

// PipelineConfig holds pipeline tuning knobs.
type PipelineConfig struct {
	Concurrency         int     `yaml:"concurrency"`
	ArticleTimeoutSec   int     `yaml:"article_timeout_sec"`
	MaxReasonIterations int     `yaml:"max_reason_iterations"`
	NearDupThreshold    float64 `yaml:"near_dup_threshold"`
	RecentWindow        int     `yaml:"recent_window"`
	RetryMaxAttempts    int     `yaml:"retry_max_attempts"`
	RetryBaseMs         int     `yaml:"retry_base_ms"`
	RetryMaxMs          int     `yaml:"retry_max_ms"`
	TraceBufferSize     int     `yaml:"trace_buffer_size"`
	EventRetention      int     `yaml:"event_retention"`
}

// IngestConfig holds article source settings. Driver selects the source:
// "poll" fetches from an EventRegistry-style HTTP endpoint, "kafka" consumes
// a topic of raw articles.
type IngestConfig struct {
	Driver          string              `yaml:"driver"` // poll, kafka (default: poll)
	PollIntervalSec int                 `yaml:"poll_interval_sec"`
	LookbackSec     int                 `yaml:"lookback_sec"`
	RequeueBatch    int                 `yaml:"requeue_batch"`
	EventRegistry   EventRegistryConfig `yaml:"eventregistry"`
	Kafka           KafkaConfig         `yaml:"kafka"`
}

// EventRegistryConfig holds the HTTP article source settings.
type EventRegistryConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Keyword  string `yaml:"keyword"`
	PageSize int    `yaml:"page_size"`
}

// KafkaConfig holds the Kafka article source settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// TopicConfig declares one tracked topic. The vector is computed at startup
// by embedding the query text; declaration order breaks classification ties.
type TopicConfig struct {
	Name      string  `yaml:"name"`
	Query     string  `yaml:"query"`
	Threshold float64 `yaml:"threshold"`
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.ArticleTimeoutSec <= 0 {
		c.Pipeline.ArticleTimeoutSec = 120
	}
	if c.Pipeline.MaxReasonIterations <= 0 {
		c.Pipeline.MaxReasonIterations = 3
	}
	if c.Pipeline.NearDupThreshold <= 0 {
		c.Pipeline.NearDupThreshold = 0.95
	}
	if c.Pipeline.RecentWindow <= 0 {
		c.Pipeline.RecentWindow = 512
	}
	if c.Pipeline.RetryMaxAttempts <= 0 {
		c.Pipeline.RetryMaxAttempts = 3
	}
	if c.Pipeline.RetryBaseMs <= 0 {
		c.Pipeline.RetryBaseMs = 500
	}
	if c.Pipeline.RetryMaxMs <= 0 {
		c.Pipeline.RetryMaxMs = 5000
	}
	if c.Pipeline.TraceBufferSize <= 0 {
		c.Pipeline.TraceBufferSize = 1024
	}
	if c.Pipeline.EventRetention <= 0 {
		c.Pipeline.EventRetention = 256
	}
	if c.Ingest.Driver == "" {
		c.Ingest.Driver = "poll"
	}
	if c.Ingest.PollIntervalSec <= 0 {
		c.Ingest.PollIntervalSec = 300
	}
	if c.Ingest.LookbackSec <= 0 {
		c.Ingest.LookbackSec = 86400
	}
	if c.Ingest.RequeueBatch <= 0 {
		c.Ingest.RequeueBatch = 32
	}
	if c.Ingest.EventRegistry.PageSize <= 0 {
		c.Ingest.EventRegistry.PageSize = 50
	}
}

// Validate checks the configuration for correctness. A broken topic set is a
// configuration error: it fails the whole run at startup, never per article.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("topics is required: at least one tracked topic")
	}
	seen := make(map[string]bool, len(c.Topics))
	for i, t := range c.Topics {
		if t.Name == "" {
			return fmt.Errorf("topics[%d].name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate topic %q", t.Name)
		}
		seen[t.Name] = true
		if t.Query == "" {
			return fmt.Errorf("topics[%d].query is required", i)
		}
		if t.Threshold < -1 || t.Threshold > 1 {
			return fmt.Errorf("topics[%d].threshold must be in [-1, 1], got %f", i, t.Threshold)
		}
	}
	switch c.Ingest.Driver {
	case "poll", "kafka":
		// ok
	default:
		return fmt.Errorf("ingest.driver must be \"poll\" or \"kafka\", got %q", c.Ingest.Driver)
	}
	if c.Ingest.Driver == "kafka" && len(c.Ingest.Kafka.Brokers) == 0 {
		return fmt.Errorf("ingest.kafka.brokers is required for the kafka driver")
	}
	if c.Pipeline.NearDupThreshold > 1 {
		return fmt.Errorf("pipeline.near_dup_threshold must be at most 1, got %f", c.Pipeline.NearDupThreshold)
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
