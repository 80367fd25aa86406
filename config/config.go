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
)

// ConfigurationError reports a setting the process cannot start without.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	GinMode        string   `yaml:"gin_mode"`
	CORSOrigins    []string `yaml:"cors_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"-"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"-"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type IndexConfig struct {
	Backend      string `yaml:"backend"`
	ChromaURL    string `yaml:"chroma_url"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the root application configuration.
type Config struct {
	Server           ServerConfig    `yaml:"server"`
	LLM              LLMConfig       `yaml:"llm"`
	Embedding        EmbeddingConfig `yaml:"embedding"`
	Index            IndexConfig     `yaml:"index"`
	Telemetry        TelemetryConfig `yaml:"telemetry"`
	Log              LogConfig       `yaml:"log"`
	UnidocLicenseKey string          `yaml:"-"`
	InboxDir         string          `yaml:"inbox_dir"`
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	EmbeddingOllama = "ollama"
	EmbeddingOpenAI = "openai"

	BackendMemory = "memory"
	BackendChroma = "chroma"
)

// Load builds the configuration from .env, an optional YAML file named by
// CONFIG_FILE and the process environment, in increasing precedence.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ConfigurationError{Key: "CONFIG_FILE", Reason: fmt.Sprintf("points to missing file %q", path)}
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			GinMode:        "debug",
			CORSOrigins:    []string{"*"},
			MaxUploadBytes: 50 << 20,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenRouter,
			Timeout:     60 * time.Second,
			MaxRetries:  2,
			Temperature: 0.2,
		},
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingOllama,
			Model:     "nomic-embed-text:v1.5",
			BatchSize: 32,
			Timeout:   120 * time.Second,
		},
		Index: IndexConfig{
			Backend:      BackendMemory,
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         4,
		},
		Telemetry: TelemetryConfig{ServiceName: "finrag"},
		Log:       LogConfig{Level: "info"},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	cfg.Server.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.Server.MaxUploadBytes)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.MaxRetries = getEnvInt("LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	switch cfg.LLM.Provider {
	case ProviderGemini:
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		cfg.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	cfg.Embedding.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider))
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)
	cfg.Embedding.Timeout = getEnvDuration("EMBEDDING_TIMEOUT", cfg.Embedding.Timeout)

	cfg.Index.Backend = strings.ToLower(getEnv("INDEX_BACKEND", cfg.Index.Backend))
	cfg.Index.ChromaURL = getEnv("CHROMA_URL", cfg.Index.ChromaURL)
	cfg.Index.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.Index.ChunkSize)
	cfg.Index.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.Index.ChunkOverlap)
	cfg.Index.TopK = getEnvInt("RETRIEVAL_TOP_K", cfg.Index.TopK)

	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.UnidocLicenseKey = os.Getenv("UNIDOC_LICENSE_KEY")
	cfg.InboxDir = getEnv("INBOX_DIR", cfg.InboxDir)
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == ProviderGemini {
			cfg.LLM.Model = "gemini-2.5-flash"
		} else {
			cfg.LLM.Model = "deepseek/deepseek-chat-v3-0324:free"
		}
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == ProviderOpenRouter {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Embedding.Provider == EmbeddingOpenAI && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.Provider == EmbeddingOllama && cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
}

// Validate checks the settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter:
		if c.LLM.APIKey == "" {
			return &ConfigurationError{Key: "OPENROUTER_API_KEY", Reason: "is required"}
		}
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			return &ConfigurationError{Key: "GEMINI_API_KEY", Reason: "is required"}
		}
	default:
		return &ConfigurationError{Key: "LLM_PROVIDER", Reason: fmt.Sprintf("has unsupported value %q", c.LLM.Provider)}
	}

	switch c.Embedding.Provider {
	case EmbeddingOllama:
	case EmbeddingOpenAI:
		if c.Embedding.APIKey == "" {
			return &ConfigurationError{Key: "EMBEDDING_API_KEY", Reason: "is required for the openai embedding provider"}
		}
	default:
		return &ConfigurationError{Key: "EMBEDDING_PROVIDER", Reason: fmt.Sprintf("has unsupported value %q", c.Embedding.Provider)}
	}

	switch c.Index.Backend {
	case BackendMemory:
	case BackendChroma:
		if c.Index.ChromaURL == "" {
			return &ConfigurationError{Key: "CHROMA_URL", Reason: "is required when INDEX_BACKEND=chroma"}
		}
	default:
		return &ConfigurationError{Key: "INDEX_BACKEND", Reason: fmt.Sprintf("has unsupported value %q", c.Index.Backend)}
	}
	if c.Index.ChunkSize <= 0 {
		return &ConfigurationError{Key: "CHUNK_SIZE", Reason: "must be positive"}
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return &ConfigurationError{Key: "CHUNK_OVERLAP", Reason: "must be in [0, CHUNK_SIZE)"}
	}
	if c.Index.TopK < 1 {
		return &ConfigurationError{Key: "RETRIEVAL_TOP_K", Reason: "must be at least 1"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
