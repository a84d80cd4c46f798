package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Semantic SemanticConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds relational-store configuration.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// SemanticConfig holds vector-store configuration.
type SemanticConfig struct {
	Path    string // sqlite database file
	Dataset string
}

// OCRConfig holds recognition-backend configuration.
type OCRConfig struct {
	ServiceURL string
	Language   string
	DPI        int
	Timeout    time.Duration
	Pdftoppm   string // binary name or absolute path
}

// LLMConfig holds model-backend configuration.
type LLMConfig struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	APIKey         string
	Temperature    float32
	Timeout        time.Duration
}

// PipelineConfig holds stage thresholds and retry policy.
type PipelineConfig struct {
	ClassifyThreshold float32       // below this, route to needs-review
	DensityThreshold  int           // min embedded chars per page
	MaxAttempts       int           // bounded retries for *Unavailable classes
	RetryBackoff      time.Duration // initial backoff, doubled per attempt
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Semantic: SemanticConfig{
			Path:    getEnv("SEMANTIC_DB_PATH", "./taxdocs-vec.db"),
			Dataset: getEnv("SEMANTIC_DATASET", "taxdocs"),
		},
		OCR: OCRConfig{
			ServiceURL: getEnv("OCR_SERVICE_URL", "http://localhost:5000"),
			Language:   getEnv("OCR_LANGUAGE", "eng"),
			DPI:        getEnvAsInt("OCR_DPI", 300),
			Timeout:    getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
			Pdftoppm:   getEnv("PDFTOPPM_BIN", "pdftoppm"),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:         getEnv("LLM_API_KEY", ""),
			Temperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			ClassifyThreshold: getEnvAsFloat32("CLASSIFY_THRESHOLD", 0.5),
			DensityThreshold:  getEnvAsInt("TEXT_DENSITY_THRESHOLD", 200),
			MaxAttempts:       getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryBackoff:      getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewPipelineError(ClassConfiguration, "config", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewPipelineError(ClassConfiguration, "config", "LLM_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
