package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Host    string `mapstructure:"HOST"`
	Port    string `mapstructure:"PORT"`
	GinMode string `mapstructure:"GIN_MODE"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis (processing job queue)
	RedisURL string `mapstructure:"REDIS_URL"`

	// Embedding provider
	EmbeddingProvider   string `mapstructure:"EMBEDDING_PROVIDER"`
	EmbeddingAPIKey     string `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL    string `mapstructure:"EMBEDDING_BASE_URL"`
	EmbeddingModel      string `mapstructure:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `mapstructure:"EMBEDDING_DIMENSIONS"`

	// Generative model
	LLMProvider string `mapstructure:"LLM_PROVIDER"`
	LLMAPIKey   string `mapstructure:"LLM_API_KEY"`
	LLMBaseURL  string `mapstructure:"LLM_BASE_URL"`
	LLMModel    string `mapstructure:"LLM_MODEL"`

	// File storage
	StoragePath   string `mapstructure:"STORAGE_PATH"`
	MaxUploadSize int64  `mapstructure:"MAX_UPLOAD_SIZE"`

	// Chunking defaults
	ChunkSize    int `mapstructure:"CHUNK_SIZE"`
	ChunkOverlap int `mapstructure:"CHUNK_OVERLAP"`

	// Processing
	WorkerCount    int    `mapstructure:"WORKER_COUNT"`
	IndexCacheSize int    `mapstructure:"INDEX_CACHE_SIZE"`
	OCRLanguages   string `mapstructure:"OCR_LANGUAGES"`

	// Retrieval
	MaxContextChars int `mapstructure:"MAX_CONTEXT_CHARS"`
	DefaultTopK     int `mapstructure:"DEFAULT_TOP_K"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "8087")
	viper.SetDefault("GIN_MODE", "release")
	viper.SetDefault("DATABASE_URL", "postgres://localhost:5432/plai_rag?sslmode=disable")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379")
	viper.SetDefault("EMBEDDING_PROVIDER", "openai")
	viper.SetDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	viper.SetDefault("EMBEDDING_DIMENSIONS", 1536)
	viper.SetDefault("LLM_PROVIDER", "openai")
	viper.SetDefault("LLM_MODEL", "gpt-4o-mini")
	viper.SetDefault("STORAGE_PATH", "./storage")
	viper.SetDefault("MAX_UPLOAD_SIZE", 50*1024*1024)
	viper.SetDefault("CHUNK_SIZE", 1000)
	viper.SetDefault("CHUNK_OVERLAP", 200)
	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("INDEX_CACHE_SIZE", 8)
	viper.SetDefault("OCR_LANGUAGES", "eng")
	viper.SetDefault("MAX_CONTEXT_CHARS", 12000)
	viper.SetDefault("DEFAULT_TOP_K", 5)
	viper.SetDefault("LOG_LEVEL", "info")

	// Try to read .env file (optional)
	_ = viper.ReadInConfig()

	// Bind environment variables
	for _, key := range []string{
		"HOST", "PORT", "GIN_MODE", "DATABASE_URL", "REDIS_URL",
		"EMBEDDING_PROVIDER", "EMBEDDING_API_KEY", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"STORAGE_PATH", "MAX_UPLOAD_SIZE", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"WORKER_COUNT", "INDEX_CACHE_SIZE", "OCR_LANGUAGES",
		"MAX_CONTEXT_CHARS", "DEFAULT_TOP_K", "LOG_LEVEL",
	} {
		if val := os.Getenv(key); val != "" {
			viper.Set(key, val)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.GinMode) == "debug"
}

// OCRLanguageList splits the configured OCR languages ("eng+ita" or "eng,ita").
func (c *Config) OCRLanguageList() []string {
	split := func(r rune) bool { return r == '+' || r == ',' }
	langs := strings.FieldsFunc(c.OCRLanguages, split)
	if len(langs) == 0 {
		return []string{"eng"}
	}
	return langs
}
