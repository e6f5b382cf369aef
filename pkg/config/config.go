package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Ollama     OllamaConfig
	Enrichment EnrichmentConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds SQLite database paths
type DatabaseConfig struct {
	MoviesPath  string
	RatingsPath string
}

// OllamaConfig holds Ollama configuration
type OllamaConfig struct {
	URL        string
	ChatModel  string
	EmbedModel string
}

// EnrichmentConfig holds enrichment pipeline configuration
type EnrichmentConfig struct {
	CachePath string
	// FetchLimit bounds the source fetch; generous enough to cover the
	// full dataset (~9k movies).
	FetchLimit int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 5174),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			MoviesPath:  getEnv("MOVIES_DB_PATH", "db/movies.db"),
			RatingsPath: getEnv("RATINGS_DB_PATH", "db/ratings.db"),
		},
		Ollama: OllamaConfig{
			URL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			ChatModel:  getEnv("OLLAMA_MODEL", "ibm/granite4:1b-h"),
			EmbedModel: getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		},
		Enrichment: EnrichmentConfig{
			CachePath:  getEnv("ENRICHED_CACHE_PATH", "data/enriched-movies.json"),
			FetchLimit: getEnvAsInt("ENRICHMENT_FETCH_LIMIT", 10000),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "moviegrounds"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
