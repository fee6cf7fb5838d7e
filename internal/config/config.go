package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey    string
	DatabaseURL     string
	HTTPPort        string
	LogLevel        string
	JWTSecret       string
	ModelName       string
	ModelTimeout    time.Duration
	ModelMaxRetries int
}

// Load reads configuration from the environment, with an optional .env file.
// The returned config is handed to constructors explicitly; there is no
// package-level state.
func Load() (*Config, error) {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "logbook.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		ModelName:       getEnv("MODEL_NAME", "gemini-1.5-flash-latest"),
		ModelTimeout:    time.Duration(getEnvAsInt("MODEL_TIMEOUT_SECONDS", 30)) * time.Second,
		ModelMaxRetries: getEnvAsInt("MODEL_MAX_RETRIES", 1),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
