package config

import (
	"os"
	"strconv"

	"gaitspec/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds HTTP boundary settings
type ServerConfig struct {
	Port string
}

// PathConfig holds file system paths
type PathConfig struct {
	SpecSeedFile string
	DataFile     string
}

// EngineConfig holds validation engine tuning knobs
type EngineConfig struct {
	// ResamplePoints is the canonical phase grid size (default 150).
	ResamplePoints int
	// ForceThresholdN is the stance detection threshold in newtons.
	ForceThresholdN float64
	// WorkerCapacity bounds concurrent stride classification.
	WorkerCapacity int
	// MinSampleSize is the statistical minimum for automated tuning.
	MinSampleSize int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Paths: PathConfig{
			SpecSeedFile: getEnvOrDefault("SPEC_SEED_FILE", "./specs/seed_ranges.yaml"),
			DataFile:     getEnvOrDefault("DATA_FILE", ""),
		},
		Engine: EngineConfig{
			ResamplePoints:  getEnvIntOrDefault("RESAMPLE_POINTS", 150),
			ForceThresholdN: getEnvFloatOrDefault("FORCE_THRESHOLD_N", 50.0),
			WorkerCapacity:  getEnvIntOrDefault("WORKER_CAPACITY", 8),
			MinSampleSize:   getEnvIntOrDefault("MIN_SAMPLE_SIZE", 30),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Paths.SpecSeedFile == "" {
		return errors.ConfigInvalid("SPEC_SEED_FILE is required")
	}
	if config.Engine.ResamplePoints < 2 {
		return errors.ConfigInvalid("RESAMPLE_POINTS must be at least 2")
	}
	if config.Engine.ForceThresholdN <= 0 {
		return errors.ConfigInvalid("FORCE_THRESHOLD_N must be positive")
	}
	if config.Engine.WorkerCapacity < 1 {
		return errors.ConfigInvalid("WORKER_CAPACITY must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
