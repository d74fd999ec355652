package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests from TEST_* variables
// If the database variables are not set, an empty Config is returned and the tests skip
func LoadTestConfig() (*Config, error) {
	// Try to load .env file from the project root (optional)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		return cfg, nil
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("TEST_DB_PORT")
	if dbPortStr == "" {
		return cfg, nil
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	cfg.Database.User = os.Getenv("TEST_DB_USER")
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.Database.DBName = os.Getenv("TEST_DB_NAME")
	if cfg.Database.User == "" || cfg.Database.DBName == "" {
		return &Config{}, nil
	}

	cfg.JWT.Secret = envString("TEST_JWT_SECRET", "integration-test-secret")
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.JWT.RefreshTokenExpiry = 24 * time.Hour
	cfg.APIKey = envString("TEST_API_KEY", "integration-test-key")
	cfg.Admin.EmailSuffix = envString("TEST_ADMIN_EMAIL_SUFFIX", "@gbroads.pk")
	cfg.Storage.Backend = StorageBackendLocal
	cfg.Storage.LocalPath = os.TempDir()
	cfg.Storage.PhotoBucket = "road-photos"

	return cfg, nil
}

// HasDatabase reports whether the test configuration points at a database
func (c *Config) HasDatabase() bool {
	return c.Database.Host != "" && c.Database.DBName != ""
}
