// Package config provides configuration for the API and the site
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageBackendLocal = "local"
	StorageBackendMinIO = "minio"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	JWT      JWTConfig
	Storage  StorageConfig
	OAuth    OAuthConfig
	OTP      OTPConfig
	Admin    AdminConfig
	Site     SiteConfig
	// APIKey is the public key every client sends in X-API-Key
	APIKey string
	// PublicBaseURL is the externally reachable API origin, used for OAuth callbacks
	PublicBaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the Redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           int
	MaxRequestSize int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Backend     string
	LocalPath   string
	PhotoBucket string
	MinIO       MinIOConfig
}

// MinIOConfig holds MinIO connection settings
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// OAuthConfig holds OAuth provider credentials
// A provider with an empty client ID is disabled
type OAuthConfig struct {
	Google   OAuthProviderConfig
	Facebook OAuthProviderConfig
	// AllowedRedirectOrigins limits where the callback may send the browser
	AllowedRedirectOrigins []string
}

// OAuthProviderConfig holds one provider's client credentials
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// OTPConfig holds phone one-time password settings
type OTPConfig struct {
	TTL          time.Duration
	Length       int
	SendInterval time.Duration
	SendBurst    int
	MaxAttempts  int
}

// AdminConfig holds the admin classification rule
type AdminConfig struct {
	EmailSuffix string
}

// SiteConfig holds settings of the server-rendered site
type SiteConfig struct {
	Port           int
	APIBaseURL     string
	PublicOrigin   string
	RedirectDelay  time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	CookieSecure   bool
}

// Load reads the API configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}
	var err error

	// Database configuration
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	dbPortStr, err := requireEnv("DB_PORT")
	if err != nil {
		return nil, err
	}
	if cfg.Database.Port, err = strconv.Atoi(dbPortStr); err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.Database.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Server configuration
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil { // default port
		return nil, err
	}
	maxRequestSize, err := envInt("MAX_REQUEST_SIZE", 10*1024*1024) // 10MB
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxRequestSize = int64(maxRequestSize)

	cfg.Logging.Level = envString("LOG_LEVEL", "info") // default level
	cfg.CORS.AllowedOrigins = envList("CORS_ALLOWED_ORIGINS", []string{"*"})

	// JWT configuration
	if cfg.JWT.Secret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.JWT.AccessTokenExpiry, err = envDuration("JWT_ACCESS_TOKEN_EXPIRY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWT.RefreshTokenExpiry, err = envDuration("JWT_REFRESH_TOKEN_EXPIRY", 7*24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.APIKey, err = requireEnv("API_KEY"); err != nil {
		return nil, err
	}
	cfg.PublicBaseURL = strings.TrimSuffix(envString("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)), "/")

	// Redis configuration
	cfg.Redis.Host = envString("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = envInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// Storage configuration
	cfg.Storage.Backend = envString("STORAGE_BACKEND", StorageBackendLocal)
	cfg.Storage.LocalPath = envString("STORAGE_LOCAL_PATH", "./data/objects")
	cfg.Storage.PhotoBucket = envString("STORAGE_PHOTO_BUCKET", "road-photos")
	cfg.Storage.MinIO.Endpoint = envString("MINIO_ENDPOINT", "localhost:9000")
	cfg.Storage.MinIO.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.Storage.MinIO.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.Storage.MinIO.Region = envString("MINIO_REGION", "us-east-1")
	if cfg.Storage.MinIO.UseSSL, err = envBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	switch cfg.Storage.Backend {
	case StorageBackendLocal:
	case StorageBackendMinIO:
		if cfg.Storage.MinIO.AccessKey == "" || cfg.Storage.MinIO.SecretKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio backend")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q", cfg.Storage.Backend)
	}

	// OAuth configuration (optional, providers without a client ID are disabled)
	cfg.OAuth.Google.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.OAuth.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.OAuth.Facebook.ClientID = os.Getenv("FACEBOOK_CLIENT_ID")
	cfg.OAuth.Facebook.ClientSecret = os.Getenv("FACEBOOK_CLIENT_SECRET")
	cfg.OAuth.AllowedRedirectOrigins = envList("OAUTH_ALLOWED_REDIRECT_ORIGINS", []string{"http://localhost:3000"})

	// OTP configuration
	if cfg.OTP.TTL, err = envDuration("OTP_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.OTP.Length, err = envInt("OTP_LENGTH", 6); err != nil {
		return nil, err
	}
	if cfg.OTP.SendInterval, err = envDuration("OTP_SEND_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.OTP.SendBurst, err = envInt("OTP_SEND_BURST", 3); err != nil {
		return nil, err
	}
	if cfg.OTP.MaxAttempts, err = envInt("OTP_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	cfg.Admin.EmailSuffix = envString("ADMIN_EMAIL_SUFFIX", "@gbroads.pk")

	return cfg, nil
}

// LoadSite reads the site configuration from environment variables
func LoadSite() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}
	var err error

	apiBaseURL, err := requireEnv("SITE_API_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.Site.APIBaseURL = strings.TrimSuffix(apiBaseURL, "/")

	if cfg.APIKey, err = requireEnv("API_KEY"); err != nil {
		return nil, err
	}

	if cfg.Site.Port, err = envInt("SITE_PORT", 3000); err != nil { // default port
		return nil, err
	}
	cfg.Site.PublicOrigin = strings.TrimSuffix(envString("SITE_PUBLIC_ORIGIN", fmt.Sprintf("http://localhost:%d", cfg.Site.Port)), "/")
	if cfg.Site.RedirectDelay, err = envDuration("SITE_REDIRECT_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Site.RequestTimeout, err = envDuration("SITE_REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Site.MaxRetries, err = envInt("SITE_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.Site.CookieSecure, err = envBool("SITE_COOKIE_SECURE", true); err != nil {
		return nil, err
	}

	cfg.Logging.Level = envString("LOG_LEVEL", "info") // default level
	cfg.Storage.PhotoBucket = envString("STORAGE_PHOTO_BUCKET", "road-photos")
	cfg.Admin.EmailSuffix = envString("ADMIN_EMAIL_SUFFIX", "@gbroads.pk")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func envString(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func envInt(key string, def int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// envList parses a comma-separated list, falling back to def when nothing valid is set
func envList(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
