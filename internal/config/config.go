// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	StorageBadger   = "badger"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageFile     = "file"
	StorageMemory   = "memory"
)

// Photo drivers.
const (
	PhotoDataURI = "datauri"
	PhotoFS      = "fs"
	PhotoS3      = "s3"
)

var (
	storageDrivers = []string{StorageBadger, StorageSQLite, StoragePostgres, StorageFile, StorageMemory}
	photoDrivers   = []string{PhotoDataURI, PhotoFS, PhotoS3}
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Storage   StorageConfig
	Photos    PhotoConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig locates on-disk state (badger dir, sqlite file, json files, photos, token key).
type DataConfig struct {
	Path string
}

// StorageConfig selects the plant persistence backend.
type StorageConfig struct {
	Driver      string
	PostgresDSN string
}

// PhotoConfig selects where uploaded plant photos go.
type PhotoConfig struct {
	Driver   string
	MaxBytes int
	Dir      string // fs driver (default: {data}/photos)
	S3       S3Config
}

// S3Config configures the s3 photo driver.
// Empty credentials fall back to the AWS default chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration
}

// RateLimitConfig limits sign-in attempts per client IP.
type RateLimitConfig struct {
	SignInPerMinute int
	SignInBurst     int
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("plantcare", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local state (default: ~/PlantCare/data)")

	storageDriver := fs.String("storage", "", "Plant storage driver (badger, sqlite, postgres, file, memory)")
	postgresDSN := fs.String("postgres-dsn", "", "Postgres connection string for the postgres driver")

	photoDriver := fs.String("photo-driver", "", "Photo storage driver (datauri, fs, s3)")
	photoMaxBytes := fs.String("photo-max-bytes", "", "Maximum photo upload size in bytes (default: 5242880)")
	photoDir := fs.String("photo-dir", "", "Directory for the fs photo driver")
	s3Bucket := fs.String("s3-bucket", "", "Bucket for the s3 photo driver")
	s3Region := fs.String("s3-region", "", "Region for the s3 photo driver")
	s3Endpoint := fs.String("s3-endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")

	serverName := fs.String("server-name", "", "Name for the server")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed CORS origins")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env files are fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getConfigValue(*storageDriver, "STORAGE_DRIVER", StorageBadger)),
			PostgresDSN: getConfigValue(*postgresDSN, "POSTGRES_DSN", ""),
		},
		Photos: PhotoConfig{
			Driver:   strings.ToLower(getConfigValue(*photoDriver, "PHOTO_DRIVER", PhotoDataURI)),
			MaxBytes: getIntConfigValue(*photoMaxBytes, "PHOTO_MAX_BYTES", 5<<20),
			Dir:      getConfigValue(*photoDir, "PHOTO_DIR", ""),
			S3: S3Config{
				Bucket:          getConfigValue(*s3Bucket, "S3_BUCKET", ""),
				Region:          getConfigValue(*s3Region, "S3_REGION", "us-east-1"),
				Endpoint:        getConfigValue(*s3Endpoint, "S3_ENDPOINT", ""),
				AccessKeyID:     getConfigValue("", "S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getConfigValue("", "S3_SECRET_ACCESS_KEY", ""),
				UsePathStyle:    getBoolConfigValue("", "S3_USE_PATH_STYLE", false),
			},
		},
		Server: ServerConfig{
			Name:        getConfigValue(*serverName, "SERVER_NAME", "PlantCare"),
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			AccessTokenKey: nil, // Set by auth.LoadOrGenerateKey during bootstrap
		},
		RateLimit: RateLimitConfig{
			SignInPerMinute: getIntConfigValue("", "SIGNIN_RATE_PER_MINUTE", 10),
			SignInBurst:     getIntConfigValue("", "SIGNIN_RATE_BURST", 5),
		},
	}

	var err error
	if cfg.Auth.AccessTokenDuration, err = getDurationConfigValue(*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h"); err != nil {
		return nil, fmt.Errorf("invalid access token duration: %w", err)
	}
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := []string{"development", "staging", "production"}
	if !slices.Contains(validEnvs, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if !slices.Contains(storageDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %s (must be one of %s)", c.Storage.Driver, strings.Join(storageDrivers, ", "))
	}
	if c.Storage.Driver == StoragePostgres && c.Storage.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required for the postgres storage driver")
	}

	if !slices.Contains(photoDrivers, c.Photos.Driver) {
		return fmt.Errorf("invalid photo driver: %s (must be one of %s)", c.Photos.Driver, strings.Join(photoDrivers, ", "))
	}
	if c.Photos.Driver == PhotoS3 && c.Photos.S3.Bucket == "" {
		return errors.New("S3_BUCKET is required for the s3 photo driver")
	}
	if c.Photos.MaxBytes <= 0 {
		return fmt.Errorf("photo max bytes must be positive, got %d", c.Photos.MaxBytes)
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}

	return nil
}

// expandPaths resolves the data path and the paths derived from it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.Data.Path, err = expandPath(c.Data.Path, filepath.Join(homeDir, "PlantCare", "data"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}

	c.Photos.Dir, err = expandPath(c.Photos.Dir, filepath.Join(c.Data.Path, "photos"))
	if err != nil {
		return fmt.Errorf("invalid photo dir: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", envKey, strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real env vars take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
