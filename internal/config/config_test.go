package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Data:    DataConfig{Path: "/some/path"},
		Storage: StorageConfig{Driver: StorageBadger},
		Photos:  PhotoConfig{Driver: PhotoDataURI, MaxBytes: 1024},
		Auth:    AuthConfig{AccessTokenDuration: time.Hour},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"sqlite", func(c *Config) { c.Storage.Driver = StorageSQLite }, true},
		{"file", func(c *Config) { c.Storage.Driver = StorageFile }, true},
		{"memory", func(c *Config) { c.Storage.Driver = StorageMemory }, true},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "redis" }, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = StoragePostgres }, false},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Driver = StoragePostgres
			c.Storage.PostgresDSN = "postgres://localhost/plants"
		}, true},
		{"s3 without bucket", func(c *Config) { c.Photos.Driver = PhotoS3 }, false},
		{"s3 with bucket", func(c *Config) {
			c.Photos.Driver = PhotoS3
			c.Photos.S3.Bucket = "plants"
		}, true},
		{"unknown photo driver", func(c *Config) { c.Photos.Driver = "ftp" }, false},
		{"zero photo size", func(c *Config) { c.Photos.MaxBytes = 0 }, false},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }, false},
		{"empty data path", func(c *Config) { c.Data.Path = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATA_PATH", "")

	cfg, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "PlantCare", "data"), cfg.Data.Path)
	assert.Equal(t, filepath.Join(cfg.Data.Path, "photos"), cfg.Photos.Dir)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.Equal(t, PhotoDataURI, cfg.Photos.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# local overrides\nSERVER_PORT=9000\nLOG_LEVEL=\"debug\"\n"), 0o600))

	t.Setenv("DATA_PATH", dir)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load([]string{"-env-file", envFile, "-storage", "memory", "-cors-origins", "http://a.test, http://b.test"})
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver, "flag beats env")
	assert.Equal(t, "9000", cfg.Server.Port, ".env beats default")
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, dir, cfg.Data.Path)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	_, err := Load([]string{"-env-file", "", "-read-timeout", "soon"})
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/plants", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "plants"), got)

	got, err = expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)
}

func TestGetIntConfigValue_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("PLANTCARE_TEST_INT", "lots")
	assert.Equal(t, 7, getIntConfigValue("", "PLANTCARE_TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "PLANTCARE_TEST_INT", 7))
}
