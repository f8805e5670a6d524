package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvDBPath       = "COLONY_DB_PATH"
	EnvResourcesDir = "COLONY_RESOURCES_DIR"
	EnvWatch        = "COLONY_WATCH"

	DefaultResourcesDir = "static/resources"
)

type Config struct {
	DBPath       string
	ResourcesDir string
	Watch        bool
}

// Load loads configuration from environment variables with defaults. A .env
// file in the working directory is read first; variables already set in the
// environment take precedence over it.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is ignored.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	// Database path configuration
	cfg.DBPath = os.Getenv(EnvDBPath)
	if cfg.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = filepath.Join(homeDir, ".colony-directory", "directory.db")
	}

	cfg.ResourcesDir = os.Getenv(EnvResourcesDir)
	if cfg.ResourcesDir == "" {
		cfg.ResourcesDir = DefaultResourcesDir
	}

	if v := os.Getenv(EnvWatch); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		cfg.Watch = watch
	}

	// Ensure the directory exists
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return cfg, nil
}
