package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration
type Config struct {
	// Local dashboard server
	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`

	// Remote finance service
	APIBaseURL  string        `json:"api_base_url"`
	HTTPTimeout time.Duration `json:"http_timeout"`

	// Session slot location
	DataDirectory string `json:"data_directory"`

	// Cron spec for the background view-model refresh; empty disables it.
	RefreshSpec string `json:"refresh_spec"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:    ":8080",
		Debug:         false,
		APIBaseURL:    "http://localhost:8000",
		HTTPTimeout:   15 * time.Second,
		DataDirectory: filepath.Join(wd, "data"),
		RefreshSpec:   "@every 5m",
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("FINDASH_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if debug := os.Getenv("FINDASH_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}
	if base := os.Getenv("FINDASH_API_URL"); base != "" {
		cfg.APIBaseURL = base
	}
	if timeout := os.Getenv("FINDASH_HTTP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}
	if dataDir := os.Getenv("FINDASH_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	if spec, ok := os.LookupEnv("FINDASH_REFRESH_SPEC"); ok {
		cfg.RefreshSpec = spec
	}

	return cfg
}
