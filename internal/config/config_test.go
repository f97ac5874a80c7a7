package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FINDASH_LISTEN_ADDR", ":9999")
	t.Setenv("FINDASH_DEBUG", "true")
	t.Setenv("FINDASH_API_URL", "http://finance.internal")
	t.Setenv("FINDASH_HTTP_TIMEOUT", "3s")
	t.Setenv("FINDASH_DATA_DIR", "/tmp/findash-test")
	t.Setenv("FINDASH_REFRESH_SPEC", "@every 1m")

	cfg := Load()
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if !cfg.Debug {
		t.Error("Debug not set")
	}
	if cfg.APIBaseURL != "http://finance.internal" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.DataDirectory != "/tmp/findash-test" {
		t.Errorf("DataDirectory = %q", cfg.DataDirectory)
	}
	if cfg.RefreshSpec != "@every 1m" {
		t.Errorf("RefreshSpec = %q", cfg.RefreshSpec)
	}
}

func TestLoadDisablesRefresh(t *testing.T) {
	t.Setenv("FINDASH_REFRESH_SPEC", "")

	cfg := Load()
	if cfg.RefreshSpec != "" {
		t.Errorf("RefreshSpec = %q, want empty (disabled)", cfg.RefreshSpec)
	}
}

func TestLoadIgnoresBadTimeout(t *testing.T) {
	t.Setenv("FINDASH_HTTP_TIMEOUT", "soon")

	cfg := Load()
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want default", cfg.HTTPTimeout)
	}
}
