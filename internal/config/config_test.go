package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scrypster/casetrail/pkg/types"
)

// TestLoad_Defaults verifies the built-in defaults when no file or env vars
// are present
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Storage.Engine != "sqlite" {
		t.Errorf("engine = %q, want sqlite", cfg.Storage.Engine)
	}
	if cfg.Security.Mode != "development" {
		t.Errorf("security mode = %q, want development", cfg.Security.Mode)
	}
	if cfg.Calendar.UpcomingWindowDays != 7 {
		t.Errorf("upcoming window = %d, want 7", cfg.Calendar.UpcomingWindowDays)
	}
	if len(cfg.Calendar.ImportantEventTypes) != len(types.DefaultImportantEventTypes) {
		t.Errorf("important event types = %v, want defaults", cfg.Calendar.ImportantEventTypes)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

// TestLoad_EnvOverrides verifies environment variables take precedence
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CASETRAIL_PORT", "9090")
	t.Setenv("CASETRAIL_STORAGE_ENGINE", "postgres")
	t.Setenv("CASETRAIL_SECURITY_MODE", "production")
	t.Setenv("CASETRAIL_API_TOKEN", "env-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Storage.Engine != "postgres" {
		t.Errorf("engine = %q, want postgres", cfg.Storage.Engine)
	}
	if cfg.Security.Mode != "production" || cfg.Security.APIToken != "env-token" {
		t.Errorf("security = %+v, want production with env token", cfg.Security)
	}
}

// TestLoad_YAMLFile verifies file values overlay defaults and env overlays
// the file
func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8081
storage:
  engine: postgres
  postgres_dsn: postgres://localhost/casetrail
calendar:
  important_event_types:
    - Found
    - CourtDate
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CASETRAIL_PORT", "8082")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8082 {
		t.Errorf("port = %d, want env to beat file", cfg.Server.Port)
	}
	if cfg.Storage.PostgresDSN != "postgres://localhost/casetrail" {
		t.Errorf("dsn = %q, want file value", cfg.Storage.PostgresDSN)
	}
	if len(cfg.Calendar.ImportantEventTypes) != 2 {
		t.Errorf("important event types = %v, want file value kept", cfg.Calendar.ImportantEventTypes)
	}
	// Untouched settings keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default", cfg.Server.Host)
	}
}

// TestLoad_MissingFile verifies a bad path is reported
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestLoad_InvalidYAML verifies a malformed file is reported
func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}
